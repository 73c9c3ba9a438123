// Package config loads typed configuration from the environment. Each
// subsystem declares a struct with envconfig tags and loads it under its own
// prefix, so OPENROUTER_, LINE_, POSTGRES_ and friends stay independent.
// A .env file, given with -env or found in the working directory, is
// exported into the environment before processing.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
)

// MustNew is New for startup wiring, where a bad config should stop the
// process before anything listens.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(fmt.Sprintf("config %s: %v", prefix, err))
	}
	return conf
}

func New[T any](prefix string) (*T, error) {
	if path := envFileFromFlags(); path != "" {
		if err := exportEnvFile(path); err != nil {
			return nil, fmt.Errorf("env file %s: %w", path, err)
		}
	} else if err := exportEnvFileIfExists(".env"); err != nil {
		return nil, fmt.Errorf("default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func envFileFromFlags() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportEnvFileIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvFile(path)
}

// exportEnvFile copies every key in the file into the process environment,
// uppercased so envconfig can see it. Keys already set in the environment
// are overwritten; the file is the local source of truth when present.
func exportEnvFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
