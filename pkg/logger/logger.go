// Package logx sets up the process-wide zerolog logger. The agent logs
// structured JSON with a service tag on every line; pretty console output
// is for local development only.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `default:"school-ops-agent"`
}

// New builds a logger writing to w. Exposed separately from Init so tests
// can capture output.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if cfg.PrettyFormat {
		w = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) { cw.Out = w })
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return ctx.Caller().Logger()
}

// Init replaces the global logger.
func Init(cfg Config) {
	log.Logger = New(cfg, os.Stdout)
}
