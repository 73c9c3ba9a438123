// Package llm maps one OPENROUTER_* environment block onto the per-role
// model settings. The extractor needs a tool-calling model; the phraser can
// run on something smaller and cheaper.
package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	openrouterx "github.com/Khinkawu/crms6it-sub002/pkg/openrouter"
)

type Role string

const (
	RoleExtractor Role = "extractor"
	RolePhraser   Role = "phraser"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ExtractorModel       string  `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	PhraserModel         string  `envconfig:"PHRASER_MODEL" split_words:"true"`
	ExtractorTemperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"-1"`
	PhraserTemperature   float32 `envconfig:"PHRASER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleExtractor:
		if v := strings.TrimSpace(c.ExtractorModel); v != "" {
			modelName = v
		}
		if c.ExtractorTemperature >= 0 {
			temp = c.ExtractorTemperature
		}
	case RolePhraser:
		if v := strings.TrimSpace(c.PhraserModel); v != "" {
			modelName = v
		}
		if c.PhraserTemperature >= 0 {
			temp = c.PhraserTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
