package llm

import (
	"errors"
	"testing"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	err := Config{Model: "openai/gpt-4.1-mini"}.Validate()
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing api key, got %v", err)
	}

	if err := (Config{APIKey: "sk-or-1", Model: "openai/gpt-4.1-mini"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestOpenRouterForRoleOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               "sk-or-1",
		Model:                "openai/gpt-4.1-mini",
		Temperature:          0.3,
		PhraserModel:         "google/gemini-2.5-flash",
		PhraserTemperature:   0.7,
		ExtractorTemperature: -1,
	}

	extractor := cfg.OpenRouterFor(RoleExtractor)
	if extractor.Model != "openai/gpt-4.1-mini" {
		t.Fatalf("extractor model = %q, want default", extractor.Model)
	}
	if extractor.Temperature != 0.3 {
		t.Fatalf("extractor temperature = %v, want default", extractor.Temperature)
	}

	phraser := cfg.OpenRouterFor(RolePhraser)
	if phraser.Model != "google/gemini-2.5-flash" {
		t.Fatalf("phraser model = %q, want override", phraser.Model)
	}
	if phraser.Temperature != 0.7 {
		t.Fatalf("phraser temperature = %v, want override", phraser.Temperature)
	}
}
