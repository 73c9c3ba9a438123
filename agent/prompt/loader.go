package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/extractor.txt
	extractorRaw string

	//go:embed template/phrase.txt
	phraseRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Extractor string
	Phrase    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. The embed is
// compile-time, so this is safe to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Extractor: strings.TrimSpace(extractorRaw),
		Phrase:    strings.TrimSpace(phraseRaw),
	}
}
