package provider

import (
	"fmt"

	"github.com/papercomputeco/judgebench/pkg/llm/provider/openai"
	"github.com/papercomputeco/judgebench/pkg/llm/provider/text"
)

// Supported provider type constants
const (
	OpenAI = "openai"
	Text   = "text"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenAI, Text}
}

// New creates a new Provider instance for the given provider type.
// An empty providerType selects OpenAI.
// Returns an error if the provider type is not recognized.
func New(providerType string) (Provider, error) {
	switch providerType {
	case OpenAI, "":
		return openai.New(), nil
	case Text:
		return text.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
