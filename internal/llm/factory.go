package llm

import (
	"fmt"
	"os"
)

// NewProvider creates a completion provider for the given provider type.
// Supported provider types: "qwen", "openai".
func NewProvider(providerType string) (Provider, error) {
	switch providerType {
	case "qwen":
		apiKey := os.Getenv("DASHSCOPE_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("QWEN_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("DASHSCOPE_API_KEY environment variable is not set")
		}
		return NewQwenProvider(apiKey), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", providerType)
	}
}
