package embeddings

import (
	"fmt"
	"os"
)

// NewEmbedder creates an embedder for the given provider type.
// Supported provider types: "qwen", "openai".
func NewEmbedder(providerType, model string) (Embedder, error) {
	switch providerType {
	case "qwen":
		apiKey := os.Getenv("DASHSCOPE_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("QWEN_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("DASHSCOPE_API_KEY environment variable is not set")
		}
		if model == "" {
			model = string(ModelTextEmbeddingV3)
		}
		return NewQwenEmbedder(apiKey, QwenModel(model)), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		if model == "" {
			model = string(ModelTextEmbedding3Small)
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model)), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
