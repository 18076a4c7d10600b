package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/ragsearch/internal/provider"
)

// DashScope's OpenAI-compatible endpoint for the qwen embedding models.
const dashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// qwenMaxBatchSize is the DashScope per-request input limit.
const qwenMaxBatchSize = 10

// QwenModel is a supported qwen embedding model.
type QwenModel string

const (
	ModelTextEmbeddingV3 QwenModel = "text-embedding-v3"
	ModelTextEmbeddingV2 QwenModel = "text-embedding-v2"
)

func (m QwenModel) dimensions() int {
	switch m {
	case ModelTextEmbeddingV2:
		return 1536
	default:
		return 1024
	}
}

// QwenEmbedder generates embeddings through DashScope's compatible-mode
// API.
type QwenEmbedder struct {
	client *openai.Client
	model  QwenModel
}

// NewQwenEmbedder creates a DashScope embedder with the given API key.
func NewQwenEmbedder(apiKey string, model QwenModel) *QwenEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = dashScopeBaseURL
	return &QwenEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (e *QwenEmbedder) Name() string { return string(e.model) }

func (e *QwenEmbedder) Dimensions() int { return e.model.dimensions() }

func (e *QwenEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += qwenMaxBatchSize {
		end := i + qwenMaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		var resp openai.EmbeddingResponse
		err := provider.Retry(ctx, provider.DefaultMaxAttempts, time.Second, func() error {
			var callErr error
			resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(e.model),
			})
			if callErr != nil {
				return provider.Classify("qwen-embedding", statusCodeOf(callErr), callErr)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", i, end, err)
		}

		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("dashscope returned %d embeddings, expected %d", len(resp.Data), len(batch))
		}
		for _, emb := range resp.Data {
			all = append(all, emb.Embedding)
		}
	}

	return all, nil
}

// statusCodeOf extracts the HTTP status from a go-openai error so retry
// classification can distinguish rate limits from auth failures.
func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
