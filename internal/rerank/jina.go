package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ziadkadry99/ragsearch/internal/provider"
)

const (
	defaultJinaBaseURL = "https://api.jina.ai/v1/rerank"
	defaultJinaModel   = "jina-reranker-v2-base-multilingual"
)

// JinaReranker calls the Jina rerank API.
type JinaReranker struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// JinaOption customizes a JinaReranker.
type JinaOption func(*JinaReranker)

// WithBaseURL overrides the API endpoint (e.g. for a self-hosted
// deployment or a test server).
func WithBaseURL(url string) JinaOption {
	return func(r *JinaReranker) { r.baseURL = url }
}

// WithModel overrides the rerank model.
func WithModel(model string) JinaOption {
	return func(r *JinaReranker) { r.model = model }
}

// NewJinaReranker creates a Jina API client.
func NewJinaReranker(apiKey string, opts ...JinaOption) *JinaReranker {
	r := &JinaReranker{
		apiKey:  apiKey,
		baseURL: defaultJinaBaseURL,
		model:   defaultJinaModel,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *JinaReranker) Name() string { return r.model }

type jinaRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type jinaResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *JinaReranker) Rerank(ctx context.Context, query string, candidates []string) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(jinaRequest{
		Model:     r.model,
		Query:     query,
		Documents: candidates,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling rerank request: %w", err)
	}

	var parsed jinaResponse
	err = provider.Retry(ctx, provider.DefaultMaxAttempts, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(payload))
		if err != nil {
			return provider.Classify("jina", 0, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+r.apiKey)

		resp, err := r.client.Do(req)
		if err != nil {
			return provider.Classify("jina", 0, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return provider.Classify("jina", resp.StatusCode, err)
		}
		if resp.StatusCode != http.StatusOK {
			return provider.Classify("jina", resp.StatusCode,
				fmt.Errorf("rerank request failed: %s", bytes.TrimSpace(body)))
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return provider.Classify("jina", resp.StatusCode, fmt.Errorf("parsing rerank response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		results = append(results, Result{Index: item.Index, Score: item.RelevanceScore})
	}
	return results, nil
}
