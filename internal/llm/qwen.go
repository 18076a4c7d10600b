package llm

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/ragsearch/internal/provider"
)

// DashScope's OpenAI-compatible chat endpoint for the qwen models.
const dashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// QwenProvider serves completions from the qwen model family through
// DashScope's compatible-mode API.
type QwenProvider struct {
	client *openai.Client
}

// NewQwenProvider creates a DashScope-backed provider.
func NewQwenProvider(apiKey string) *QwenProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = dashScopeBaseURL
	return &QwenProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *QwenProvider) Name() string { return "qwen" }

func (p *QwenProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := buildChatRequest(req)

	var resp openai.ChatCompletionResponse
	err := provider.Retry(ctx, provider.DefaultMaxAttempts, time.Second, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, apiReq)
		if callErr != nil {
			return provider.Classify("qwen", statusCodeOf(callErr), callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

// CompleteStream streams the completion, invoking onDelta for each
// content fragment. Streaming requests are not retried: a failure after
// tokens were delivered cannot be replayed transparently.
func (p *QwenProvider) CompleteStream(ctx context.Context, req CompletionRequest, onDelta StreamFunc) (*CompletionResponse, error) {
	apiReq := buildChatRequest(req)
	apiReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, provider.Classify("qwen", statusCodeOf(err), err)
	}
	defer stream.Close()

	var content []byte
	var model, finishReason string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, provider.Classify("qwen", statusCodeOf(err), err)
		}
		model = chunk.Model
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		finishReason = string(chunk.Choices[0].FinishReason)
		if delta == "" {
			continue
		}
		content = append(content, delta...)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return nil, err
			}
		}
	}

	return &CompletionResponse{
		Content:      string(content),
		Model:        model,
		FinishReason: finishReason,
	}, nil
}

func buildChatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	model := string(req.Model)
	if model == "" {
		model = string(DefaultModel)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return apiReq
}

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
