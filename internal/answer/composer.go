package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/llm"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

// Citation points a claim in the answer back to a retrieved source. The
// marker is the 1-based passage number as shown in the answer text.
type Citation struct {
	Marker       int      `json:"marker"`
	ChunkID      string   `json:"chunk_id"`
	DocumentName string   `json:"document_name"`
	SectionPath  []string `json:"section_path,omitempty"`
	PageNum      int      `json:"page_num,omitempty"`
}

// Answer is a composed, grounded answer.
type Answer struct {
	Text      string             `json:"answer"`
	Thoughts  string             `json:"thoughts,omitempty"`
	Citations []Citation         `json:"citations"`
	Sources   []retriever.Source `json:"sources"`
	Model     string             `json:"model"`
}

// Request describes one answer composition. Model overrides the
// composer default when set; History carries prior conversation turns
// verbatim between the system prompt and the current question.
type Request struct {
	Question string
	Sources  []retriever.Source
	Model    llm.Model
	History  []llm.Message
}

// Composer turns a question plus retrieved sources into a cited answer.
type Composer struct {
	provider llm.Provider
	model    llm.Model
	logger   *zap.Logger
}

func NewComposer(provider llm.Provider, model llm.Model, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{provider: provider, model: model, logger: logger}
}

// Compose asks the model to answer the question from the given sources
// and resolves its citation markers against them.
func (c *Composer) Compose(ctx context.Context, req Request) (*Answer, error) {
	resp, err := c.provider.Complete(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("completing answer: %w", err)
	}
	return c.assemble(resp, req.Sources)
}

// ComposeStream behaves like Compose but forwards raw content deltas to
// onDelta as the model generates them. Callers streaming to a UI get the
// JSON body incrementally and the parsed answer at the end. Falls back
// to a blocking completion when the provider cannot stream.
func (c *Composer) ComposeStream(ctx context.Context, req Request, onDelta llm.StreamFunc) (*Answer, error) {
	sp, ok := c.provider.(llm.StreamingProvider)
	if !ok {
		return c.Compose(ctx, req)
	}
	resp, err := sp.CompleteStream(ctx, c.buildRequest(req), onDelta)
	if err != nil {
		return nil, fmt.Errorf("streaming answer: %w", err)
	}
	return c.assemble(resp, req.Sources)
}

func (c *Composer) buildRequest(req Request) llm.CompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: buildUserMessage(req.Question, req.Sources),
	})
	return llm.CompletionRequest{
		Model:    model,
		Messages: messages,
		JSONMode: true,
	}
}

func (c *Composer) assemble(resp *llm.CompletionResponse, sources []retriever.Source) (*Answer, error) {
	parsed, err := parseResponse(resp.Content)
	if err != nil {
		if strings.TrimSpace(resp.Content) == "" {
			return nil, err
		}
		// Some models answer in prose despite the JSON instruction. The
		// raw text still carries inline markers, so serve it as-is.
		c.logger.Warn("model answer was not valid JSON, using raw text", zap.Error(err))
		parsed = &llmResponse{Answer: resp.Content}
	}

	// Inline markers are the primary citation channel; the structured
	// array is only trusted when the answer text carries no markers.
	markers := extractMarkers(parsed.Answer)
	if len(markers) == 0 {
		markers = parsed.Citations
	}

	citations := make([]Citation, 0, len(markers))
	dropped := 0
	for _, marker := range markers {
		if marker < 1 || marker > len(sources) {
			dropped++
			continue
		}
		src := sources[marker-1]
		citations = append(citations, Citation{
			Marker:       marker,
			ChunkID:      src.ChunkID,
			DocumentName: src.DocumentName,
			SectionPath:  src.SectionPath,
			PageNum:      src.PageNum,
		})
	}
	if dropped > 0 {
		c.logger.Warn("dropped citation markers outside the source range",
			zap.Int("dropped", dropped),
			zap.Int("sources", len(sources)))
	}

	return &Answer{
		Text:      parsed.Answer,
		Thoughts:  string(parsed.Thoughts),
		Citations: citations,
		Sources:   sources,
		Model:     resp.Model,
	}, nil
}
