package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/llm"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

type fakeProvider struct {
	content string
	err     error
	gotReq  llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "qwen-plus"}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

type fakeStreamProvider struct {
	fakeProvider
	streamed bool
}

func (f *fakeStreamProvider) CompleteStream(ctx context.Context, req llm.CompletionRequest, onDelta llm.StreamFunc) (*llm.CompletionResponse, error) {
	f.streamed = true
	for _, half := range []string{f.content[:len(f.content)/2], f.content[len(f.content)/2:]} {
		if err := onDelta(half); err != nil {
			return nil, err
		}
	}
	return f.Complete(ctx, req)
}

func fiveSources() []retriever.Source {
	sources := make([]retriever.Source, 5)
	names := []string{"Acme Pricing", "Acme Pricing", "Globex Handbook", "Globex Handbook", "Initech FAQ"}
	for i := range sources {
		sources[i] = retriever.Source{
			ChunkID:      names[i][:4] + "_" + string(rune('0'+i)),
			DocumentName: names[i],
			Text:         "passage " + string(rune('0'+i)),
			PageNum:      i + 1,
		}
	}
	return sources
}

func TestComposeResolvesInlineMarkers(t *testing.T) {
	provider := &fakeProvider{
		content: `{"answer": "Tiers start at $10 [1] and refunds take 14 days [1][3].",
			"thoughts": "used pricing and handbook passages",
			"citations": [1, 3]}`,
	}
	c := NewComposer(provider, llm.ModelQwenPlus, zap.NewNop())

	ans, err := c.Compose(context.Background(), Request{Question: "what are the tiers", Sources: fiveSources()})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !provider.gotReq.JSONMode {
		t.Error("completion request should ask for JSON mode")
	}
	if provider.gotReq.Model != llm.ModelQwenPlus {
		t.Errorf("request model = %s", provider.gotReq.Model)
	}
	userMsg := provider.gotReq.Messages[1].Content
	if !strings.Contains(userMsg, "[1] From Acme Pricing, page 1") {
		t.Errorf("context block missing numbered passage header:\n%s", userMsg)
	}

	// Duplicate markers are preserved in appearance order.
	if len(ans.Citations) != 3 {
		t.Fatalf("got %d citations, want 3: %+v", len(ans.Citations), ans.Citations)
	}
	wantMarkers := []int{1, 1, 3}
	for i, cit := range ans.Citations {
		if cit.Marker != wantMarkers[i] {
			t.Errorf("citation %d marker = %d, want %d", i, cit.Marker, wantMarkers[i])
		}
	}
	if ans.Citations[2].DocumentName != "Globex Handbook" || ans.Citations[2].PageNum != 3 {
		t.Errorf("citation 3 resolved to %+v", ans.Citations[2])
	}
	if ans.Thoughts != "used pricing and handbook passages" {
		t.Errorf("thoughts = %q", ans.Thoughts)
	}
	if ans.Model != "qwen-plus" {
		t.Errorf("model = %q", ans.Model)
	}
}

func TestComposeDropsOutOfRangeMarkers(t *testing.T) {
	provider := &fakeProvider{
		content: `{"answer": "See [2] and also [9].", "thoughts": "", "citations": [2, 9]}`,
	}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	ans, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()})
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].Marker != 2 {
		t.Errorf("citations = %+v, want only marker 2", ans.Citations)
	}
	// The answer text is not rewritten; only the citation list is filtered.
	if !strings.Contains(ans.Text, "[9]") {
		t.Error("answer text should be returned verbatim")
	}
}

func TestComposeFallsBackToStructuredCitations(t *testing.T) {
	provider := &fakeProvider{
		content: `{"answer": "The refund window is 14 days.", "thoughts": "", "citations": ["3"]}`,
	}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	ans, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()})
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].Marker != 3 {
		t.Errorf("citations = %+v, want marker 3 from the structured array", ans.Citations)
	}
}

func TestComposeStripsCodeFence(t *testing.T) {
	provider := &fakeProvider{
		content: "```json\n{\"answer\": \"Fenced [1].\", \"thoughts\": [\"step one\", \"step two\"], \"citations\": [1]}\n```",
	}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	ans, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "Fenced [1]." {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Thoughts != "step one\nstep two" {
		t.Errorf("array thoughts not joined: %q", ans.Thoughts)
	}
}

func TestComposeFallsBackToRawText(t *testing.T) {
	provider := &fakeProvider{content: "The pro tier costs fifty dollars [4]."}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	ans, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()})
	if err != nil {
		t.Fatalf("prose answer should not fail: %v", err)
	}
	if ans.Text != provider.content {
		t.Errorf("answer = %q", ans.Text)
	}
	// Inline markers still resolve against the sources.
	if len(ans.Citations) != 1 || ans.Citations[0].Marker != 4 {
		t.Errorf("citations = %+v", ans.Citations)
	}
}

func TestComposeRejectsEmptyResponse(t *testing.T) {
	c := NewComposer(&fakeProvider{content: "   "}, llm.DefaultModel, zap.NewNop())
	if _, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()}); err == nil {
		t.Fatal("expected an error for an empty model response")
	}
}

func TestComposeAppliesModelAndHistory(t *testing.T) {
	provider := &fakeProvider{content: `{"answer": "Yes [1].", "thoughts": "", "citations": [1]}`}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	_, err := c.Compose(context.Background(), Request{
		Question: "and the pro tier?",
		Sources:  fiveSources(),
		Model:    llm.ModelQwenMax,
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "how much is the starter tier"},
			{Role: llm.RoleAssistant, Content: "Ten dollars [1]."},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if provider.gotReq.Model != llm.ModelQwenMax {
		t.Errorf("request model = %s", provider.gotReq.Model)
	}
	if len(provider.gotReq.Messages) != 4 {
		t.Fatalf("got %d messages, want system + 2 history + user", len(provider.gotReq.Messages))
	}
	if provider.gotReq.Messages[1].Content != "how much is the starter tier" {
		t.Errorf("history not preserved in order: %+v", provider.gotReq.Messages)
	}
}

func TestComposePropagatesProviderError(t *testing.T) {
	wantErr := errors.New("provider down")
	c := NewComposer(&fakeProvider{err: wantErr}, llm.DefaultModel, zap.NewNop())

	if _, err := c.Compose(context.Background(), Request{Question: "q", Sources: fiveSources()}); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want wrapped provider error", err)
	}
}

func TestComposeStreamForwardsDeltas(t *testing.T) {
	provider := &fakeStreamProvider{fakeProvider: fakeProvider{
		content: `{"answer": "Streamed [1].", "thoughts": "", "citations": [1]}`,
	}}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	var got strings.Builder
	ans, err := c.ComposeStream(context.Background(), Request{Question: "q", Sources: fiveSources()}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !provider.streamed {
		t.Error("streaming provider was not used")
	}
	if got.String() != provider.content {
		t.Errorf("deltas = %q", got.String())
	}
	if ans.Text != "Streamed [1]." {
		t.Errorf("answer = %q", ans.Text)
	}
}

func TestRewriteQuery(t *testing.T) {
	provider := &fakeProvider{content: `"Acme starter tier monthly price"`}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	got := c.RewriteQuery(context.Background(), "how much does it cost?")
	if got != "Acme starter tier monthly price" {
		t.Errorf("rewritten query = %q", got)
	}
	if provider.gotReq.JSONMode {
		t.Error("rewrite should not request JSON mode")
	}
}

func TestRewriteQueryFallsBackOnError(t *testing.T) {
	c := NewComposer(&fakeProvider{err: errors.New("down")}, llm.DefaultModel, zap.NewNop())
	if got := c.RewriteQuery(context.Background(), "original question"); got != "original question" {
		t.Errorf("fallback = %q", got)
	}
}

func TestComposeStreamFallsBackToBlocking(t *testing.T) {
	provider := &fakeProvider{content: `{"answer": "Blocking [1].", "thoughts": "", "citations": [1]}`}
	c := NewComposer(provider, llm.DefaultModel, zap.NewNop())

	ans, err := c.ComposeStream(context.Background(), Request{Question: "q", Sources: fiveSources()}, func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "Blocking [1]." {
		t.Errorf("answer = %q", ans.Text)
	}
}
