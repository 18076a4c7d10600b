package llm

import "context"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest holds the parameters for one completion call.
type CompletionRequest struct {
	Model       Model
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the result of one completion call.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is the boundary to an external completion API.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// StreamFunc receives incremental content deltas during streaming.
type StreamFunc func(delta string) error

// StreamingProvider is implemented by providers that can stream tokens as
// they are generated. The full response is still returned at the end.
type StreamingProvider interface {
	Provider
	CompleteStream(ctx context.Context, req CompletionRequest, onDelta StreamFunc) (*CompletionResponse, error)
}
