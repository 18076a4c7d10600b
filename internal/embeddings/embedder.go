package embeddings

import "context"

// Embedder turns a batch of texts into fixed-dimension vectors. It is a
// pure gateway: no local state, same output length and order as the
// input. Implementations are responsible for splitting the input into
// provider-sized batches.
type Embedder interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length the model produces.
	Dimensions() int

	// Name identifies the embedding model.
	Name() string
}
