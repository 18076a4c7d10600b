package rerank

import "context"

// Result is one reranked candidate. Index refers back to the position of
// the candidate in the slice handed to Rerank; Score is provider-defined
// relevance, higher is better.
type Result struct {
	Index int
	Score float64
}

// Reranker jointly scores a query against candidate passages. A provider
// may truncate to its own top_n, so callers must handle receiving fewer
// results than candidates sent.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []string) ([]Result, error)
	Name() string
}
