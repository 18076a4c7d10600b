package retriever

import "fmt"

// SearchMode selects the ranking strategy for a search.
type SearchMode string

const (
	// ModeVector ranks by embedding similarity alone.
	ModeVector SearchMode = "vector"
	// ModeHybrid overfetches by vector similarity and reorders the
	// candidates with a reranker.
	ModeHybrid SearchMode = "hybrid"
)

// ParseSearchMode resolves a user-supplied mode string. An empty mode
// means hybrid, the default ranking. The numeric aliases are kept for
// callers that still send the old menu choices.
func ParseSearchMode(s string) (SearchMode, error) {
	switch s {
	case string(ModeVector), "1":
		return ModeVector, nil
	case "", string(ModeHybrid), "2":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (expected vector or hybrid)", s)
	}
}

func (m SearchMode) String() string { return string(m) }
