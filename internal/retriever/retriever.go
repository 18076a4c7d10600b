package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/chunker"
	"github.com/ziadkadry99/ragsearch/internal/embeddings"
	"github.com/ziadkadry99/ragsearch/internal/rerank"
	"github.com/ziadkadry99/ragsearch/internal/store"
	"github.com/ziadkadry99/ragsearch/internal/vectorindex"
)

var (
	// ErrEmptyCorpus means no indexed documents are in scope for the
	// search. Returned before any provider call is made.
	ErrEmptyCorpus = errors.New("retriever: no indexed documents in scope")
	// ErrEmptyQuery means the query is blank after trimming.
	ErrEmptyQuery = errors.New("retriever: query is empty")
)

const (
	// DefaultTopK is the result count when the caller passes none.
	DefaultTopK = 5
	// DefaultOverfetch multiplies topK to size the hybrid candidate pool
	// handed to the reranker.
	DefaultOverfetch = 5
)

// Source is one retrieved chunk with everything a caller needs to show
// or cite it. Similarity is always the vector score; RerankScore is set
// only when a reranker actually scored the chunk.
type Source struct {
	ChunkID      string   `json:"chunk_id"`
	DocumentName string   `json:"document_name"`
	CompanyName  string   `json:"company_name,omitempty"`
	SectionPath  []string `json:"section_path,omitempty"`
	Text         string   `json:"text"`
	Similarity   float32  `json:"similarity"`
	RerankScore  float64  `json:"rerank_score,omitempty"`
	Reranked     bool     `json:"reranked,omitempty"`
	PageNum      int      `json:"page_num,omitempty"`
	VectorRank   int      `json:"vector_rank"`
}

// Request describes one search.
type Request struct {
	Query string
	Mode  SearchMode
	// TopK is the number of sources to return, DefaultTopK when zero.
	TopK int
	// Filter restricts the search scope to documents whose display or
	// company name contains the string, case-insensitively. A filter
	// that matches nothing yields ErrEmptyCorpus, never a silent
	// widening back to the full corpus.
	Filter string
	// Overfetch overrides DefaultOverfetch for hybrid candidate sizing.
	Overfetch int
}

type document struct {
	manifest *store.Manifest
	index    *vectorindex.Index
	chunks   map[string]chunker.Chunk
}

// Retriever searches the indexed corpus. Documents can be reloaded while
// searches run; the document map is guarded by mu.
type Retriever struct {
	embedder embeddings.Embedder
	reranker rerank.Reranker
	logger   *zap.Logger

	mu   sync.RWMutex
	docs map[string]*document
}

// New creates an empty retriever. Reranker may be nil, in which case
// hybrid searches degrade to vector ranking.
func New(embedder embeddings.Embedder, reranker rerank.Reranker, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		reranker: reranker,
		logger:   logger,
		docs:     make(map[string]*document),
	}
}

// NewFromStore creates a retriever and loads every document whose
// manifest and index both exist under paths.
func NewFromStore(paths store.Paths, embedder embeddings.Embedder, reranker rerank.Reranker, logger *zap.Logger) (*Retriever, error) {
	r := New(embedder, reranker, logger)

	manifests, err := paths.LoadManifests()
	if err != nil {
		return nil, fmt.Errorf("loading manifests: %w", err)
	}
	indexes, err := vectorindex.LoadDir(paths.IndexDir())
	if err != nil {
		return nil, fmt.Errorf("loading indexes: %w", err)
	}

	for _, m := range manifests {
		idx, ok := indexes[m.ContentHash]
		if !ok {
			r.logger.Warn("manifest has no vector index, skipping document",
				zap.String("content_hash", m.ContentHash),
				zap.String("document", m.DisplayName))
			continue
		}
		r.docs[m.ContentHash] = newDocument(m, idx)
	}
	return r, nil
}

// ReloadDocument picks up the on-disk artifacts for one content hash,
// replacing any in-memory copy. Called after (re)processing a document.
func (r *Retriever) ReloadDocument(paths store.Paths, contentHash string) error {
	m, err := store.LoadManifest(paths.ManifestPath(contentHash))
	if err != nil {
		return fmt.Errorf("loading manifest for %s: %w", contentHash, err)
	}
	idx, err := vectorindex.Load(paths.IndexPath(contentHash))
	if err != nil {
		return fmt.Errorf("loading index for %s: %w", contentHash, err)
	}

	r.mu.Lock()
	r.docs[contentHash] = newDocument(m, idx)
	r.mu.Unlock()
	return nil
}

// DocumentCount returns the number of searchable documents.
func (r *Retriever) DocumentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func newDocument(m *store.Manifest, idx *vectorindex.Index) *document {
	chunks := make(map[string]chunker.Chunk, len(m.Chunks))
	for _, c := range m.Chunks {
		chunks[c.ID] = c
	}
	return &document{manifest: m, index: idx, chunks: chunks}
}

// Search runs one retrieval. Scope filtering happens before the query is
// embedded, so an out-of-scope search never spends a provider call.
func (r *Retriever) Search(ctx context.Context, req Request) ([]Source, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	scope := r.scopedDocs(req.Filter)
	if len(scope) == 0 {
		return nil, ErrEmptyCorpus
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := vectors[0]

	candidateK := topK
	if req.Mode == ModeHybrid {
		overfetch := req.Overfetch
		if overfetch <= 0 {
			overfetch = DefaultOverfetch
		}
		candidateK = topK * overfetch
	}

	candidates, err := r.vectorCandidates(scope, queryVec, candidateK)
	if err != nil {
		return nil, err
	}

	if req.Mode != ModeHybrid || r.reranker == nil {
		return truncate(candidates, topK), nil
	}
	return r.rerankCandidates(ctx, query, candidates, topK), nil
}

// scopedDocs snapshots the documents matching the filter. The returned
// slice is ordered by content hash so merged results are deterministic.
func (r *Retriever) scopedDocs(filter string) []*document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter))
	hashes := make([]string, 0, len(r.docs))
	for hash, doc := range r.docs {
		if needle != "" &&
			!strings.Contains(strings.ToLower(doc.manifest.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(doc.manifest.CompanyName), needle) {
			continue
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	scope := make([]*document, len(hashes))
	for i, hash := range hashes {
		scope[i] = r.docs[hash]
	}
	return scope
}

// vectorCandidates queries each in-scope index and merges the hits into
// one list ordered by similarity descending, ties kept in document then
// chunk order. VectorRank is 1-based over the merged list.
func (r *Retriever) vectorCandidates(scope []*document, queryVec []float32, candidateK int) ([]Source, error) {
	var merged []Source
	for _, doc := range scope {
		hits, err := doc.index.Query(queryVec, candidateK)
		if errors.Is(err, vectorindex.ErrEmpty) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying index %s: %w", doc.manifest.ContentHash, err)
		}
		for _, hit := range hits {
			chunk, ok := doc.chunks[hit.ChunkID]
			if !ok {
				r.logger.Warn("index hit has no manifest chunk",
					zap.String("chunk_id", hit.ChunkID),
					zap.String("content_hash", doc.manifest.ContentHash))
				continue
			}
			merged = append(merged, Source{
				ChunkID:      hit.ChunkID,
				DocumentName: doc.manifest.DisplayName,
				CompanyName:  doc.manifest.CompanyName,
				SectionPath:  chunk.SectionPath,
				Text:         chunk.Text,
				Similarity:   hit.Similarity,
				PageNum:      chunk.PageNum,
			})
		}
	}
	if len(merged) == 0 {
		return nil, ErrEmptyCorpus
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if candidateK < len(merged) {
		merged = merged[:candidateK]
	}
	for i := range merged {
		merged[i].VectorRank = i + 1
	}
	return merged, nil
}

// rerankCandidates reorders the candidate pool by rerank score. A rerank
// failure is logged and the vector order stands, so a reranker outage
// degrades the ranking instead of failing the search.
func (r *Retriever) rerankCandidates(ctx context.Context, query string, candidates []Source, topK int) []Source {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	results, err := r.reranker.Rerank(ctx, query, texts)
	if err != nil {
		r.logger.Warn("rerank failed, falling back to vector order",
			zap.String("reranker", r.reranker.Name()),
			zap.Error(err))
		return truncate(candidates, topK)
	}

	for _, res := range results {
		candidates[res.Index].RerankScore = res.Score
		candidates[res.Index].Reranked = true
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Reranked != b.Reranked {
			return a.Reranked
		}
		if a.Reranked && a.RerankScore != b.RerankScore {
			return a.RerankScore > b.RerankScore
		}
		return a.VectorRank < b.VectorRank
	})
	return truncate(candidates, topK)
}

func truncate(sources []Source, topK int) []Source {
	if topK < len(sources) {
		return sources[:topK]
	}
	return sources
}
