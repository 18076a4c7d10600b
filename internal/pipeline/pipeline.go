package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/catalog"
	"github.com/ziadkadry99/ragsearch/internal/chunker"
	"github.com/ziadkadry99/ragsearch/internal/embeddings"
	"github.com/ziadkadry99/ragsearch/internal/store"
	"github.com/ziadkadry99/ragsearch/internal/vectorindex"
)

// Status tracks a document through the ingestion pipeline. A document
// only ever moves forward; FAILED and SKIPPED are terminal.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusHashed     Status = "hashed"
	StatusSkipped    Status = "skipped"
	StatusConverted  Status = "converted"
	StatusChunked    Status = "chunked"
	StatusEmbedded   Status = "embedded"
	StatusIndexed    Status = "indexed"
	StatusFailed     Status = "failed"
)

// Outcome is the terminal state of one document after a pipeline run.
type Outcome struct {
	Path        string `json:"path,omitempty"`
	DisplayName string `json:"display_name"`
	ContentHash string `json:"content_hash,omitempty"`
	Status      Status `json:"status"`
	ChunkCount  int    `json:"chunk_count,omitempty"`
	Err         error  `json:"-"`
	Detail      string `json:"detail,omitempty"`
}

// Report aggregates the outcomes of a batch run. One document failing
// never aborts the rest of the batch.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Indexed  int       `json:"indexed"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}

func (r *Report) add(o Outcome) {
	switch o.Status {
	case StatusIndexed:
		r.Indexed++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking overrides the default chunk window parameters.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		p.chunkSize = size
		p.chunkOverlap = overlap
	}
}

// WithConcurrency bounds the number of documents processed in parallel.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.concurrency = n
		}
	}
}

// WithConverters replaces the converter chain. Converters are tried in
// order; the first one claiming a file handles it.
func WithConverters(converters ...Converter) Option {
	return func(p *Pipeline) { p.converters = converters }
}

// Pipeline runs the ingest flow: hash, convert, chunk, embed, index,
// register. All artifacts are content-addressed, so reprocessing the
// same bytes is idempotent.
type Pipeline struct {
	paths    store.Paths
	catalog  *catalog.Catalog
	embedder embeddings.Embedder
	logger   *zap.Logger

	converters   []Converter
	chunkSize    int
	chunkOverlap int
	concurrency  int

	// hashLocks serializes concurrent runs over the same content hash so
	// two copies of one document never interleave artifact writes.
	mu        sync.Mutex
	hashLocks map[string]*sync.Mutex
}

func New(paths store.Paths, cat *catalog.Catalog, embedder embeddings.Embedder, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		paths:        paths,
		catalog:      cat,
		embedder:     embedder,
		logger:       logger,
		converters:   []Converter{TextConverter{}},
		chunkSize:    chunker.DefaultChunkSize,
		chunkOverlap: chunker.DefaultChunkOverlap,
		concurrency:  4,
		hashLocks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) lockHash(hash string) func() {
	p.mu.Lock()
	l, ok := p.hashLocks[hash]
	if !ok {
		l = &sync.Mutex{}
		p.hashLocks[hash] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// FileRequest describes one single-document ingestion. DisplayName
// defaults to the file base name; CompanyName is an optional metadata
// tag. ChunkSize and ChunkOverlap each override the matching pipeline
// default when nonzero.
type FileRequest struct {
	Path         string
	DisplayName  string
	CompanyName  string
	SkipExisting bool
	ChunkSize    int
	ChunkOverlap int
}

// ProcessFile ingests one document. With SkipExisting, a document whose
// artifacts already exist is registered in the catalog and skipped
// without touching any provider.
func (p *Pipeline) ProcessFile(ctx context.Context, req FileRequest) Outcome {
	displayName := req.DisplayName
	if displayName == "" {
		displayName = filepath.Base(req.Path)
	}
	out := Outcome{Path: req.Path, DisplayName: displayName, Status: StatusDiscovered}

	chunkSize, chunkOverlap := p.chunkSize, p.chunkOverlap
	if req.ChunkSize != 0 {
		chunkSize = req.ChunkSize
	}
	if req.ChunkOverlap != 0 {
		chunkOverlap = req.ChunkOverlap
	}
	if err := chunker.Validate(chunkSize, chunkOverlap); err != nil {
		return fail(out, err)
	}

	hash, err := store.HashFile(req.Path)
	if err != nil {
		return fail(out, fmt.Errorf("hashing %s: %w", req.Path, err))
	}
	out.ContentHash = hash
	out.Status = StatusHashed

	unlock := p.lockHash(hash)
	defer unlock()

	if req.SkipExisting && p.paths.ArtifactsExist(hash) {
		m, err := store.LoadManifest(p.paths.ManifestPath(hash))
		if err != nil {
			return fail(out, fmt.Errorf("loading existing manifest: %w", err))
		}
		out.ChunkCount = len(m.Chunks)
		if err := p.register(ctx, out, req.CompanyName); err != nil {
			return fail(out, err)
		}
		out.Status = StatusSkipped
		p.logger.Info("artifacts exist, skipping",
			zap.String("document", displayName),
			zap.String("content_hash", hash))
		return out
	}

	conv, err := converterFor(p.converters, req.Path)
	if err != nil {
		return fail(out, err)
	}
	converted, err := conv.Convert(ctx, req.Path)
	if err != nil {
		return fail(out, fmt.Errorf("converting %s: %w", req.Path, err))
	}
	if strings.TrimSpace(converted.Markdown) == "" {
		return fail(out, fmt.Errorf("document %s is empty after conversion", displayName))
	}
	if err := p.paths.WriteMarkdown(hash, converted.Markdown); err != nil {
		return fail(out, err)
	}
	out.Status = StatusConverted

	chunks, err := chunker.Split(hash, converted.Markdown, chunkSize, chunkOverlap)
	if err != nil {
		return fail(out, fmt.Errorf("chunking %s: %w", displayName, err))
	}
	for i := range chunks {
		chunks[i].PageNum = converted.PageOf(chunks[i].LineRange[0])
	}
	out.Status = StatusChunked
	out.ChunkCount = len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fail(out, fmt.Errorf("embedding %s: %w", displayName, err))
	}
	if len(vectors) != len(chunks) {
		return fail(out, fmt.Errorf("embedding %s: got %d vectors for %d chunks", displayName, len(vectors), len(chunks)))
	}
	out.Status = StatusEmbedded

	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{ChunkID: c.ID, Vector: vectors[i]}
	}
	idx, err := vectorindex.Build(hash, records)
	if err != nil {
		return fail(out, fmt.Errorf("indexing %s: %w", displayName, err))
	}
	if err := idx.Save(p.paths.IndexDir()); err != nil {
		return fail(out, err)
	}

	// Manifest last: ArtifactsExist requires both files, so a crash
	// between the two writes re-runs the document instead of serving a
	// stale manifest.
	if err := p.paths.SaveManifest(&store.Manifest{
		ContentHash: hash,
		DisplayName: displayName,
		CompanyName: req.CompanyName,
		Chunks:      chunks,
	}); err != nil {
		return fail(out, err)
	}

	if err := p.register(ctx, out, req.CompanyName); err != nil {
		return fail(out, err)
	}
	out.Status = StatusIndexed
	p.logger.Info("document indexed",
		zap.String("document", displayName),
		zap.String("content_hash", hash),
		zap.Int("chunks", len(chunks)))
	return out
}

func (p *Pipeline) register(ctx context.Context, out Outcome, companyName string) error {
	if p.catalog == nil {
		return nil
	}
	return p.catalog.Upsert(ctx, catalog.Document{
		ContentHash: out.ContentHash,
		DisplayName: out.DisplayName,
		CompanyName: companyName,
		OriginPath:  out.Path,
		ChunkCount:  out.ChunkCount,
	})
}

func fail(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	out.Detail = err.Error()
	return out
}
