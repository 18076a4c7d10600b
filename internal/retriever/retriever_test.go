package retriever

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/chunker"
	"github.com/ziadkadry99/ragsearch/internal/rerank"
	"github.com/ziadkadry99/ragsearch/internal/store"
	"github.com/ziadkadry99/ragsearch/internal/vectorindex"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, errors.New("no vector registered for " + t)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

type fakeReranker struct {
	results []rerank.Result
	err     error
	calls   int
	gotDocs []string
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []string) ([]rerank.Result, error) {
	f.calls++
	f.gotDocs = candidates
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeReranker) Name() string { return "fake-reranker" }

// seedStore writes two indexed documents into a fresh store layout:
// an Acme pricing sheet and a Globex handbook.
func seedStore(t *testing.T) store.Paths {
	t.Helper()
	paths := store.Paths{BaseDir: t.TempDir()}

	docs := []struct {
		hash    string
		name    string
		company string
		chunks  []chunker.Chunk
		vectors [][]float32
	}{
		{
			hash: "aaa", name: "Acme Pricing", company: "Acme",
			chunks: []chunker.Chunk{
				{ID: "aaa_0", LineRange: [2]int{1, 30}, Text: "pricing tiers", SectionPath: []string{"Pricing"}, PageNum: 1},
				{ID: "aaa_1", LineRange: [2]int{26, 55}, Text: "refund policy", SectionPath: []string{"Pricing", "Refunds"}, PageNum: 2},
			},
			vectors: [][]float32{{1, 0, 0}, {0, 1, 0}},
		},
		{
			hash: "bbb", name: "Globex Handbook", company: "Globex",
			chunks: []chunker.Chunk{
				{ID: "bbb_0", LineRange: [2]int{1, 30}, Text: "vacation days", PageNum: 1},
				{ID: "bbb_1", LineRange: [2]int{26, 55}, Text: "expense reports", PageNum: 2},
			},
			vectors: [][]float32{{0, 0, 1}, {0.6, 0.8, 0}},
		},
	}

	for _, d := range docs {
		if err := paths.SaveManifest(&store.Manifest{
			ContentHash: d.hash,
			DisplayName: d.name,
			CompanyName: d.company,
			Chunks:      d.chunks,
		}); err != nil {
			t.Fatal(err)
		}
		records := make([]vectorindex.Record, len(d.chunks))
		for i, c := range d.chunks {
			records[i] = vectorindex.Record{ChunkID: c.ID, Vector: d.vectors[i]}
		}
		idx, err := vectorindex.Build(d.hash, records)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Save(paths.IndexDir()); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func newTestRetriever(t *testing.T, emb *fakeEmbedder, rr rerank.Reranker) *Retriever {
	t.Helper()
	r, err := NewFromStore(seedStore(t), emb, rr, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if r.DocumentCount() != 2 {
		t.Fatalf("loaded %d documents, want 2", r.DocumentCount())
	}
	return r
}

func TestSearchVectorMode(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"what do the tiers cost": {1, 0.2, 0},
	}}
	r := newTestRetriever(t, emb, nil)

	sources, err := r.Search(context.Background(), Request{
		Query: "what do the tiers cost",
		Mode:  ModeVector,
		TopK:  3,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("got %d sources, want 3", len(sources))
	}

	if sources[0].ChunkID != "aaa_0" || sources[1].ChunkID != "bbb_1" {
		t.Errorf("order = %s, %s; want aaa_0, bbb_1", sources[0].ChunkID, sources[1].ChunkID)
	}
	if sources[0].DocumentName != "Acme Pricing" || sources[0].PageNum != 1 {
		t.Errorf("first source metadata = %+v", sources[0])
	}
	for i, s := range sources {
		if s.VectorRank != i+1 {
			t.Errorf("source %d has VectorRank %d", i, s.VectorRank)
		}
		if s.Reranked {
			t.Errorf("vector mode set Reranked on %s", s.ChunkID)
		}
	}
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want 1", emb.calls)
	}
}

func TestSearchHybridRerankReorders(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"refunds": {1, 0.2, 0},
	}}
	// The reranker promotes the refund chunk past the vector winner.
	rr := &fakeReranker{results: []rerank.Result{
		{Index: 2, Score: 0.95},
		{Index: 0, Score: 0.40},
		{Index: 1, Score: 0.10},
	}}
	r := newTestRetriever(t, emb, rr)

	sources, err := r.Search(context.Background(), Request{
		Query: "refunds",
		Mode:  ModeHybrid,
		TopK:  2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Candidate pool is topK*overfetch, so all four chunks went to the
	// reranker even though only two come back.
	if len(rr.gotDocs) != 4 {
		t.Errorf("reranker saw %d candidates, want 4", len(rr.gotDocs))
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].ChunkID != "aaa_1" {
		t.Errorf("top source = %s, want aaa_1", sources[0].ChunkID)
	}
	if sources[1].ChunkID != "aaa_0" {
		t.Errorf("second source = %s, want aaa_0", sources[1].ChunkID)
	}

	// Vector-derived fields survive reranking untouched.
	if sources[0].RerankScore != 0.95 || !sources[0].Reranked {
		t.Errorf("top source rerank fields = %+v", sources[0])
	}
	if sources[0].Similarity >= sources[1].Similarity {
		t.Error("similarity should still reflect vector scores")
	}
	if sources[0].VectorRank <= sources[1].VectorRank {
		t.Error("vector ranks should be preserved from the merge order")
	}
}

func TestSearchHybridFallsBackWhenRerankerFails(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"anything": {1, 0.2, 0},
	}}
	rr := &fakeReranker{err: errors.New("rerank service down")}
	r := newTestRetriever(t, emb, rr)

	sources, err := r.Search(context.Background(), Request{
		Query: "anything",
		Mode:  ModeHybrid,
		TopK:  2,
	})
	if err != nil {
		t.Fatalf("Search should survive a reranker outage: %v", err)
	}
	if rr.calls != 1 {
		t.Errorf("reranker called %d times", rr.calls)
	}
	if sources[0].ChunkID != "aaa_0" || sources[1].ChunkID != "bbb_1" {
		t.Errorf("fallback order = %s, %s; want vector order aaa_0, bbb_1",
			sources[0].ChunkID, sources[1].ChunkID)
	}
	for _, s := range sources {
		if s.Reranked {
			t.Errorf("source %s marked reranked after outage", s.ChunkID)
		}
	}
}

func TestSearchFilterRestrictsScope(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"time off": {1, 0.2, 0},
	}}
	r := newTestRetriever(t, emb, nil)

	sources, err := r.Search(context.Background(), Request{
		Query:  "time off",
		Mode:   ModeVector,
		TopK:   10,
		Filter: "GLOBEX",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, s := range sources {
		if s.CompanyName != "Globex" {
			t.Errorf("filtered search leaked %s from %s", s.ChunkID, s.DocumentName)
		}
	}
	if len(sources) != 2 {
		t.Errorf("got %d sources, want the 2 Globex chunks", len(sources))
	}
}

func TestSearchFilterWithNoMatchDoesNotWiden(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	r := newTestRetriever(t, emb, nil)

	_, err := r.Search(context.Background(), Request{
		Query:  "anything",
		Mode:   ModeVector,
		Filter: "initech",
	})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("got %v, want ErrEmptyCorpus", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for an empty scope", emb.calls)
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	r := New(emb, nil, zap.NewNop())

	_, err := r.Search(context.Background(), Request{Query: "anything"})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("got %v, want ErrEmptyCorpus", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times on empty corpus", emb.calls)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	r := New(&fakeEmbedder{}, nil, zap.NewNop())
	if _, err := r.Search(context.Background(), Request{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestReloadDocumentReplacesArtifacts(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {0, 0, 1}}}
	paths := seedStore(t)
	r, err := NewFromStore(paths, emb, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite document bbb with a single different chunk.
	if err := paths.SaveManifest(&store.Manifest{
		ContentHash: "bbb",
		DisplayName: "Globex Handbook v2",
		Chunks: []chunker.Chunk{
			{ID: "bbb_0", LineRange: [2]int{1, 10}, Text: "remote work policy"},
		},
	}); err != nil {
		t.Fatal(err)
	}
	idx, err := vectorindex.Build("bbb", []vectorindex.Record{
		{ChunkID: "bbb_0", Vector: []float32{0, 0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(paths.IndexDir()); err != nil {
		t.Fatal(err)
	}

	if err := r.ReloadDocument(paths, "bbb"); err != nil {
		t.Fatal(err)
	}

	sources, err := r.Search(context.Background(), Request{Query: "q", Filter: "v2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Text != "remote work policy" {
		t.Errorf("reloaded document not served: %+v", sources)
	}
}
