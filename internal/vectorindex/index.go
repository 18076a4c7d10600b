package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmpty is returned when an index is queried before any successful
// build.
var ErrEmpty = errors.New("vectorindex: index is empty")

// DimensionError reports a record whose vector length disagrees with the
// rest of the build set.
type DimensionError struct {
	ChunkID string
	Want    int
	Got     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vectorindex: chunk %s has dimension %d, want %d", e.ChunkID, e.Got, e.Want)
}

// Record pairs a chunk with its embedding vector.
type Record struct {
	ChunkID string
	Vector  []float32
}

// Hit is one nearest-neighbor result. Similarity is the inner product of
// L2-normalized vectors, i.e. cosine similarity.
type Hit struct {
	ChunkID    string
	Similarity float32
}

// Index is a flat inner-product index over the embedding records of one
// document. Vectors are L2-normalized at build time so inner product
// equals cosine similarity. The position to chunk-id mapping is fixed
// for the index lifetime; reprocessing a document builds a whole new
// index.
type Index struct {
	contentHash string
	dimension   int
	vectors     [][]float32
	chunkIDs    []string
}

// Build constructs an index from the full record set in one pass. All
// vectors must share one dimension.
func Build(contentHash string, records []Record) (*Index, error) {
	idx := &Index{contentHash: contentHash}
	if len(records) == 0 {
		return idx, nil
	}

	idx.dimension = len(records[0].Vector)
	idx.vectors = make([][]float32, 0, len(records))
	idx.chunkIDs = make([]string, 0, len(records))

	for _, rec := range records {
		if len(rec.Vector) != idx.dimension {
			return nil, &DimensionError{ChunkID: rec.ChunkID, Want: idx.dimension, Got: len(rec.Vector)}
		}
		idx.vectors = append(idx.vectors, normalize(rec.Vector))
		idx.chunkIDs = append(idx.chunkIDs, rec.ChunkID)
	}
	return idx, nil
}

// ContentHash identifies the document this index serves.
func (idx *Index) ContentHash() string { return idx.contentHash }

// Dimension returns the vector length, 0 for an empty index.
func (idx *Index) Dimension() int { return idx.dimension }

// Len returns the number of indexed vectors.
func (idx *Index) Len() int { return len(idx.vectors) }

// Query returns up to topK hits ordered by similarity descending. Equal
// similarities keep their original insertion order. The query vector is
// normalized before scoring.
func (idx *Index) Query(vector []float32, topK int) ([]Hit, error) {
	if len(idx.vectors) == 0 {
		return nil, ErrEmpty
	}
	if len(vector) != idx.dimension {
		return nil, &DimensionError{ChunkID: "query", Want: idx.dimension, Got: len(vector)}
	}
	if topK <= 0 {
		return nil, nil
	}

	q := normalize(vector)
	hits := make([]Hit, len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = Hit{ChunkID: idx.chunkIDs[i], Similarity: dot(q, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// normalize returns a unit-length copy of v. A zero vector is returned
// unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
