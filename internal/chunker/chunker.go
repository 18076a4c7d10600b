package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// Default window parameters, expressed in source lines.
const (
	DefaultChunkSize    = 30
	DefaultChunkOverlap = 5
)

// ErrInvalidParameter is returned when chunking parameters are rejected
// before any work is done: non-positive size or overlap, or an overlap
// that is not strictly smaller than the size.
var ErrInvalidParameter = errors.New("chunker: invalid parameter")

// Chunk is a contiguous slice of a document's normalized text. LineRange
// is 1-based and inclusive, recorded against the original line numbering.
// SectionPath lists the heading titles enclosing the chunk's first line,
// outermost first.
type Chunk struct {
	ID          string   `json:"chunk_id"`
	LineRange   [2]int   `json:"line_range"`
	Text        string   `json:"text"`
	SectionPath []string `json:"section_path,omitempty"`
	PageNum     int      `json:"page_num,omitempty"`
}

// Validate checks window parameters without chunking anything.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidParameter, size)
	}
	if overlap <= 0 {
		return fmt.Errorf("%w: chunk_overlap %d must be positive", ErrInvalidParameter, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d", ErrInvalidParameter, overlap, size)
	}
	return nil
}

// Split cuts text into overlapping line windows of at most size lines,
// each window starting size-overlap lines after the previous one. The
// final window may be shorter; chunking stops once a window reaches the
// last line. Chunk IDs are derived from the owning document's content
// hash and the chunk ordinal, so identical input always produces an
// identical chunk set.
func Split(contentHash, text string, size, overlap int) ([]Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	total := len(lines)

	headings := extractHeadings([]byte(text))

	var chunks []Chunk
	step := size - overlap
	for i := 0; i < total; i += step {
		start := i + 1 // 1-based
		end := i + size
		if end > total {
			end = total
		}

		chunks = append(chunks, Chunk{
			ID:          fmt.Sprintf("%s_%d", contentHash, len(chunks)),
			LineRange:   [2]int{start, end},
			Text:        strings.Join(lines[i:end], "\n"),
			SectionPath: sectionPathAt(headings, start),
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}
