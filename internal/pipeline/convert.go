package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConvertResult is the normalized Markdown form of a source document.
// PageStarts holds the 1-based line number where each page begins, for
// formats that carry page boundaries; empty for plain text formats.
type ConvertResult struct {
	Markdown   string
	PageStarts []int
}

// PageOf maps a line number back to its 1-based page. Returns 0 when the
// source format has no pages.
func (r *ConvertResult) PageOf(line int) int {
	if len(r.PageStarts) == 0 {
		return 0
	}
	// First page whose start is past the line, minus one.
	i := sort.SearchInts(r.PageStarts, line+1)
	return i
}

// Converter normalizes one source format to Markdown.
type Converter interface {
	// Supports reports whether this converter handles the file extension.
	Supports(path string) bool
	Convert(ctx context.Context, path string) (*ConvertResult, error)
}

// TextConverter passes Markdown and plain-text files through unchanged,
// aside from normalizing line endings.
type TextConverter struct{}

func (TextConverter) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

func (TextConverter) Convert(_ context.Context, path string) (*ConvertResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	markdown := strings.ReplaceAll(string(data), "\r\n", "\n")
	return &ConvertResult{Markdown: markdown}, nil
}

// converterFor picks the first converter claiming the path.
func converterFor(converters []Converter, path string) (Converter, error) {
	for _, c := range converters {
		if c.Supports(path) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no converter for %s", filepath.Base(path))
}
