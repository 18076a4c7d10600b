package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths describes the content-addressed artifact layout under a base data
// directory. Every artifact for a document is named by the document's
// content hash, so reprocessing the same bytes lands on the same files.
type Paths struct {
	BaseDir string
}

// DocumentsDir holds raw source documents dropped in for batch ingestion.
func (p Paths) DocumentsDir() string { return filepath.Join(p.BaseDir, "documents") }

// MarkdownDir holds the converted Markdown text per document.
func (p Paths) MarkdownDir() string { return filepath.Join(p.BaseDir, "markdown") }

// ManifestDir holds the JSON chunk manifests per document.
func (p Paths) ManifestDir() string { return filepath.Join(p.BaseDir, "manifests") }

// IndexDir holds the serialized vector indexes per document.
func (p Paths) IndexDir() string { return filepath.Join(p.BaseDir, "indexes") }

// CatalogPath is the SQLite document registry.
func (p Paths) CatalogPath() string { return filepath.Join(p.BaseDir, "catalog.db") }

func (p Paths) MarkdownPath(contentHash string) string {
	return filepath.Join(p.MarkdownDir(), contentHash+".md")
}

func (p Paths) ManifestPath(contentHash string) string {
	return filepath.Join(p.ManifestDir(), contentHash+".json")
}

func (p Paths) IndexPath(contentHash string) string {
	return filepath.Join(p.IndexDir(), contentHash+".index")
}

// EnsureDirs creates the artifact directories if they do not exist.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.DocumentsDir(), p.MarkdownDir(), p.ManifestDir(), p.IndexDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// WriteMarkdown stores the converted Markdown body for a document.
func (p Paths) WriteMarkdown(contentHash, markdown string) error {
	if err := os.MkdirAll(p.MarkdownDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.MarkdownPath(contentHash), []byte(markdown), 0o644)
}

// ArtifactsExist reports whether a complete artifact set (chunk manifest
// and vector index) exists for the given content hash. Used for the cheap
// skip decision before any expensive processing step.
func (p Paths) ArtifactsExist(contentHash string) bool {
	if _, err := os.Stat(p.ManifestPath(contentHash)); err != nil {
		return false
	}
	if _, err := os.Stat(p.IndexPath(contentHash)); err != nil {
		return false
	}
	return true
}
