package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ziadkadry99/ragsearch/internal/chunker"
)

// Manifest is the durable JSON chunk manifest for one document. The shape
// is an external contract: readers must tolerate unknown fields and must
// not assume a fixed chunk count.
type Manifest struct {
	ContentHash string          `json:"content_hash"`
	DisplayName string          `json:"display_name"`
	CompanyName string          `json:"company_name,omitempty"`
	Chunks      []chunker.Chunk `json:"chunks"`
}

// SaveManifest writes the manifest to its content-addressed path,
// replacing any previous manifest for the same hash wholesale.
func (p Paths) SaveManifest(m *Manifest) error {
	if m.ContentHash == "" {
		return fmt.Errorf("manifest for %q has no content hash", m.DisplayName)
	}
	if err := os.MkdirAll(p.ManifestDir(), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling manifest %s: %w", m.ContentHash, err)
	}
	return os.WriteFile(p.ManifestPath(m.ContentHash), data, 0o644)
}

// LoadManifest reads one chunk manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.ContentHash == "" {
		return nil, fmt.Errorf("manifest %s is missing content_hash", path)
	}
	return &m, nil
}

// LoadManifests reads every chunk manifest under the manifest directory,
// ordered by content hash for stable corpus iteration. A missing
// directory yields an empty slice.
func (p Paths) LoadManifests() ([]*Manifest, error) {
	entries, err := os.ReadDir(p.ManifestDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var manifests []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := LoadManifest(filepath.Join(p.ManifestDir(), e.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].ContentHash < manifests[j].ContentHash
	})
	return manifests, nil
}
