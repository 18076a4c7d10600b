package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// indexFile is the on-disk form. Vectors are flattened row-major so the
// gob payload stays a single contiguous slice.
type indexFile struct {
	ContentHash string
	Dimension   int
	ChunkIDs    []string
	Vectors     []float32
}

// Save writes the index to dir as <content_hash>.index. The file is
// written to a temp name and renamed so readers never see a partial
// index.
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	file := indexFile{
		ContentHash: idx.contentHash,
		Dimension:   idx.dimension,
		ChunkIDs:    idx.chunkIDs,
		Vectors:     make([]float32, 0, len(idx.vectors)*idx.dimension),
	}
	for _, v := range idx.vectors {
		file.Vectors = append(file.Vectors, v...)
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(file); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}

	final := filepath.Join(dir, idx.contentHash+".index")
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// Load reads one index file written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var file indexFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", filepath.Base(path), err)
	}
	if file.Dimension > 0 && len(file.Vectors) != len(file.ChunkIDs)*file.Dimension {
		return nil, fmt.Errorf("index %s is corrupt: %d floats for %d chunks of dimension %d",
			filepath.Base(path), len(file.Vectors), len(file.ChunkIDs), file.Dimension)
	}

	idx := &Index{
		contentHash: file.ContentHash,
		dimension:   file.Dimension,
		vectors:     make([][]float32, len(file.ChunkIDs)),
		chunkIDs:    file.ChunkIDs,
	}
	for i := range file.ChunkIDs {
		idx.vectors[i] = file.Vectors[i*file.Dimension : (i+1)*file.Dimension]
	}
	return idx, nil
}

// LoadDir loads every *.index file in dir, keyed by content hash. A
// missing directory yields an empty map.
func LoadDir(dir string) (map[string]*Index, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]*Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index dir: %w", err)
	}

	indexes := make(map[string]*Index)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".index") {
			continue
		}
		idx, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		indexes[idx.contentHash] = idx
	}
	return indexes, nil
}
