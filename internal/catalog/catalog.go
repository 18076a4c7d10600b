package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no document matches a lookup.
var ErrNotFound = errors.New("catalog: document not found")

// Document is one registered source document. ContentHash is the identity
// key; a renamed file with identical bytes is the same document, a
// changed file is a new one.
type Document struct {
	ContentHash string
	DisplayName string
	CompanyName string
	OriginPath  string
	ChunkCount  int
	CreatedAt   time.Time
}

// Catalog is the SQLite registry of ingested documents. It records
// metadata only; chunk text and vectors live in the content-addressed
// artifact store.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at the given path.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return c, nil
}

// OpenMemory creates an in-memory catalog (useful for testing).
func OpenMemory() (*Catalog, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory catalog: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return c, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) migrate() error {
	_, err := c.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    content_hash TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    company_name TEXT NOT NULL DEFAULT '',
    origin_path  TEXT NOT NULL DEFAULT '',
    chunk_count  INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_documents_display_name ON documents(display_name);
CREATE INDEX IF NOT EXISTS idx_documents_company_name ON documents(company_name);
`

// Upsert registers a document, replacing metadata for an existing content
// hash wholesale.
func (c *Catalog) Upsert(ctx context.Context, doc Document) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (content_hash, display_name, company_name, origin_path, chunk_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			display_name = excluded.display_name,
			company_name = excluded.company_name,
			origin_path  = excluded.origin_path,
			chunk_count  = excluded.chunk_count`,
		doc.ContentHash, doc.DisplayName, doc.CompanyName, doc.OriginPath, doc.ChunkCount)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ContentHash, err)
	}
	return nil
}

// Get returns the document registered under the given content hash.
func (c *Catalog) Get(ctx context.Context, contentHash string) (*Document, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT content_hash, display_name, company_name, origin_path, chunk_count, created_at
		FROM documents WHERE content_hash = ?`, contentHash)
	return scanDocument(row)
}

// List returns all registered documents ordered by display name.
func (c *Catalog) List(ctx context.Context) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT content_hash, display_name, company_name, origin_path, chunk_count, created_at
		FROM documents ORDER BY display_name, content_hash`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// FindByName resolves a product or document name to registered documents
// using case-insensitive substring matching against both the display name
// and the company tag.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]Document, error) {
	pattern := "%" + name + "%"
	rows, err := c.db.QueryContext(ctx, `
		SELECT content_hash, display_name, company_name, origin_path, chunk_count, created_at
		FROM documents
		WHERE display_name LIKE ? COLLATE NOCASE OR company_name LIKE ? COLLATE NOCASE
		ORDER BY display_name, content_hash`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("finding documents by name %q: %w", name, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (*Document, error) {
	var doc Document
	var createdAt string
	err := s.Scan(&doc.ContentHash, &doc.DisplayName, &doc.CompanyName,
		&doc.OriginPath, &doc.ChunkCount, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning document row: %w", err)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		doc.CreatedAt = t
	}
	return &doc, nil
}

func scanDocument(row *sql.Row) (*Document, error) { return scanRow(row) }

func scanDocumentRows(rows *sql.Rows) (*Document, error) { return scanRow(rows) }
