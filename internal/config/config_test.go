package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Retrieval.Mode != "hybrid" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ragsearch.yml")
	body := `
data_dir: /srv/rag
server:
  port: 9999
retrieval:
  mode: vector
  top_k: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/rag" || cfg.Server.Port != 9999 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Retrieval.Mode != "vector" || cfg.Retrieval.TopK != 3 {
		t.Errorf("retrieval overrides not applied: %+v", cfg.Retrieval)
	}
	// Untouched sections keep defaults.
	if cfg.Chunking.Size != 30 || cfg.Chunking.Overlap != 5 {
		t.Errorf("chunking defaults lost: %+v", cfg.Chunking)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ragsearch.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAGSEARCH_SERVER__PORT", "7777")
	t.Setenv("RAGSEARCH_DATA_DIR", "/env/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("env port override not applied: %d", cfg.Server.Port)
	}
	if cfg.DataDir != "/env/data" {
		t.Errorf("env data_dir override not applied: %q", cfg.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "gemini" }, "llm.provider"},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = 30 }, "overlap"},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }, "chunking"},
		{"bad mode", func(c *Config) { c.Retrieval.Mode = "keyword" }, "retrieval.mode"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }, "concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ragsearch.yml")
	cfg := DefaultConfig()
	cfg.DataDir = "/custom"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DataDir != "/custom" {
		t.Errorf("data_dir = %q after round trip", loaded.DataDir)
	}
}
