package config

import (
	"github.com/ziadkadry99/ragsearch/internal/chunker"
	"github.com/ziadkadry99/ragsearch/internal/llm"
	"github.com/ziadkadry99/ragsearch/internal/pipeline"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			CORSOrigins:    []string{"*"},
			TimeoutSeconds: 120,
		},
		LLM: ProviderConfig{
			Provider: "qwen",
			Model:    string(llm.DefaultModel),
		},
		Embedding: ProviderConfig{
			Provider: "qwen",
			Model:    "text-embedding-v3",
		},
		Rerank: RerankConfig{
			Enabled: true,
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			Mode:      string(retriever.ModeHybrid),
			TopK:      retriever.DefaultTopK,
			Overfetch: retriever.DefaultOverfetch,
		},
		Ingest: IngestConfig{
			Include:      pipeline.DefaultIncludePatterns,
			Concurrency:  4,
			SkipExisting: true,
		},
	}
}
