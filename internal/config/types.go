package config

// Config is the top-level service configuration, corresponding to
// .ragsearch.yml.
type Config struct {
	DataDir   string          `yaml:"data_dir" koanf:"data_dir"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	LLM       ProviderConfig  `yaml:"llm" koanf:"llm"`
	Embedding ProviderConfig  `yaml:"embedding" koanf:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank" koanf:"rerank"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	CORSOrigins    []string `yaml:"cors_origins" koanf:"cors_origins"`
	TimeoutSeconds int      `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// ProviderConfig selects an external model provider and model.
type ProviderConfig struct {
	Provider string `yaml:"provider" koanf:"provider"`
	Model    string `yaml:"model" koanf:"model"`
}

// RerankConfig controls the hybrid-search reranker.
type RerankConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Model   string `yaml:"model" koanf:"model"`
	BaseURL string `yaml:"base_url" koanf:"base_url"`
}

// ChunkingConfig holds the line-window parameters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig holds search defaults. RewriteQuery spends an extra
// completion per chat request to turn the question into a search query.
type RetrievalConfig struct {
	Mode         string `yaml:"mode" koanf:"mode"`
	TopK         int    `yaml:"top_k" koanf:"top_k"`
	Overfetch    int    `yaml:"overfetch" koanf:"overfetch"`
	RewriteQuery bool   `yaml:"rewrite_query" koanf:"rewrite_query"`
}

// IngestConfig controls batch document ingestion.
type IngestConfig struct {
	Include      []string `yaml:"include" koanf:"include"`
	Concurrency  int      `yaml:"concurrency" koanf:"concurrency"`
	SkipExisting bool     `yaml:"skip_existing" koanf:"skip_existing"`
}
