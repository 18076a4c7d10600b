package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/answer"
	"github.com/ziadkadry99/ragsearch/internal/catalog"
	"github.com/ziadkadry99/ragsearch/internal/config"
	"github.com/ziadkadry99/ragsearch/internal/embeddings"
	"github.com/ziadkadry99/ragsearch/internal/llm"
	"github.com/ziadkadry99/ragsearch/internal/pipeline"
	"github.com/ziadkadry99/ragsearch/internal/rerank"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
	"github.com/ziadkadry99/ragsearch/internal/store"
)

// app bundles the wired service components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	paths     store.Paths
	catalog   *catalog.Catalog
	retriever *retriever.Retriever
	composer  *answer.Composer
	pipeline  *pipeline.Pipeline
}

// loadConfig loads and validates the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newApp wires the full service from config and environment. Callers
// must Close the returned app.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	paths := store.Paths{BaseDir: cfg.DataDir}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	cat, err := catalog.Open(paths.CatalogPath())
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.Model)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	llmProvider, err := llm.NewProvider(cfg.LLM.Provider)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}
	model, err := llm.ParseModel(cfg.LLM.Model)
	if err != nil {
		cat.Close()
		return nil, err
	}

	rtr, err := retriever.NewFromStore(paths, embedder, newReranker(cfg, logger), logger)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		paths:     paths,
		catalog:   cat,
		retriever: rtr,
		composer:  answer.NewComposer(llmProvider, model, logger),
		pipeline: pipeline.New(paths, cat, embedder, logger,
			pipeline.WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
			pipeline.WithConcurrency(cfg.Ingest.Concurrency)),
	}, nil
}

// newReranker builds the Jina reranker when hybrid reranking is enabled
// and a key is present. Without a key, hybrid searches fall back to
// vector ordering.
func newReranker(cfg *config.Config, logger *zap.Logger) rerank.Reranker {
	if !cfg.Rerank.Enabled {
		return nil
	}
	apiKey := os.Getenv("JINA_API_KEY")
	if apiKey == "" {
		logger.Warn("rerank enabled but JINA_API_KEY is not set, hybrid search degrades to vector order")
		return nil
	}

	var opts []rerank.JinaOption
	if cfg.Rerank.Model != "" {
		opts = append(opts, rerank.WithModel(cfg.Rerank.Model))
	}
	if cfg.Rerank.BaseURL != "" {
		opts = append(opts, rerank.WithBaseURL(cfg.Rerank.BaseURL))
	}
	return rerank.NewJinaReranker(apiKey, opts...)
}

func (a *app) Close() {
	a.catalog.Close()
	_ = a.logger.Sync()
}
