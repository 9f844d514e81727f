package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/usr/local/var/kotae/data"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.MaxConcurrency == 0 {
		cfg.Embedding.MaxConcurrency = 4
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 700
	}
	if cfg.Chunking.ChunkMaxSize == 0 {
		cfg.Chunking.ChunkMaxSize = 1200
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 150
	}
	if cfg.Chunking.VideoMaxWords == 0 {
		cfg.Chunking.VideoMaxWords = 120
	}
	if cfg.Chunking.VideoMaxSpanSeconds == 0 {
		cfg.Chunking.VideoMaxSpanSeconds = 60
	}
	if cfg.Query.RelevanceThreshold == nil {
		threshold := 0.35
		cfg.Query.RelevanceThreshold = &threshold
	}
	if cfg.Query.MaxResults == 0 {
		cfg.Query.MaxResults = 5
	}
	if cfg.Query.LexicalWeight == 0 && cfg.Query.VectorWeight == 0 {
		cfg.Query.LexicalWeight = 0.4
		cfg.Query.VectorWeight = 0.6
	}
	if cfg.Query.TopKCandidates == 0 {
		cfg.Query.TopKCandidates = 50
	}
	if cfg.Query.ContextBudget == 0 {
		cfg.Query.ContextBudget = 6000
	}
	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = 30 * time.Second
	}
}
