// Package config provides configuration loading and structs for the Kotae engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Sources    SourcesConfig    `yaml:"sources"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Query      QueryConfig      `yaml:"query"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the data directory for the chunk catalog and indices.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SourcesConfig holds the source material directories.
type SourcesConfig struct {
	PDFDir        string `yaml:"pdf_dir"`
	TranscriptDir string `yaml:"transcript_dir"`
}

// EmbeddingConfig holds embedder settings. Provider selects the adapter:
// "openai" (default), "onnx" (local model, CGO build), or "mock" (tests).
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	// ONNX-only settings.
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
	CacheSize int    `yaml:"cache_size"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ChunkingConfig holds chunk boundary settings for both modalities.
type ChunkingConfig struct {
	ChunkMaxSize        int     `yaml:"chunk_max_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	VideoMaxWords       int     `yaml:"video_max_words"`
	VideoMaxSpanSeconds float64 `yaml:"video_max_span_seconds"`
}

// QueryConfig holds retrieval, fusion, and assembly settings.
// RelevanceThreshold is a pointer so an explicit 0 (keep everything) can be
// told apart from the option being absent; Parse fills in the default.
type QueryConfig struct {
	RelevanceThreshold *float64      `yaml:"relevance_threshold"`
	MaxResults         int           `yaml:"max_results"`
	LexicalWeight      float64       `yaml:"lexical_weight"`
	VectorWeight       float64       `yaml:"vector_weight"`
	TopKCandidates     int           `yaml:"top_k_candidates"`
	ContextBudget      int           `yaml:"context_budget"`
	Timeout            time.Duration `yaml:"query_timeout"`
}

// WatchConfig holds source directory watch settings.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, rejects unknown keys,
// applies defaults, validates ranges, and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Sources.PDFDir = expandPath(cfg.Sources.PDFDir, configDir)
	cfg.Sources.TranscriptDir = expandPath(cfg.Sources.TranscriptDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	return cfg, nil
}

// Parse decodes cfg from YAML bytes. Unknown keys are rejected at load time
// so a typoed option never silently falls back to a default.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every recognized option is within its valid range.
func (c *Config) Validate() error {
	q := c.Query
	if q.RelevanceThreshold == nil {
		return fmt.Errorf("relevance_threshold is not set")
	}
	if t := *q.RelevanceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("relevance_threshold must be in [0,1], got %g", t)
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", q.MaxResults)
	}
	if q.LexicalWeight < 0 || q.VectorWeight < 0 {
		return fmt.Errorf("weights must be non-negative, got lexical=%g vector=%g", q.LexicalWeight, q.VectorWeight)
	}
	if q.LexicalWeight == 0 && q.VectorWeight == 0 {
		return fmt.Errorf("lexical_weight and vector_weight cannot both be zero")
	}
	if q.TopKCandidates <= 0 {
		return fmt.Errorf("top_k_candidates must be positive, got %d", q.TopKCandidates)
	}
	if q.ContextBudget <= 0 {
		return fmt.Errorf("context_budget must be positive, got %d", q.ContextBudget)
	}
	if q.Timeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", q.Timeout)
	}
	ch := c.Chunking
	if ch.ChunkMaxSize <= 0 {
		return fmt.Errorf("chunk_max_size must be positive, got %d", ch.ChunkMaxSize)
	}
	if ch.ChunkOverlap < 0 || ch.ChunkOverlap >= ch.ChunkMaxSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_max_size), got %d", ch.ChunkOverlap)
	}
	if ch.VideoMaxWords <= 0 {
		return fmt.Errorf("video_max_words must be positive, got %d", ch.VideoMaxWords)
	}
	if ch.VideoMaxSpanSeconds <= 0 {
		return fmt.Errorf("video_max_span_seconds must be positive, got %g", ch.VideoMaxSpanSeconds)
	}
	e := c.Embedding
	if e.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", e.Dimensions)
	}
	if e.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive, got %d", e.BatchSize)
	}
	if e.MaxConcurrency <= 0 {
		return fmt.Errorf("embedding max_concurrency must be positive, got %d", e.MaxConcurrency)
	}
	switch e.Provider {
	case "openai", "onnx", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q", e.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
