package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	// CorpusDir is the directory scanned recursively for PDF files.
	CorpusDir string `yaml:"corpus_dir"`

	// IndexDir is the directory holding the persisted vector index.
	IndexDir string `yaml:"index_dir"`

	Chunking  ChunkingConfig  `yaml:"chunking"`
	OCR       OCRConfig       `yaml:"ocr"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ChunkingConfig configures how page text is split into chunks.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"` // max chunk length in characters (default 500)
	Overlap   int `yaml:"overlap"`    // characters shared between adjacent chunks (default 50)
}

// OCRConfig configures the scanned-page fallback.
type OCRConfig struct {
	// MinTextLen is the minimum trimmed character count for a page to be
	// considered machine-readable. Shorter pages are re-rendered and OCR'd.
	MinTextLen int `yaml:"min_text_len"`

	// Languages are Tesseract language codes, e.g. eng, hin.
	Languages []string `yaml:"languages"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"` // results handed to the synthesizer (default 5)

	// OverfetchFactor controls how many candidates are fetched before
	// metadata post-filtering: candidates = overfetch_factor * top_k.
	OverfetchFactor int `yaml:"overfetch_factor"`
}

// EmbedderConfig selects and configures the embedding function.
type EmbedderConfig struct {
	Type   string             `yaml:"type"` // "tfidf" (default) or "ollama"
	Dims   int                `yaml:"dims"` // tfidf vocabulary cap / declared ollama dimension
	Ollama *OllamaEmbedConfig `yaml:"ollama,omitempty"`
}

// OllamaEmbedConfig holds connection details for an Ollama embedding model.
type OllamaEmbedConfig struct {
	BaseURL string `yaml:"base_url"` // default http://localhost:11434/api
	Model   string `yaml:"model"`
}

// GeneratorConfig configures the text-generation backend. An empty Type
// means no backend: queries still run and answers degrade to an explicit
// unavailable message.
type GeneratorConfig struct {
	Type        string  `yaml:"type"` // "ollama" or "" (none)
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`  // default 512
	Temperature float32 `yaml:"temperature"` // default 0.1
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		CorpusDir: "data/raw",
		IndexDir:  "data/vectorized",
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Chunking.ChunkSize <= 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.Overlap <= 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize {
		cfg.Chunking.Overlap = cfg.Chunking.ChunkSize / 4
	}
	if cfg.OCR.MinTextLen <= 0 {
		cfg.OCR.MinTextLen = 10
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng", "hin"}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.OverfetchFactor <= 0 {
		cfg.Retrieval.OverfetchFactor = 3
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Dims <= 0 {
		cfg.Embedder.Dims = 4096
	}
	if cfg.Embedder.Type == "ollama" {
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedConfig{}
		}
		if cfg.Embedder.Ollama.BaseURL == "" {
			cfg.Embedder.Ollama.BaseURL = "http://localhost:11434/api"
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "nomic-embed-text"
		}
	}
	if cfg.Generator.Type == "ollama" && cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "http://localhost:11434/api"
	}
	if cfg.Generator.MaxTokens <= 0 {
		cfg.Generator.MaxTokens = 512
	}
	if cfg.Generator.Temperature <= 0 {
		cfg.Generator.Temperature = 0.1
	}
}
