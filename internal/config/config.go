// Package config loads and validates seekd configuration.
//
// Precedence, lowest to highest: built-in defaults, seekd.yaml, environment
// variables. A .env file in the working directory is loaded before the
// environment is read. Unknown environment variables are ignored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete seekd configuration. A Config handed to a component
// is treated as an immutable snapshot; reloads install a new snapshot.
type Config struct {
	DataDir  string         `yaml:"data_dir" json:"data_dir"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Embed    EmbedConfig    `yaml:"embeddings" json:"embeddings"`
	LLM      LLMConfig      `yaml:"llm" json:"llm"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
	LogLevel string         `yaml:"log_level" json:"log_level"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace" json:"shutdown_grace"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// SearchConfig configures hybrid search fusion.
type SearchConfig struct {
	// KeywordWeight and SemanticWeight must sum to 1.0.
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// RRFConstant is the fusion smoothing parameter k (default: 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`

	// Timeout bounds a single search request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// IndexConfig configures the ingestion pipeline.
type IndexConfig struct {
	// Include and Exclude are glob patterns with ** semantics, applied to
	// paths relative to each source root.
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`

	// MaxFileSize caps indexable file size in bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`

	// BatchSize is the lexical write batch size.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// MaxConcurrentSources is the global cap on parallel ingestion passes.
	MaxConcurrentSources int `yaml:"max_concurrent_sources" json:"max_concurrent_sources"`

	// ChunkSize is the maximum chunk character budget.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the overlap window between successive chunks.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// VerifyHash enables content-hash comparison during incremental passes
	// for filesystems with unreliable mtimes.
	VerifyHash bool `yaml:"verify_hash" json:"verify_hash"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	// Provider is "ollama" or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// LLMConfig configures the active LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	Host     string `yaml:"host" json:"host"`
	APIKey   string `yaml:"-" json:"-"`
}

// WatchConfig configures the filesystem watcher.
type WatchConfig struct {
	// Debounce is the quiescence window before a reindex pass triggers.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir:  filepath.Join(home, ".seekd"),
		LogLevel: "info",
		Server: ServerConfig{
			Port:           8674,
			ShutdownGrace:  10 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			KeywordWeight:  0.4,
			SemanticWeight: 0.6,
			RRFConstant:    60,
			DefaultLimit:   10,
			MaxLimit:       100,
			Timeout:        5 * time.Second,
		},
		Index: IndexConfig{
			Exclude: []string{
				".git/**", "**/.git/**",
				"node_modules/**", "**/node_modules/**",
				"vendor/**", "**/vendor/**",
				"dist/**", "**/dist/**",
				"build/**", "**/build/**",
				".venv/**", "**/.venv/**",
				"__pycache__/**", "**/__pycache__/**",
			},
			MaxFileSize:          2 * 1024 * 1024,
			BatchSize:            1000,
			MaxConcurrentSources: 4,
			ChunkSize:            2048,
			ChunkOverlap:         256,
		},
		Embed: EmbedConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  32,
			OllamaHost: "http://localhost:11434",
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1",
			Host:     "http://localhost:11434",
		},
		Watch: WatchConfig{
			Debounce: 3 * time.Second,
		},
	}
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result. A missing file is not an error; the
// defaults apply.
func Load(path string) (*Config, error) {
	// .env is best-effort; absence is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies SEEKD_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("SEEKD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SEEKD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SEEKD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SEEKD_KEYWORD_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.KeywordWeight = w
		}
	}
	if v := os.Getenv("SEEKD_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("SEEKD_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("SEEKD_EMBED_MODEL"); v != "" {
		c.Embed.Model = v
	}
	if v := os.Getenv("SEEKD_EMBED_PROVIDER"); v != "" {
		c.Embed.Provider = v
	}
	if v := os.Getenv("SEEKD_OLLAMA_HOST"); v != "" {
		c.Embed.OllamaHost = v
		if c.LLM.Provider == "ollama" {
			c.LLM.Host = v
		}
	}
	if v := os.Getenv("SEEKD_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("SEEKD_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SEEKD_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	sum := c.Search.KeywordWeight + c.Search.SemanticWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("search weights must sum to 1.0, got %.3f", sum)
	}
	if c.Search.KeywordWeight < 0 || c.Search.SemanticWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size)")
	}
	if c.Index.MaxConcurrentSources <= 0 {
		return fmt.Errorf("max_concurrent_sources must be positive")
	}
	return nil
}

// DatabasePath returns the metadata store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "seekd.db")
}

// LexicalIndexPath returns the bleve index directory.
func (c *Config) LexicalIndexPath() string {
	return filepath.Join(c.DataDir, "lexical.bleve")
}

// VectorStorePath returns the chromem persistence directory.
func (c *Config) VectorStorePath() string {
	return filepath.Join(c.DataDir, "vectors")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "seekd.log")
}
