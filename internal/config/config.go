// Package config loads engine configuration from YAML files and
// environment variables.
//
// Precedence, lowest to highest: built-in defaults, the user config
// (~/.config/industry-assistant/config.yaml), the project config
// (.industry-assistant.yaml in the working directory), then IA_*
// environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	"github.com/zhagnzhenfei/industry-assistant/internal/logging"
	"github.com/zhagnzhenfei/industry-assistant/internal/rerank"
)

// Config is the complete engine configuration.
type Config struct {
	Version    int            `yaml:"version"`
	Search     SearchConfig   `yaml:"search"`
	Embeddings embed.Config   `yaml:"embeddings"`
	Rerank     RerankConfig   `yaml:"rerank"`
	Synonyms   SynonymsConfig `yaml:"synonyms"`
	Logging    logging.Config `yaml:"logging"`
}

// SearchConfig tunes the retrieval pipeline.
type SearchConfig struct {
	// LexicalWeight and DenseWeight are the store fusion weights.
	LexicalWeight float64 `yaml:"lexical_weight"`
	DenseWeight   float64 `yaml:"dense_weight"`

	// VectorWeight blends vector similarity against token overlap
	// during reranking.
	VectorWeight float64 `yaml:"vector_weight"`

	// SimilarityThreshold drops reranked chunks below this score.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// TopK caps the candidate pool per search.
	TopK int `yaml:"top_k"`

	// PageSize is the default result page size.
	PageSize int `yaml:"page_size"`

	// Relaxation thresholds for the zero-hit retry.
	InitialMinMatch        float64 `yaml:"initial_min_match"`
	RelaxedMinMatch        float64 `yaml:"relaxed_min_match"`
	InitialSimilarityFloor float64 `yaml:"initial_similarity_floor"`
	RelaxedSimilarityFloor float64 `yaml:"relaxed_similarity_floor"`
}

// RerankConfig configures the optional external reranker.
type RerankConfig struct {
	// Enabled turns the external reranker on.
	Enabled bool          `yaml:"enabled"`
	Client  rerank.Config `yaml:",inline"`
}

// SynonymsConfig configures synonym dictionary reloading.
type SynonymsConfig struct {
	// File is a synonym dictionary file watched for changes.
	File string `yaml:"file"`

	// RedisAddr enables periodic reloads from redis when set.
	RedisAddr string `yaml:"redis_addr"`
	// RedisKey is the dictionary key, default "ia:synonyms".
	RedisKey string `yaml:"redis_key"`

	// MinLookups and MinInterval gate reload attempts.
	MinLookups  int64         `yaml:"min_lookups"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			LexicalWeight:          0.05,
			DenseWeight:            0.95,
			VectorWeight:           0.3,
			SimilarityThreshold:    0.2,
			TopK:                   1024,
			PageSize:               30,
			InitialMinMatch:        0.3,
			RelaxedMinMatch:        0.1,
			InitialSimilarityFloor: 0.1,
			RelaxedSimilarityFloor: 0.17,
		},
		Embeddings: embed.DefaultConfig(),
		Rerank: RerankConfig{
			Client: rerank.Config{Timeout: 10 * time.Second},
		},
		Synonyms: SynonymsConfig{
			RedisKey:    "ia:synonyms",
			MinLookups:  100,
			MinInterval: time.Hour,
		},
		Logging: logging.DefaultConfig(),
	}
}

// ProjectConfigName is the per-project config file name.
const ProjectConfigName = ".industry-assistant.yaml"

// UserConfigPath returns the user config location.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "industry-assistant", "config.yaml")
}

// Load builds the effective configuration for a project directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := UserConfigPath(); path != "" {
		if err := cfg.loadYAML(path, true); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}
	if err := cfg.loadYAML(filepath.Join(dir, ProjectConfigName), true); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads one explicit config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path, false); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML merges one YAML file into the config. A missing file is
// fine when optional.
func (c *Config) loadYAML(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies IA_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IA_LEXICAL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("IA_DENSE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.DenseWeight = w
		}
	}
	if v := os.Getenv("IA_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("IA_SIMILARITY_THRESHOLD"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SimilarityThreshold = w
		}
	}
	if v := os.Getenv("IA_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("IA_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("IA_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("IA_EMBED_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("IA_RERANK_BASE_URL"); v != "" {
		c.Rerank.Enabled = true
		c.Rerank.Client.BaseURL = v
	}
	if v := os.Getenv("IA_RERANK_API_KEY"); v != "" {
		c.Rerank.Client.APIKey = v
	}
	if v := os.Getenv("IA_SYNONYM_REDIS_ADDR"); v != "" {
		c.Synonyms.RedisAddr = v
	}
	if v := os.Getenv("IA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c.Search.LexicalWeight < 0 || c.Search.DenseWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	sum := c.Search.LexicalWeight + c.Search.DenseWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("lexical_weight + dense_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be between 0 and 1, got %f", c.Search.VectorWeight)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.Search.PageSize)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "", "static", "openai", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'static', 'openai' or 'ollama', got %s", c.Embeddings.Provider)
	}

	if c.Rerank.Enabled && c.Rerank.Client.BaseURL == "" {
		return fmt.Errorf("rerank.base_url is required when rerank is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
