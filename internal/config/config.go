// Package config loads hippocampus settings. Values come from defaults, then
// an optional YAML file, then HIPPOCAMPUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agency1/hippocampus/internal/brain"
	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/logging"
	"github.com/agency1/hippocampus/internal/persist"
)

// Config holds all settings.
type Config struct {
	Memory    MemoryConfig     `yaml:"memory"`
	Embedding embedding.Config `yaml:"embedding"`
	Processor ProcessorConfig  `yaml:"processor"`
	Log       logging.Config   `yaml:"log"`
}

// MemoryConfig configures the memory store.
type MemoryConfig struct {
	Capacity            int           `yaml:"capacity"`
	Backend             string        `yaml:"backend"` // json, sqlite, postgres
	Path                string        `yaml:"path"`
	DSN                 string        `yaml:"dsn"`
	EmbedTimeout        time.Duration `yaml:"embed_timeout"`
	TopK                int           `yaml:"top_k"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	ConsolidateAge      time.Duration `yaml:"consolidate_age"`
	ConsolidateInterval time.Duration `yaml:"consolidate_interval"`
}

// ProcessorConfig configures turn processing.
type ProcessorConfig struct {
	ContextBudget int                 `yaml:"context_budget"`
	Network       brain.NetworkConfig `yaml:"network"`
}

// DefaultDir is where hippocampus keeps its files.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hippocampus")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			Capacity:            100,
			Backend:             "json",
			Path:                filepath.Join(DefaultDir(), "long_term_memory.json"),
			EmbedTimeout:        10 * time.Second,
			TopK:                5,
			SimilarityThreshold: 0.3,
			ConsolidateAge:      time.Hour,
			ConsolidateInterval: 5 * time.Minute,
		},
		Embedding: embedding.Config{
			Provider:        "hash",
			CacheSize:       1000,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Processor: ProcessorConfig{
			ContextBudget: 2000,
			Network: brain.NetworkConfig{
				InputSize:    512,
				HiddenLayers: []int{256, 128},
				OutputSize:   64,
				Activation:   "relu",
			},
		},
		Log: logging.Config{
			Level:   "warn",
			Format:  "text",
			Console: true,
		},
	}
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load builds the configuration. A missing file is an error only when path
// was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("HIPPOCAMPUS_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	num("HIPPOCAMPUS_CAPACITY", &c.Memory.Capacity)
	str("HIPPOCAMPUS_BACKEND", &c.Memory.Backend)
	str("HIPPOCAMPUS_DB", &c.Memory.Path)
	str("HIPPOCAMPUS_DSN", &c.Memory.DSN)
	dur("HIPPOCAMPUS_EMBED_TIMEOUT", &c.Memory.EmbedTimeout)
	num("HIPPOCAMPUS_TOP_K", &c.Memory.TopK)
	float("HIPPOCAMPUS_SIMILARITY_THRESHOLD", &c.Memory.SimilarityThreshold)
	dur("HIPPOCAMPUS_CONSOLIDATE_AGE", &c.Memory.ConsolidateAge)
	dur("HIPPOCAMPUS_CONSOLIDATE_INTERVAL", &c.Memory.ConsolidateInterval)

	str("HIPPOCAMPUS_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("HIPPOCAMPUS_EMBEDDING_MODEL", &c.Embedding.Model)
	str("HIPPOCAMPUS_EMBEDDING_URL", &c.Embedding.URL)
	str("HIPPOCAMPUS_EMBEDDING_API_KEY", &c.Embedding.APIKey)
	num("HIPPOCAMPUS_EMBEDDING_DIMS", &c.Embedding.Dims)

	num("HIPPOCAMPUS_CONTEXT_BUDGET", &c.Processor.ContextBudget)

	str("HIPPOCAMPUS_LOG_LEVEL", &c.Log.Level)
	str("HIPPOCAMPUS_LOG_FORMAT", &c.Log.Format)
	str("HIPPOCAMPUS_LOG_FILE", &c.Log.File)
	boolean("HIPPOCAMPUS_CONSOLE_LOGGING", &c.Log.Console)

	if len(errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Memory.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("memory.capacity must be positive, got %d", c.Memory.Capacity))
	}
	if !persist.Backends[c.Memory.Backend] {
		errs = append(errs, fmt.Errorf("memory.backend %q is not one of json, sqlite, postgres", c.Memory.Backend))
	}
	if c.Memory.Backend == "postgres" && c.Memory.DSN == "" {
		errs = append(errs, errors.New("memory.dsn is required for the postgres backend"))
	}
	if c.Memory.Backend != "postgres" && c.Memory.Path == "" {
		errs = append(errs, errors.New("memory.path is required"))
	}
	if c.Memory.TopK < 0 {
		errs = append(errs, fmt.Errorf("memory.top_k must not be negative, got %d", c.Memory.TopK))
	}
	if t := c.Memory.SimilarityThreshold; t < -1 || t > 1 {
		errs = append(errs, fmt.Errorf("memory.similarity_threshold must be within [-1, 1], got %g", t))
	}
	if c.Memory.ConsolidateAge < 0 || c.Memory.ConsolidateInterval < 0 {
		errs = append(errs, errors.New("memory consolidation durations must not be negative"))
	}
	if !embedding.Providers[c.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of ollama, openai, hash", c.Embedding.Provider))
	}
	if c.Processor.ContextBudget < 0 {
		errs = append(errs, fmt.Errorf("processor.context_budget must not be negative, got %d", c.Processor.ContextBudget))
	}
	if !logging.Levels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// PersistConfig returns the durable backend settings.
func (c *Config) PersistConfig() persist.Config {
	return persist.Config{
		Backend: c.Memory.Backend,
		Path:    c.Memory.Path,
		DSN:     c.Memory.DSN,
	}
}

// BrainConfig returns the turn processing settings.
func (c *Config) BrainConfig() brain.Config {
	return brain.Config{
		TopK:                c.Memory.TopK,
		SimilarityThreshold: c.Memory.SimilarityThreshold,
		ContextBudget:       c.Processor.ContextBudget,
		Network:             c.Processor.Network,
	}
}
