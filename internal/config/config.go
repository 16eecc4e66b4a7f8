// Package config provides configuration loading and structs for the sommelier server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/resilience"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool                     `yaml:"debug"`
	Server    ServerConfig             `yaml:"server"`
	Storage   StorageConfig            `yaml:"storage"`
	Corpus    CorpusConfig             `yaml:"corpus"`
	OpenAI    OpenAIConfig             `yaml:"openai"`
	Embedding EmbeddingConfig          `yaml:"embedding"`
	Recommend RecommendConfig          `yaml:"recommend"`
	Retry     resilience.RetryConfig   `yaml:"retry"`
	Breaker   resilience.BreakerConfig `yaml:"breaker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the number of requests per minute allowed per client IP.
	RateLimit int `yaml:"rate_limit"`
}

// StorageConfig holds the wine database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CorpusConfig locates the embeddings table. Path, when set, wins over the bucket.
type CorpusConfig struct {
	Bucket         string         `yaml:"bucket"`
	Key            string         `yaml:"key"`
	Path           string         `yaml:"path"`
	Region         string         `yaml:"region"`
	Endpoint       string         `yaml:"endpoint"`
	ForcePathStyle bool           `yaml:"force_path_style"`
	FetchTimeout   time.Duration  `yaml:"fetch_timeout"`
	Columns        corpus.Columns `yaml:"columns"`
}

// OpenAIConfig holds the AI API location and the models used for each call.
type OpenAIConfig struct {
	URL             string        `yaml:"url"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	SimilarityModel string        `yaml:"similarity_model"`
	SearchModel     string        `yaml:"search_model"`
	CompletionModel string        `yaml:"completion_model"`
	ReimagineModel  string        `yaml:"reimagine_model"`
	ChatModel       string        `yaml:"chat_model"`
	EditModel       string        `yaml:"edit_model"`
}

// EmbeddingConfig holds query embedding cache settings.
type EmbeddingConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// RecommendConfig holds ranking settings.
type RecommendConfig struct {
	K int `yaml:"k"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, and expands paths. An empty path yields the environment plus defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Corpus.Path != "" {
		cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides cfg with the deployment environment variables that are set.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.OpenAI.APIKey, "OPEN_AI_API_KEY")
	setString(&cfg.OpenAI.URL, "OPEN_AI_API_URL")
	setString(&cfg.Corpus.Bucket, "BUCKET_NAME")
	setString(&cfg.Corpus.Key, "CORPUS_KEY")
	setString(&cfg.Corpus.Path, "CORPUS_PATH")
	setString(&cfg.Corpus.Region, "REGION")
	setString(&cfg.Corpus.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.DatabasePath, "DATABASE_PATH")
	setString(&cfg.Server.Host, "HOST")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("RECOMMEND_K"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECOMMEND_K %q: %w", v, err)
		}
		cfg.Recommend.K = k
	}
	if v := os.Getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports every missing or out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Corpus.Path == "" && c.Corpus.Bucket == "" {
		errs = append(errs, errors.New("corpus.bucket (BUCKET_NAME) or corpus.path is required"))
	}
	if c.Corpus.Path == "" && c.Corpus.Key == "" {
		errs = append(errs, errors.New("corpus.key is required"))
	}
	if c.OpenAI.URL == "" {
		errs = append(errs, errors.New("openai.url (OPEN_AI_API_URL) is required"))
	}
	if c.Recommend.K < 1 {
		errs = append(errs, fmt.Errorf("recommend.k must be at least 1, got %d", c.Recommend.K))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("storage.database_path (DATABASE_PATH) is required"))
	}
	return errors.Join(errs...)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
