// ABOUTME: Centralized configuration for the ba-agent service and CLI
// ABOUTME: Loads config.yaml, .env and environment variables with validation and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ChatModel         string        `mapstructure:"chat_model"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
}

type StorageConfig struct {
	// Driver is sqlite or memory
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	// Provider is openai, hash, or auto (openai when a key is set)
	Provider    string `mapstructure:"provider"`
	Dimension   int    `mapstructure:"dimension"`
	Concurrency int    `mapstructure:"concurrency"`
}

type CacheConfig struct {
	// Backend is none, memory or redis
	Backend       string        `mapstructure:"backend"`
	MaxEntries    int           `mapstructure:"max_entries"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type ChunkerConfig struct {
	// Mode is model, heading, or auto (model when a chat model is available)
	Mode string `mapstructure:"mode"`
}

type RetrievalConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type MemoryConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type TimeoutsConfig struct {
	Chat     time.Duration `mapstructure:"chat"`
	LongTask time.Duration `mapstructure:"long_task"`
}

type AgentsConfig struct {
	Dir               string `mapstructure:"dir"`
	Watch             bool   `mapstructure:"watch"`
	MaxAttachedTokens int    `mapstructure:"max_attached_tokens"`
}

type IngestConfig struct {
	Async          bool  `mapstructure:"async"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// env aliases accepted in addition to BA_<SECTION>_<KEY>
var envAliases = map[string][]string{
	"openai.api_key":         {"OPENAI_API_KEY"},
	"openai.base_url":        {"OPENAI_BASE_URL"},
	"openai.chat_model":      {"BA_CHAT_MODEL"},
	"openai.embedding_model": {"BA_EMBEDDING_MODEL"},
	"storage.path":           {"BA_DB_PATH"},
	"cache.redis_addr":       {"REDIS_ADDR"},
	"cache.redis_password":   {"REDIS_PASSWORD"},
	"server.addr":            {"BA_ADDR"},
	"agents.dir":             {"BA_AGENTS_DIR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.retry_delay", 2*time.Second)
	v.SetDefault("openai.requests_per_second", 0.0)
	v.SetDefault("openai.burst", 1)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.max_tokens", 0)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "")

	v.SetDefault("embedding.provider", "auto")
	v.SetDefault("embedding.dimension", 256)
	v.SetDefault("embedding.concurrency", 4)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("chunker.mode", "auto")

	v.SetDefault("retrieval.default_limit", 5)
	v.SetDefault("retrieval.max_limit", 50)

	v.SetDefault("memory.history_limit", 30)

	v.SetDefault("timeouts.chat", 60*time.Second)
	v.SetDefault("timeouts.long_task", 5*time.Minute)

	v.SetDefault("agents.dir", "")
	v.SetDefault("agents.watch", true)
	v.SetDefault("agents.max_attached_tokens", 24000)

	v.SetDefault("ingest.async", false)
	v.SetDefault("ingest.max_upload_bytes", 20<<20)
}

// Load reads configuration. path names an explicit config file; when empty,
// config.yaml is searched in ., ./config and the XDG config dir. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "ba-agent"))
	}

	v.SetEnvPrefix("BA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		envs := append([]string{"BA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate range checks every setting
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}
	switch c.Embedding.Provider {
	case "auto", "openai", "hash":
	default:
		return fmt.Errorf("embedding.provider must be auto, openai or hash, got %q", c.Embedding.Provider)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr (REDIS_ADDR) is required for the redis cache")
	}
	switch c.Chunker.Mode {
	case "auto", "model", "heading":
	default:
		return fmt.Errorf("chunker.mode must be auto, model or heading, got %q", c.Chunker.Mode)
	}
	if c.OpenAI.MaxRetries < 0 || c.OpenAI.MaxRetries > 10 {
		return fmt.Errorf("openai.max_retries must be 0-10, got %d", c.OpenAI.MaxRetries)
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be 0-2, got %f", c.OpenAI.Temperature)
	}
	if c.Retrieval.DefaultLimit < 1 || c.Retrieval.MaxLimit < c.Retrieval.DefaultLimit {
		return fmt.Errorf("retrieval limits must satisfy 1 <= default_limit <= max_limit, got %d and %d",
			c.Retrieval.DefaultLimit, c.Retrieval.MaxLimit)
	}
	if c.Memory.HistoryLimit < 1 {
		return fmt.Errorf("memory.history_limit must be positive, got %d", c.Memory.HistoryLimit)
	}
	if c.Timeouts.Chat <= 0 || c.Timeouts.LongTask < c.Timeouts.Chat {
		return fmt.Errorf("timeouts must satisfy 0 < chat <= long_task, got %s and %s", c.Timeouts.Chat, c.Timeouts.LongTask)
	}
	if c.Embedding.Dimension < 8 {
		return fmt.Errorf("embedding.dimension must be at least 8, got %d", c.Embedding.Dimension)
	}
	return nil
}

// HasOpenAIKey reports whether an API key is configured
func (c *Config) HasOpenAIKey() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != ""
}
