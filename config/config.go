package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Generation GenerationConfig `mapstructure:"generation"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Artifact   ArtifactConfig   `mapstructure:"artifact"`
	Chunking   ChunkConfig      `mapstructure:"chunking"`
	Session    SessionConfig    `mapstructure:"session"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// FetchConfig configures the news fetch adapter.
type FetchConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Endpoint     string        `mapstructure:"endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ScrapeBodies bool          `mapstructure:"scrape_bodies"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// EmbeddingConfig configures the embedding capability.
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	BatchSize int           `mapstructure:"batch_size"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GenerationConfig configures the generation capability.
type GenerationConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VectorConfig configures the vector store gateway.
type VectorConfig struct {
	Backend     string        `mapstructure:"backend"` // memory | chromem
	PersistPath string        `mapstructure:"persist_path"`
	Collection  string        `mapstructure:"collection"`
	Retries     int           `mapstructure:"retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ArtifactConfig configures the local artifact store.
type ArtifactConfig struct {
	Root string `mapstructure:"root"`
}

// SessionConfig configures the session registry backend.
type SessionConfig struct {
	Backend string      `mapstructure:"backend"` // inmemory | redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds connection settings for the redis registry backend.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// ChunkConfig bounds chunk size to respect embedding input limits.
type ChunkConfig struct {
	MaxLen  int `mapstructure:"max_len"`
	Overlap int `mapstructure:"overlap"`
}

// CleanupConfig configures the optional periodic sweep. An empty schedule
// disables it.
type CleanupConfig struct {
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be positive")
	}
	if c.Chunking.MaxLen <= 0 {
		return errors.New("chunking.max_len must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxLen {
		return errors.New("chunking.overlap must be in [0, max_len)")
	}
	switch c.Vector.Backend {
	case "memory", "chromem":
	default:
		return fmt.Errorf("vector.backend %q not supported", c.Vector.Backend)
	}
	switch c.Session.Backend {
	case "inmemory", "redis":
	default:
		return fmt.Errorf("session.backend %q not supported", c.Session.Backend)
	}
	return nil
}

// LoadConfig reads configuration from the given file (or the default search
// path) with POSTPILOT_* environment overrides. A missing file is fine: every
// knob has a default.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":10010")
	v.SetDefault("fetch.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.scrape_bodies", true)
	v.SetDefault("fetch.max_body_bytes", int64(2<<20))
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.workers", 4)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", 1024)
	v.SetDefault("generation.timeout", 60*time.Second)
	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.collection", "news-chunks")
	v.SetDefault("vector.retries", 3)
	v.SetDefault("vector.backoff", 300*time.Millisecond)
	v.SetDefault("vector.timeout", 10*time.Second)
	v.SetDefault("artifact.root", "news_data")
	v.SetDefault("session.backend", "inmemory")
	v.SetDefault("session.redis.host", "localhost")
	v.SetDefault("session.redis.port", "6379")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("chunking.max_len", 1000)
	v.SetDefault("chunking.overlap", 0)
	v.SetDefault("cleanup.sweep_schedule", "")

	if path == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("POSTPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
