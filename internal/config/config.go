package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for StudyDoc
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Index    IndexConfig    `mapstructure:"index"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AdminConfig holds API authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds metadata database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds lesson file storage configuration
type StorageConfig struct {
	Documents string `mapstructure:"documents"`
}

// IndexConfig holds embedding index configuration
type IndexConfig struct {
	Store         string        `mapstructure:"store"` // sqlite or memory
	DBPath        string        `mapstructure:"db_path"`
	Dimension     int           `mapstructure:"dimension"`
	ChunkSize     int           `mapstructure:"chunk_size"`
	SearchLimit   int           `mapstructure:"search_limit"`
	MinSimilarity float32       `mapstructure:"min_similarity"`
	QueryCacheTTL time.Duration `mapstructure:"query_cache_ttl"`
}

// LLMConfig holds model backend configuration
type LLMConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TopK           int     `mapstructure:"top_k"`
	TopP           float64 `mapstructure:"top_p"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Path       string `mapstructure:"path"`
	Production bool   `mapstructure:"production"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("STUDYDOC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/studydoc.db")
	v.SetDefault("storage.documents", "./data/lessons")

	v.SetDefault("index.store", "sqlite")
	v.SetDefault("index.db_path", "./data/vectors.db")
	v.SetDefault("index.dimension", 768)
	v.SetDefault("index.chunk_size", 100)
	v.SetDefault("index.search_limit", 10)
	v.SetDefault("index.min_similarity", 0.7)
	v.SetDefault("index.query_cache_ttl", 5*time.Minute)

	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gemma3n:e2b")
	v.SetDefault("llm.embedding_model", "nomic-embed-text")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("llm.top_k", 40)
	v.SetDefault("llm.top_p", 0.95)

	v.SetDefault("log.path", "./logs/studydoc.log")
	v.SetDefault("log.production", false)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
