package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Ollama      OllamaConfig
	Redis       RedisConfig
	CacheTTL    time.Duration
	Worker      WorkerConfig
	Search      SearchConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type OllamaConfig struct {
	BaseURL     string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	Temperature *float64
}

// RedisConfig configures the embedding cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WorkerConfig struct {
	Interval    time.Duration
	Concurrency int
}

type SearchConfig struct {
	DefaultTopK int
}

// SetDefaults registers every key with its default so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.url", "")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2")
	v.SetDefault("ollama.embed_model", "nomic-embed-text")
	v.SetDefault("ollama.timeout", 120*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("worker.interval", time.Minute)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("search.default_top_k", 10)
}

// BindEnv lets environment variables such as OLLAMA_BASE_URL override config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads .env into the process environment outside production.
func LoadDotEnv() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" || env == "development" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
		}
	}
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log.level"),
		Server: ServerConfig{
			Port: v.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Ollama: OllamaConfig{
			BaseURL:    v.GetString("ollama.base_url"),
			Model:      v.GetString("ollama.model"),
			EmbedModel: v.GetString("ollama.embed_model"),
			Timeout:    v.GetDuration("ollama.timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		CacheTTL: v.GetDuration("cache.ttl"),
		Worker: WorkerConfig{
			Interval:    v.GetDuration("worker.interval"),
			Concurrency: v.GetInt("worker.concurrency"),
		},
		Search: SearchConfig{
			DefaultTopK: v.GetInt("search.default_top_k"),
		},
	}

	if raw := strings.TrimSpace(v.GetString("ollama.temperature")); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama.temperature %q: %w", raw, err)
		}
		cfg.Ollama.Temperature = &temp
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	u, err := url.Parse(c.Ollama.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ollama.base_url must be an http(s) URL, got %q", c.Ollama.BaseURL)
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a number between 1 and 65535, got %q", c.Server.Port)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}

	return nil
}

// IsDevelopment reports whether development logging and .env loading apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
