package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/helix/helix"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Helix    HelixConfig    `mapstructure:"helix"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Harness  HarnessConfig  `mapstructure:"harness"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN     string `mapstructure:"dsn"`
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"` // durable log on/off
	// Embedded-only configuration
	LibSQLDataDir string `mapstructure:"libsql_data_dir"` // Directory for database files
}

// HelixConfig stores transport and storage settings.
type HelixConfig struct {
	Addr          string         `mapstructure:"addr"`           // HTTP listen address
	AllowedOrigin string         `mapstructure:"allowed_origin"` // CORS origin of the UI
	Database      DatabaseConfig `mapstructure:"database"`
}

// PresetConfig is one sampling preset for backend calls.
type PresetConfig struct {
	MaxNewTokens int     `mapstructure:"max_new_tokens"`
	Temperature  float32 `mapstructure:"temperature"`
}

// LLMConfig stores generation backend configurations.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"` // "openai", "scripted", "llama"
	BaseURL  string        `mapstructure:"base_url"` // OpenAI-compatible endpoint
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`

	ScriptPath string `mapstructure:"script_path"` // YAML replies for the scripted provider

	ModelPath   string `mapstructure:"model_path"`   // GGUF file for the llama provider
	ContextSize int    `mapstructure:"context_size"` // llama context window
	Threads     int    `mapstructure:"threads"`      // llama inference threads

	Extraction PresetConfig `mapstructure:"extraction"` // field backfill calls
	Generation PresetConfig `mapstructure:"generation"` // sequence generate/append/edit calls
}

// HarnessConfig stores backend call harness configurations.
type HarnessConfig struct {
	// Rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`     // Enable rate limiting
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`    // Token bucket capacity
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"` // Refill rate

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"` // Enable structured logging/tracing

	HistoryWindow int `mapstructure:"history_window"` // turns embedded in the extraction instruction
}

// SessionsConfig bounds the in-memory session registry.
type SessionsConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NotifyConfig selects the notification channel.
type NotifyConfig struct {
	Provider      string `mapstructure:"provider"` // "hub", "nats", "none"
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// DispatchConfig sizes the fire-and-forget worker pool.
type DispatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.GetViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. llm.api_key becomes LLM_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are enough to run.
	}

	AppConfig = Config{}
	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("helix.addr", internal.DefaultServerAddr)
	v.SetDefault("helix.allowed_origin", internal.DefaultUIOrigin)
	v.SetDefault("helix.database.dsn", internal.DefaultDatabaseDSN)
	v.SetDefault("helix.database.type", internal.DefaultDatabaseType)
	v.SetDefault("helix.database.enabled", true)
	v.SetDefault("helix.database.libsql_data_dir", internal.DefaultDatabaseDir)

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.script_path", "")
	v.SetDefault("llm.model_path", "")
	v.SetDefault("llm.context_size", 4096)
	v.SetDefault("llm.threads", 4)

	// Extraction is deterministic-leaning, generation is creative
	v.SetDefault("llm.extraction.max_new_tokens", 500)
	v.SetDefault("llm.extraction.temperature", 0.3)
	v.SetDefault("llm.generation.max_new_tokens", 5000)
	v.SetDefault("llm.generation.temperature", 0.7)

	// Harness defaults
	v.SetDefault("harness.rate_limit_enabled", true)
	v.SetDefault("harness.rate_limit_capacity", 10)
	v.SetDefault("harness.rate_limit_refill_rate", "1s")
	v.SetDefault("harness.enable_tracing", true)
	v.SetDefault("harness.history_window", 5)

	v.SetDefault("sessions.capacity", 1000)
	v.SetDefault("sessions.ttl", "24h")

	v.SetDefault("notify.provider", "hub")
	v.SetDefault("notify.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.subject_prefix", internal.DefaultAppName)

	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
