package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// HTTP API server
	Server ServerConfig `toml:"server"`

	// SQLite identity cache
	Storage StorageConfig `toml:"storage"`

	// Completion backend
	LLM LLMConfig `toml:"llm"`

	// Scryfall API client
	Scryfall ScryfallConfig `toml:"scryfall"`

	// Optional shared identity cache
	Redis RedisConfig `toml:"redis"`

	// Validation tables and defaults
	Validation ValidationConfig `toml:"validation"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`            // Listen port
	RequestTimeout string   `toml:"request_timeout"` // Per-request timeout (e.g., "60s")
	CORSOrigins    []string `toml:"cors_origins"`    // Allowed CORS origins
}

// StorageConfig contains identity cache settings.
type StorageConfig struct {
	Path       string `toml:"path"`        // SQLite file; empty uses the config directory
	StaleAfter string `toml:"stale_after"` // Refetch identities older than this (e.g., "168h")
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider       string  `toml:"provider"`        // "ollama" or "anthropic"
	OllamaURL      string  `toml:"ollama_url"`      // Ollama API endpoint
	OllamaModel    string  `toml:"ollama_model"`    // Ollama model name
	AnthropicModel string  `toml:"anthropic_model"` // Anthropic model name
	APIKey         string  `toml:"api_key"`         // Anthropic API key; ANTHROPIC_API_KEY overrides
	MaxTokens      int64   `toml:"max_tokens"`      // Completion length cap
	Temperature    float64 `toml:"temperature"`     // Sampling temperature
	Timeout        string  `toml:"timeout"`         // Per-completion timeout (e.g., "120s")
	MaxRetries     int     `toml:"max_retries"`     // Retries for transient failures
}

// ScryfallConfig contains Scryfall client settings.
type ScryfallConfig struct {
	BaseURL              string `toml:"base_url"`               // API root
	RateLimit            string `toml:"rate_limit"`             // Minimum delay between requests (e.g., "100ms")
	MaxConcurrentFetches int    `toml:"max_concurrent_fetches"` // Parallel batch requests
}

// RedisConfig contains the shared cache settings.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      string `toml:"ttl"` // Key expiry (e.g., "168h")
}

// ValidationConfig contains validation defaults.
type ValidationConfig struct {
	TablesPath    string `toml:"tables_path"`    // TOML strictly-worse and commander tables; empty uses built-ins
	WatchTables   bool   `toml:"watch_tables"`   // Reload tables when the file changes
	DefaultFormat string `toml:"default_format"` // Format used when a request names none
	Suggestions   int    `toml:"suggestions"`    // Upgrades requested per generation
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

const (
	configDirName  = ".mtg-upgrade-advisor"
	configFileName = "config.toml"

	// APIKeyEnv overrides llm.api_key when set.
	APIKeyEnv = "ANTHROPIC_API_KEY"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: "60s",
			CORSOrigins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Storage: StorageConfig{
			Path:       "",
			StaleAfter: "168h",
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "qwen3:8b",
			AnthropicModel: "claude-3-5-haiku-latest",
			MaxTokens:      2048,
			Temperature:    0.4,
			Timeout:        "120s",
			MaxRetries:     2,
		},
		Scryfall: ScryfallConfig{
			BaseURL:              "https://api.scryfall.com",
			RateLimit:            "100ms",
			MaxConcurrentFetches: 4,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     "168h",
		},
		Validation: ValidationConfig{
			TablesPath:    "",
			WatchTables:   true,
			DefaultFormat: "commander",
			Suggestions:   5,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return configDir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load loads the configuration from the default location. Returns the
// default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. Keys missing from the file keep
// their default values, and environment overrides are applied last.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		c.LLM.APIKey = key
	}
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.request_timeout": c.Server.RequestTimeout,
		"storage.stale_after":    c.Storage.StaleAfter,
		"llm.timeout":            c.LLM.Timeout,
		"scryfall.rate_limit":    c.Scryfall.RateLimit,
		"redis.ttl":              c.Redis.TTL,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.LLM.Provider {
	case "ollama", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q (want ollama or anthropic)", c.LLM.Provider)
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max retries cannot be negative: %d", c.LLM.MaxRetries)
	}
	if c.Scryfall.MaxConcurrentFetches < 0 {
		return fmt.Errorf("scryfall max concurrent fetches cannot be negative: %d", c.Scryfall.MaxConcurrentFetches)
	}
	if c.Validation.Suggestions < 0 {
		return fmt.Errorf("validation suggestions cannot be negative: %d", c.Validation.Suggestions)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis is enabled but redis.addr is empty")
	}

	return nil
}

// StoragePath returns the SQLite path, defaulting to cards.db in the config directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cards.db"), nil
}

// GetRequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.RequestTimeout)
}

// GetStaleAfter returns the identity refetch threshold as a duration.
func (c *Config) GetStaleAfter() (time.Duration, error) {
	return time.ParseDuration(c.Storage.StaleAfter)
}

// GetLLMTimeout returns the completion timeout as a duration.
func (c *Config) GetLLMTimeout() (time.Duration, error) {
	return time.ParseDuration(c.LLM.Timeout)
}

// GetScryfallRateLimit returns the Scryfall request spacing as a duration.
func (c *Config) GetScryfallRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.RateLimit)
}

// GetRedisTTL returns the Redis key expiry as a duration.
func (c *Config) GetRedisTTL() (time.Duration, error) {
	return time.ParseDuration(c.Redis.TTL)
}
