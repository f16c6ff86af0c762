// ABOUTME: Configuration loading and parsing for orbit-server
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete orbit-server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
	Replay    ReplayConfig    `yaml:"replay"`
	Responder ResponderConfig `yaml:"responder"`
	History   HistoryConfig   `yaml:"history"`
	Threads   ThreadsConfig   `yaml:"threads"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTSecret signs admin bearer tokens for API key management.
	JWTSecret string `yaml:"jwt_secret"`
	// RequireAPIKey rejects chat requests without a valid X-API-Key.
	// Administrative routes always require one.
	RequireAPIKey bool `yaml:"require_api_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LimitsConfig holds per-API-key rate limits. Zero disables limiting.
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ReplayConfig controls the X-Request-ID replay guard
type ReplayConfig struct {
	TTL        time.Duration `yaml:"-"`
	MaxEntries int           `yaml:"max_entries"`

	TTLRaw string `yaml:"ttl"`
}

// ResponderConfig controls the built-in echo responder
type ResponderConfig struct {
	ChunkDelay time.Duration `yaml:"-"`
	ChunkWords int           `yaml:"chunk_words"`

	ChunkDelayRaw string `yaml:"chunk_delay"`
}

// HistoryConfig bounds stored conversation history
type HistoryConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// ThreadsConfig controls conversation thread lifetime
type ThreadsConfig struct {
	TTL time.Duration `yaml:"-"`

	TTLRaw string `yaml:"ttl"`
}

// Defaults applied when a field is left empty.
const (
	DefaultReplayTTL        = 5 * time.Minute
	DefaultReplayMaxEntries = 10000
	DefaultChunkWords       = 1
	DefaultHistoryLimit     = 50
	DefaultThreadTTL        = 24 * time.Hour
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration content.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Replay.TTL == 0 {
		c.Replay.TTL = DefaultReplayTTL
	}
	if c.Replay.MaxEntries == 0 {
		c.Replay.MaxEntries = DefaultReplayMaxEntries
	}
	if c.Responder.ChunkWords == 0 {
		c.Responder.ChunkWords = DefaultChunkWords
	}
	if c.History.MaxMessages == 0 {
		c.History.MaxMessages = DefaultHistoryLimit
	}
	if c.Threads.TTL == 0 {
		c.Threads.TTL = DefaultThreadTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	if c.Limits.RequestsPerSecond < 0 {
		return fmt.Errorf("limits.requests_per_second cannot be negative")
	}
	if c.Limits.RequestsPerSecond > 0 && c.Limits.Burst < 1 {
		return fmt.Errorf("limits.burst must be at least 1 when rate limiting is enabled")
	}

	if c.Replay.MaxEntries < 0 {
		return fmt.Errorf("replay.max_entries cannot be negative")
	}

	if c.Responder.ChunkWords < 0 {
		return fmt.Errorf("responder.chunk_words cannot be negative")
	}
	if c.Responder.ChunkDelay < 0 {
		return fmt.Errorf("responder.chunk_delay cannot be negative")
	}

	if c.History.MaxMessages < 0 {
		return fmt.Errorf("history.max_messages cannot be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Replay.TTLRaw != "" {
		cfg.Replay.TTL, err = time.ParseDuration(cfg.Replay.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing replay.ttl %q: %w", cfg.Replay.TTLRaw, err)
		}
	}

	if cfg.Responder.ChunkDelayRaw != "" {
		cfg.Responder.ChunkDelay, err = time.ParseDuration(cfg.Responder.ChunkDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing responder.chunk_delay %q: %w", cfg.Responder.ChunkDelayRaw, err)
		}
	}

	if cfg.Threads.TTLRaw != "" {
		cfg.Threads.TTL, err = time.ParseDuration(cfg.Threads.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing threads.ttl %q: %w", cfg.Threads.TTLRaw, err)
		}
	}

	return nil
}
