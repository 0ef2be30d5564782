// ABOUTME: Configuration loading and parsing for the ember daemon
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ember configuration
type Config struct {
	Matrix   MatrixConfig   `yaml:"matrix"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Chat     ChatConfig     `yaml:"chat"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MatrixConfig holds the chat platform connection configuration
type MatrixConfig struct {
	Homeserver   string   `yaml:"homeserver"`
	UserID       string   `yaml:"user_id"`
	AccessToken  string   `yaml:"access_token"`
	RoomID       string   `yaml:"room_id"`
	AllowedUsers []string `yaml:"allowed_users"`
}

// OllamaConfig holds the inference backend configuration
type OllamaConfig struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// ChatConfig holds conversation and progression tuning
type ChatConfig struct {
	PersonasPath   string `yaml:"personas_path"`
	DefaultPersona string `yaml:"default_persona"`
	MaxHistory     int    `yaml:"max_history"`
	XPPerMessage   int    `yaml:"-"`

	// Raw pointer value so an explicit 0 is distinguishable from unset
	XPPerMessageRaw *int `yaml:"xp_per_message"`
}

// WatchdogConfig holds the inactivity watchdog configuration
type WatchdogConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"-"`
	Threshold time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	IntervalRaw  string `yaml:"interval"`
	ThresholdRaw string `yaml:"threshold"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Defaults applied when the file leaves fields unset.
const (
	DefaultMaxHistory   = 10
	DefaultXPPerMessage = 10
	DefaultTimeout      = 120 * time.Second
	DefaultInterval     = time.Hour
	DefaultThreshold    = 2 * time.Hour
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

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

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if _, err := url.Parse(c.Matrix.Homeserver); err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}
	if c.Matrix.RoomID == "" {
		return fmt.Errorf("matrix.room_id is required")
	}

	if c.Ollama.URL == "" {
		return fmt.Errorf("ollama.url is required")
	}
	u, err := url.Parse(c.Ollama.URL)
	if err != nil {
		return fmt.Errorf("ollama.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ollama.url must use http or https scheme")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Chat.MaxHistory < 1 {
		return fmt.Errorf("chat.max_history must be at least 1")
	}
	if c.Chat.XPPerMessage < 0 {
		return fmt.Errorf("chat.xp_per_message must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Ollama.TimeoutRaw != "" {
		cfg.Ollama.Timeout, err = time.ParseDuration(cfg.Ollama.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ollama.timeout %q: %w", cfg.Ollama.TimeoutRaw, err)
		}
	}

	if cfg.Watchdog.IntervalRaw != "" {
		cfg.Watchdog.Interval, err = time.ParseDuration(cfg.Watchdog.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing watchdog.interval %q: %w", cfg.Watchdog.IntervalRaw, err)
		}
	}

	if cfg.Watchdog.ThresholdRaw != "" {
		cfg.Watchdog.Threshold, err = time.ParseDuration(cfg.Watchdog.ThresholdRaw)
		if err != nil {
			return fmt.Errorf("parsing watchdog.threshold %q: %w", cfg.Watchdog.ThresholdRaw, err)
		}
	}

	return nil
}

// applyDefaults fills unset fields with their defaults
func applyDefaults(cfg *Config) {
	if cfg.Chat.MaxHistory == 0 {
		cfg.Chat.MaxHistory = DefaultMaxHistory
	}
	if cfg.Chat.XPPerMessageRaw != nil {
		cfg.Chat.XPPerMessage = *cfg.Chat.XPPerMessageRaw
	} else {
		cfg.Chat.XPPerMessage = DefaultXPPerMessage
	}
	if cfg.Ollama.Timeout == 0 {
		cfg.Ollama.Timeout = DefaultTimeout
	}
	if cfg.Watchdog.Interval == 0 {
		cfg.Watchdog.Interval = DefaultInterval
	}
	if cfg.Watchdog.Threshold == 0 {
		cfg.Watchdog.Threshold = DefaultThreshold
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
