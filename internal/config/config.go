// ABOUTME: Configuration loading and parsing for coven-console
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-console configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Rate    RateConfig    `yaml:"rate"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BackendConfig holds the backend connection configuration
type BackendConfig struct {
	URL            string         `yaml:"url"`
	ConversationID string         `yaml:"conversation_id"`
	Token          string         `yaml:"token"`
	GitHubToken    string         `yaml:"github_token"`
	Settings       map[string]any `yaml:"settings"` // forwarded verbatim in the init handshake
}

// SessionConfig holds resume-cursor persistence configuration.
// An empty path disables persistence.
type SessionConfig struct {
	Path string `yaml:"path"`
}

// RateConfig holds the backlog-drain heuristic configuration
type RateConfig struct {
	Window time.Duration `yaml:"-"`
	Burst  int           `yaml:"burst"`

	// Raw string value for YAML unmarshaling
	WindowRaw string `yaml:"window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds the local metrics/debug HTTP endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.ConversationID == "" {
		return fmt.Errorf("backend.conversation_id is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Rate.WindowRaw != "" {
		cfg.Rate.Window, err = time.ParseDuration(cfg.Rate.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing rate window %q: %w", cfg.Rate.WindowRaw, err)
		}
	}

	return nil
}
