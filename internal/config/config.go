// ABOUTME: Configuration loading and parsing for thefinals-bot
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/dispatch"
)

// Config represents the complete bot configuration
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Messaging MessagingConfig `yaml:"messaging"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig holds the QQ open API connection settings
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	AppID   string `yaml:"app_id"`
	Token   string `yaml:"token"`
}

// MessagingConfig holds the dispatch pipeline tuning knobs
type MessagingConfig struct {
	// MaxRetry is a pointer so an explicit 0 (no retries) survives
	// default filling.
	MaxRetry  *int  `yaml:"max_retry"`
	SeqStep   int64 `yaml:"seq_step"`
	QueueSize int64 `yaml:"queue_size"`

	RetryDelay      time.Duration `yaml:"-"`
	DedupWindow     time.Duration `yaml:"-"`
	RateLimit       time.Duration `yaml:"-"`
	CleanupInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RetryDelayRaw      string `yaml:"retry_delay"`
	DedupWindowRaw     string `yaml:"dedup_window"`
	RateLimitRaw       string `yaml:"rate_limit"`
	CleanupIntervalRaw string `yaml:"cleanup_interval"`
}

// DatabaseConfig holds dispatch ledger storage configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded,
// duration strings are parsed, and messaging defaults fill unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

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

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset messaging and database fields with the
// production defaults.
func (c *Config) applyDefaults() {
	def := dispatch.DefaultConfig()
	if c.Messaging.MaxRetry == nil {
		c.Messaging.MaxRetry = &def.MaxRetry
	}
	if c.Messaging.RetryDelay == 0 {
		c.Messaging.RetryDelay = def.RetryDelay
	}
	if c.Messaging.DedupWindow == 0 {
		c.Messaging.DedupWindow = def.DedupWindow
	}
	if c.Messaging.SeqStep == 0 {
		c.Messaging.SeqStep = def.SeqStep
	}
	if c.Messaging.RateLimit == 0 {
		c.Messaging.RateLimit = def.RateLimit
	}
	if c.Messaging.CleanupInterval == 0 {
		c.Messaging.CleanupInterval = def.CleanupInterval
	}
	if c.Messaging.QueueSize == 0 {
		c.Messaging.QueueSize = def.QueueSize
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://api.sgroup.qq.com"
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Gateway.AppID == "" {
		return fmt.Errorf("gateway.app_id is required")
	}
	if c.Gateway.Token == "" {
		return fmt.Errorf("gateway.token is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return c.DispatchConfig().Validate()
}

// DispatchConfig converts the messaging section into the dispatch package's
// immutable configuration.
func (c *Config) DispatchConfig() dispatch.Config {
	maxRetry := 0
	if c.Messaging.MaxRetry != nil {
		maxRetry = *c.Messaging.MaxRetry
	}
	return dispatch.Config{
		MaxRetry:        maxRetry,
		RetryDelay:      c.Messaging.RetryDelay,
		DedupWindow:     c.Messaging.DedupWindow,
		SeqStep:         c.Messaging.SeqStep,
		RateLimit:       c.Messaging.RateLimit,
		CleanupInterval: c.Messaging.CleanupInterval,
		QueueSize:       c.Messaging.QueueSize,
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Messaging.RetryDelayRaw != "" {
		cfg.Messaging.RetryDelay, err = time.ParseDuration(cfg.Messaging.RetryDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing retry_delay %q: %w", cfg.Messaging.RetryDelayRaw, err)
		}
	}

	if cfg.Messaging.DedupWindowRaw != "" {
		cfg.Messaging.DedupWindow, err = time.ParseDuration(cfg.Messaging.DedupWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing dedup_window %q: %w", cfg.Messaging.DedupWindowRaw, err)
		}
	}

	if cfg.Messaging.RateLimitRaw != "" {
		cfg.Messaging.RateLimit, err = time.ParseDuration(cfg.Messaging.RateLimitRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit %q: %w", cfg.Messaging.RateLimitRaw, err)
		}
	}

	if cfg.Messaging.CleanupIntervalRaw != "" {
		cfg.Messaging.CleanupInterval, err = time.ParseDuration(cfg.Messaging.CleanupIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing cleanup_interval %q: %w", cfg.Messaging.CleanupIntervalRaw, err)
		}
	}

	return nil
}
