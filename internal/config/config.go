// ABOUTME: Configuration loading and parsing for picco
// ABOUTME: Supports YAML files with environment variable expansion, defaults and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength is the minimum accepted length of auth.jwt_secret.
const MinJWTSecretLength = 32

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Telegram update delivery modes.
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config represents the complete picco configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	CORS      CORSConfig      `yaml:"cors"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	WebApp    WebAppConfig    `yaml:"webapp"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig selects and configures the directory store backend
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"` // sqlite file
	DSN          string `yaml:"dsn"`  // postgres connection string
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// BootstrapConfig holds the default credentials of the bootstrap super-admin
type BootstrapConfig struct {
	AdminPassword string `yaml:"admin_password"`
}

// CORSConfig holds the browser origin allowlist
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TelegramConfig holds bot configuration
type TelegramConfig struct {
	Enabled        bool          `yaml:"enabled"`
	BotToken       string        `yaml:"bot_token"`
	Mode           string        `yaml:"mode"`
	WebhookBaseURL string        `yaml:"webhook_base_url"`
	WebhookPath    string        `yaml:"webhook_path"`
	PollTimeout    time.Duration `yaml:"-"`

	PollTimeoutRaw string `yaml:"poll_timeout"`
}

// WebhookURL returns the public URL Telegram should deliver updates to.
func (t TelegramConfig) WebhookURL() string {
	return strings.TrimRight(t.WebhookBaseURL, "/") + t.WebhookPath
}

// WebAppConfig holds the front-end panel locations used in deep links
type WebAppConfig struct {
	BaseURL   string `yaml:"base_url"`
	AgentPath string `yaml:"agent_path"`
	AdminPath string `yaml:"admin_path"`
}

// SessionsConfig selects where registration sessions live
type SessionsConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"-"`
	Redis   RedisConfig   `yaml:"redis"`

	TTLRaw string `yaml:"ttl"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

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

// Parse parses configuration from raw YAML bytes.
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
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
	if c.Bootstrap.AdminPassword == "" {
		c.Bootstrap.AdminPassword = "admin123"
	}
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = TelegramModePolling
	}
	if c.Telegram.WebhookPath == "" {
		c.Telegram.WebhookPath = "/telegram/webhook"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60 * time.Second
	}
	if c.WebApp.AgentPath == "" {
		c.WebApp.AgentPath = "/agent"
	}
	if c.WebApp.AdminPath == "" {
		c.WebApp.AdminPath = "/admin"
	}
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = SessionBackendMemory
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 30 * time.Minute
	}
	if c.Sessions.Redis.Prefix == "" {
		c.Sessions.Redis.Prefix = "picco:session:"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		switch c.Telegram.Mode {
		case TelegramModePolling:
		case TelegramModeWebhook:
			if c.Telegram.WebhookBaseURL == "" {
				return fmt.Errorf("telegram.webhook_base_url is required in webhook mode")
			}
			if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
				return fmt.Errorf("telegram.webhook_path must start with /")
			}
		default:
			return fmt.Errorf("telegram.mode must be %q or %q, got %q", TelegramModePolling, TelegramModeWebhook, c.Telegram.Mode)
		}
	}

	switch c.Sessions.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Sessions.Redis.Addr == "" {
			return fmt.Errorf("sessions.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("sessions.backend must be %q or %q, got %q", SessionBackendMemory, SessionBackendRedis, c.Sessions.Backend)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Telegram.PollTimeoutRaw != "" {
		cfg.Telegram.PollTimeout, err = time.ParseDuration(cfg.Telegram.PollTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_timeout %q: %w", cfg.Telegram.PollTimeoutRaw, err)
		}
	}

	if cfg.Sessions.TTLRaw != "" {
		cfg.Sessions.TTL, err = time.ParseDuration(cfg.Sessions.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions ttl %q: %w", cfg.Sessions.TTLRaw, err)
		}
	}

	return nil
}
