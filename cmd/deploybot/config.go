package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config source and secret backend names.
const (
	ConfigSourceGitHub = "github"
	ConfigSourceGit    = "git"

	SecretsSourceEnv = "env"
	SecretsSourceAWS = "aws"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Deploy     DeployConfig     `mapstructure:"deploy"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Deliveries DeliveriesConfig `mapstructure:"deliveries"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GitHubConfig holds GitHub API configuration.
type GitHubConfig struct {
	// APIURL is the REST API base URL. Set it for GitHub Enterprise.
	APIURL string `mapstructure:"api_url"`

	// Token authenticates API calls. Ignored when secrets.github_token_id
	// is set.
	Token string `mapstructure:"token"`

	// WebhookSecret verifies X-Hub-Signature-256. Empty disables
	// verification. Ignored when secrets.webhook_secret_id is set.
	WebhookSecret string `mapstructure:"webhook_secret"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// DeployConfig holds orchestration configuration.
type DeployConfig struct {
	// ConfigPath is the deployment config file inside each repository.
	ConfigPath string `mapstructure:"config_path"`

	// ConfigSource is where the config file is read from: "github" uses
	// the contents API, "git" reads local bare mirrors.
	ConfigSource string `mapstructure:"config_source"`

	// GitMirrorRoot holds <owner>/<repo>.git mirrors when ConfigSource is "git".
	GitMirrorRoot string `mapstructure:"git_mirror_root"`

	// CommentPrefix starts every failure comment.
	CommentPrefix string `mapstructure:"comment_prefix"`
}

// SecretsConfig selects where credentials are resolved from.
type SecretsConfig struct {
	// Source is "env" (environment variables named by the ids) or "aws"
	// (AWS Secrets Manager).
	Source string `mapstructure:"source"`

	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`

	GitHubTokenID   string `mapstructure:"github_token_id"`
	WebhookSecretID string `mapstructure:"webhook_secret_id"`
}

// DeliveriesConfig holds delivery log retention configuration.
type DeliveriesConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("data_dir", "./data")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "") // Derived from data_dir when empty
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("github.timeout", "30s")

	v.SetDefault("deploy.config_path", ".github/deploy.yml")
	v.SetDefault("deploy.config_source", ConfigSourceGitHub)
	v.SetDefault("deploy.git_mirror_root", "")
	v.SetDefault("deploy.comment_prefix", "")

	v.SetDefault("secrets.source", SecretsSourceEnv)
	v.SetDefault("secrets.region", "")
	v.SetDefault("secrets.endpoint", "")
	v.SetDefault("secrets.github_token_id", "")
	v.SetDefault("secrets.webhook_secret_id", "")

	v.SetDefault("deliveries.retention", "168h")
	v.SetDefault("deliveries.prune_interval", "1h")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			var parseErr viper.ConfigParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DEPLOYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(cfg.DataDir, "deploybot.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Deploy.ConfigSource {
	case ConfigSourceGitHub:
	case ConfigSourceGit:
		if c.Deploy.GitMirrorRoot == "" {
			return errors.New("deploy.git_mirror_root is required when deploy.config_source is git")
		}
	default:
		return fmt.Errorf("deploy.config_source must be %q or %q, got %q",
			ConfigSourceGitHub, ConfigSourceGit, c.Deploy.ConfigSource)
	}

	switch c.Secrets.Source {
	case SecretsSourceEnv, SecretsSourceAWS:
	default:
		return fmt.Errorf("secrets.source must be %q or %q, got %q",
			SecretsSourceEnv, SecretsSourceAWS, c.Secrets.Source)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
