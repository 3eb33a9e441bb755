// Package config loads service configuration from an optional YAML file
// overlaid with SUPPORTBOT_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Content   ContentConfig   `koanf:"content"`
	Sessions  SessionsConfig  `koanf:"sessions"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is the allowed chat requests per user per RateLimitWindow;
	// 0 disables limiting.
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

type ContentConfig struct {
	ErrorCodesPath string `koanf:"error_codes_path"`
	FlowsPath      string `koanf:"flows_path"`
	// Watch reloads content files on change.
	Watch bool `koanf:"watch"`
}

type SessionsConfig struct {
	Backend string        `koanf:"backend"` // memory, sqlite
	Timeout time.Duration `koanf:"timeout"`
	SQLite  SQLiteConfig  `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type OpenAIConfig struct {
	APIKey       string `koanf:"api_key"`
	Model        string `koanf:"model"`
	PromptBudget int    `koanf:"prompt_budget"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configPath (skipped when missing) and overlays environment
// variables, e.g. SUPPORTBOT_SERVER__PORT=9090 sets server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("SUPPORTBOT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SUPPORTBOT_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"server.port":              8080,
		"server.shutdown_timeout":  "10s",
		"server.rate_limit":        60,
		"server.rate_limit_window": "1m",
		"content.error_codes_path": "content/error_codes.json",
		"content.flows_path":       "content/flows.json",
		"content.watch":            true,
		"sessions.backend":         "memory",
		"sessions.timeout":         "30m",
		"sessions.sqlite.path":     "sessions.db",
		"openai.model":             "gpt-4o-mini",
		"openai.prompt_budget":     512,
		"logging.level":            "info",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Sessions.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown sessions backend %q", c.Sessions.Backend)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
