// Package config loads ForgePilot settings from defaults, an optional YAML
// file, FORGEPILOT_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// FORGEPILOT_BACKEND_URL or FORGEPILOT_SERVER_PORT.
const EnvPrefix = "FORGEPILOT"

// Config represents the complete ForgePilot configuration
type Config struct {
	// BackendURL selects the agent host the chat client talks to
	BackendURL string `mapstructure:"backend_url"`
	// APIPrefix is the path under which /health and /message live
	APIPrefix string `mapstructure:"api_prefix"`
	// HTTPTimeout bounds every client request
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// DownloadDir is where bundle downloads are saved
	DownloadDir string `mapstructure:"download_dir"`
	// StateDir holds the client log and the server's database and sandbox
	StateDir string `mapstructure:"state_dir"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	Server ServerConfig `mapstructure:"server"`
}

// ServerConfig controls the local agent server started by `forgepilot serve`
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	DBPath       string `mapstructure:"db_path"`
	SandboxDir   string `mapstructure:"sandbox_dir"`
	AllowExecute bool   `mapstructure:"allow_execute"`
}

// DefaultBackendURL is used when nothing else selects a backend host
const DefaultBackendURL = "http://localhost:8001"

// Default returns the default configuration
func Default() *Config {
	state := defaultStateDir()
	return &Config{
		BackendURL:  DefaultBackendURL,
		APIPrefix:   "/api",
		HTTPTimeout: 30 * time.Second,
		DownloadDir: ".",
		StateDir:    state,
		LogLevel:    "info",
		Server: ServerConfig{
			Port:       8001,
			DBPath:     filepath.Join(state, "forgepilot.db"),
			SandboxDir: filepath.Join(state, "sandbox"),
		},
	}
}

// defaultStateDir returns ~/.forgepilot, or a relative .forgepilot when the
// home directory cannot be resolved
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forgepilot"
	}
	return filepath.Join(home, ".forgepilot")
}

// ConfigDir returns the directory searched for config.yaml
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "forgepilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "forgepilot")
}

// SetDefaults registers every default on v so that env overrides and
// Unmarshal see the full key set even without a config file
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend_url", d.BackendURL)
	v.SetDefault("api_prefix", d.APIPrefix)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("download_dir", d.DownloadDir)
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.db_path", "")
	v.SetDefault("server.sandbox_dir", "")
	v.SetDefault("server.allow_execute", d.Server.AllowExecute)
}

// Init prepares v: defaults, config file search paths and env binding.
// A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config, fills derived paths and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = filepath.Join(cfg.StateDir, "forgepilot.db")
	}
	if cfg.Server.SandboxDir == "" {
		cfg.Server.SandboxDir = filepath.Join(cfg.StateDir, "sandbox")
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.APIPrefix = normalizePrefix(cfg.APIPrefix)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields that would otherwise fail late and obscurely
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url must not be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url must be http or https, got %q", c.BackendURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// normalizePrefix turns "api/", "/api/" and "api" into "/api"; "" and "/" stay empty
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
