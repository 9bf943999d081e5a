// Package config loads the maildir tool's configuration from defaults, a
// YAML file and MAILSTORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/infodancer/mailstore"
	"github.com/infodancer/mailstore/maildir"
)

// EnvPrefix is the prefix of environment variables that override settings,
// e.g. MAILSTORE_MAILDIR_PATH for maildir.path.
const EnvPrefix = "MAILSTORE"

// Config represents the complete configuration
type Config struct {
	Maildir MaildirConfig `mapstructure:"maildir"`
	Store   StoreConfig   `mapstructure:"store"`
	Keys    KeysConfig    `mapstructure:"keys"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MaildirConfig controls how a single maildir is opened
type MaildirConfig struct {
	// Path is the maildir the commands operate on
	Path string `mapstructure:"path"`
	// Hostname overrides the host name written into new message names
	Hostname string `mapstructure:"hostname"`
	// RetryInterval is the wait before retrying a colliding staging name
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	// LenientCount counts a missing new/ or cur/ as empty instead of failing
	LenientCount bool `mapstructure:"lenient_count"`
}

// StoreConfig selects the message store used by deliver
type StoreConfig struct {
	Type          string `mapstructure:"type"`
	BasePath      string `mapstructure:"base_path"`
	MaildirSubdir string `mapstructure:"maildir_subdir"`
	PathTemplate  string `mapstructure:"path_template"`
}

// KeysConfig locates per-user encryption keys
type KeysConfig struct {
	// Dir is the key directory; empty disables encryption on delivery
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Maildir: MaildirConfig{
			RetryInterval: maildir.DefaultRetryInterval,
		},
		Store: StoreConfig{
			Type: "maildir",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("maildir.path", defaults.Maildir.Path)
	v.SetDefault("maildir.hostname", defaults.Maildir.Hostname)
	v.SetDefault("maildir.retry_interval", defaults.Maildir.RetryInterval)
	v.SetDefault("maildir.lenient_count", defaults.Maildir.LenientCount)

	v.SetDefault("store.type", defaults.Store.Type)
	v.SetDefault("store.base_path", defaults.Store.BasePath)
	v.SetDefault("store.maildir_subdir", defaults.Store.MaildirSubdir)
	v.SetDefault("store.path_template", defaults.Store.PathTemplate)

	v.SetDefault("keys.dir", defaults.Keys.Dir)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// Init prepares v to read configuration. cfgFile, if set, names the config
// file; otherwise config.yaml is looked up in ConfigDir and the working
// directory. A missing config file is not an error.
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
	// e.g., MAILSTORE_STORE_BASE_PATH for store.base_path
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

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.Maildir.RetryInterval <= 0 {
		return fmt.Errorf("maildir.retry_interval must be positive, got %s", c.Maildir.RetryInterval)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// MaildirOptions returns the maildir options selected by the configuration.
func (c *Config) MaildirOptions() []maildir.Option {
	opts := []maildir.Option{maildir.WithRetryInterval(c.Maildir.RetryInterval)}
	if c.Maildir.Hostname != "" {
		opts = append(opts, maildir.WithIdentity(maildir.StaticIdentity{
			PID:  os.Getpid(),
			Host: c.Maildir.Hostname,
		}))
	}
	if c.Maildir.LenientCount {
		opts = append(opts, maildir.WithLenientCount())
	}
	return opts
}

// StoreConfig returns the registry configuration for the message store.
func (c *Config) StoreConfig() mailstore.StoreConfig {
	cfg := mailstore.StoreConfig{
		Type:     c.Store.Type,
		BasePath: c.Store.BasePath,
		Options:  map[string]string{},
	}
	if c.Store.MaildirSubdir != "" {
		cfg.Options["maildir_subdir"] = c.Store.MaildirSubdir
	}
	if c.Store.PathTemplate != "" {
		cfg.Options["path_template"] = c.Store.PathTemplate
	}
	if c.Maildir.LenientCount {
		cfg.Options["lenient_count"] = "true"
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailstore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailstore"
	}
	return filepath.Join(home, ".config", "mailstore")
}
