// Package config loads d43 settings from defaults, a config file and D43_
// environment variables, in increasing priority. Command-line flags bound
// with BindFlags override all three.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/unfoldingword/door43-client/internal/index/sync"
)

// EnvPrefix prefixes every environment override, e.g. D43_DAEMON_INTERVAL.
const EnvPrefix = "D43"

// Name is the config file base name; d43.yaml and d43.toml are both found.
const Name = "d43"

// Config is the complete d43 configuration.
type Config struct {
	// DB is the index database path.
	DB string `mapstructure:"db" yaml:"db" toml:"db" json:"db"`

	// PrimaryURL is the legacy primary catalog indexed by `index primary`.
	PrimaryURL string `mapstructure:"primary_url" yaml:"primary_url" toml:"primary_url" json:"primary_url"`

	// GlobalCatalogHost serves the auxiliary catalogs.
	GlobalCatalogHost string `mapstructure:"global_catalog_host" yaml:"global_catalog_host" toml:"global_catalog_host" json:"global_catalog_host"`

	Fetch     Fetch     `mapstructure:"fetch" yaml:"fetch" toml:"fetch" json:"fetch"`
	Daemon    Daemon    `mapstructure:"daemon" yaml:"daemon" toml:"daemon" json:"daemon"`
	Dashboard Dashboard `mapstructure:"dashboard" yaml:"dashboard" toml:"dashboard" json:"dashboard"`
	Log       Log       `mapstructure:"log" yaml:"log" toml:"log" json:"log"`
}

// Fetch configures the catalog HTTP client.
type Fetch struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" toml:"timeout" json:"timeout"`
	Retries   int           `mapstructure:"retries" yaml:"retries" toml:"retries" json:"retries"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent" toml:"user_agent" json:"user_agent"`
}

// Daemon configures `d43 daemon`.
type Daemon struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval" toml:"interval" json:"interval"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce" toml:"debounce" json:"debounce"`
	MirrorDir string        `mapstructure:"mirror_dir" yaml:"mirror_dir" toml:"mirror_dir" json:"mirror_dir"`
	Catalogs  []string      `mapstructure:"catalogs" yaml:"catalogs" toml:"catalogs" json:"catalogs"`
}

// Dashboard configures `d43 dashboard`.
type Dashboard struct {
	Port int `mapstructure:"port" yaml:"port" toml:"port" json:"port"`
}

// Log configures log output. An empty File logs to stderr only.
type Log struct {
	File       string `mapstructure:"file" yaml:"file" toml:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" toml:"compress" json:"compress"`
}

// Dir returns the per-user d43 directory, $HOME/.door43. It falls back to
// .door43 in the working directory when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".door43"
	}
	return filepath.Join(home, ".door43")
}

// SetDefaults registers every key with its default on v. Keys must be
// registered for D43_ environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", filepath.Join(Dir(), "index.db"))
	v.SetDefault("primary_url", sync.DefaultPrimaryURL)
	v.SetDefault("global_catalog_host", sync.DefaultGlobalCatalogHost)

	v.SetDefault("fetch.timeout", time.Minute)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.user_agent", "door43-client")

	v.SetDefault("daemon.interval", time.Hour)
	v.SetDefault("daemon.debounce", 500*time.Millisecond)
	v.SetDefault("daemon.mirror_dir", "")
	v.SetDefault("daemon.catalogs", sync.GlobalCatalogSlugs())

	v.SetDefault("dashboard.port", 8080)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// New returns a viper instance with defaults and environment overrides set
// up, but no config file read yet.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v. With an empty path it searches the working
// directory and Dir() for d43.yaml, d43.toml or d43.json; finding none is
// not an error. An explicit path that cannot be read is.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %w", path, err)
		}
		return nil
	}

	v.SetConfigName(Name)
	v.AddConfigPath(".")
	v.AddConfigPath(Dir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	return nil
}

// BindFlags lets the named flags override their config keys, e.g.
// BindFlags(v, flags, map[string]string{"db": "db", "port": "dashboard.port"}).
// Flags missing from the set are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Unmarshal decodes v into a validated Config.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads defaults, the config file at path (or the search paths when
// empty) and the environment.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Unmarshal(v)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("invalid config: db is required")
	}
	if err := absoluteURL("primary_url", c.PrimaryURL); err != nil {
		return err
	}
	if err := absoluteURL("global_catalog_host", c.GlobalCatalogHost); err != nil {
		return err
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("invalid config: fetch.timeout must not be negative")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("invalid config: fetch.retries must not be negative")
	}
	if c.Daemon.Interval < 0 || c.Daemon.Debounce < 0 {
		return fmt.Errorf("invalid config: daemon durations must not be negative")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("invalid config: dashboard.port %d out of range", c.Dashboard.Port)
	}
	return nil
}

func absoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid config: %s %q is not an absolute url", key, raw)
	}
	return nil
}
