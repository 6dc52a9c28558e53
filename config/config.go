// Package config loads run configuration. Values come from built-in
// defaults, then the YAML config file, then VERSESCRAPE_* environment
// variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pevans/versescrape/scraper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// VERSESCRAPE_HARVEST_TABS.
const EnvPrefix = "VERSESCRAPE"

// Config is the full run configuration.
type Config struct {
	Site    scraper.SiteConfig `yaml:"site" mapstructure:"site"`
	Harvest HarvestConfig      `yaml:"harvest" mapstructure:"harvest"`
	Output  OutputConfig       `yaml:"output" mapstructure:"output"`
	Store   StoreConfig        `yaml:"store" mapstructure:"store"`
	Log     LogConfig          `yaml:"log" mapstructure:"log"`
	API     APIConfig          `yaml:"api" mapstructure:"api"`
}

// HarvestConfig controls the tab pool.
type HarvestConfig struct {
	Tabs           int           `yaml:"tabs" mapstructure:"tabs"`
	Attempts       uint          `yaml:"attempts" mapstructure:"attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay"`
	ContentTimeout time.Duration `yaml:"content_timeout" mapstructure:"content_timeout"`
	NextTimeout    time.Duration `yaml:"next_timeout" mapstructure:"next_timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int           `yaml:"burst" mapstructure:"burst"`
	Books          []string      `yaml:"books" mapstructure:"books"`
}

// OutputConfig controls book files.
type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	Format     string `yaml:"format" mapstructure:"format"`
	NumericIDs bool   `yaml:"numeric_ids" mapstructure:"numeric_ids"`
	Aggregate  bool   `yaml:"aggregate" mapstructure:"aggregate"`
}

// StoreConfig controls the SQLite store.
type StoreConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// APIConfig controls the read API server.
type APIConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Site: *scraper.DefaultSiteConfig(),
		Harvest: HarvestConfig{
			Tabs:           4,
			Attempts:       3,
			RetryDelay:     2 * time.Second,
			MaxRetryDelay:  30 * time.Second,
			ContentTimeout: 15 * time.Second,
			NextTimeout:    10 * time.Second,
			RequestsPerSec: 2,
			Burst:          1,
		},
		Output: OutputConfig{
			Dir:       "output",
			Format:    "flat",
			Aggregate: true,
		},
		Store: StoreConfig{
			Path:    "versescrape.db",
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Host: "localhost",
			Port: 8080,
		},
	}
}

// FlagBindings maps config keys to the command-line flags that override
// them. Flags missing from a command's flag set are ignored.
var FlagBindings = map[string]string{
	"site.version":              "bible-version",
	"site.book_list_url":        "book-list-url",
	"site.chapter.max_chapters": "max-chapters",
	"harvest.tabs":              "tabs",
	"harvest.attempts":          "attempts",
	"harvest.content_timeout":   "content-timeout",
	"harvest.books":             "books",
	"output.dir":                "out",
	"output.format":             "format",
	"output.numeric_ids":        "numeric-ids",
	"output.aggregate":          "aggregate",
	"store.path":                "db",
	"store.enabled":             "store",
	"log.level":                 "log-level",
	"log.format":                "log-format",
	"api.host":                  "host",
	"api.port":                  "port",
}

// Load builds the configuration. path names the config file; when empty the
// default path is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	base, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = ExistingConfigPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no run can use.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Site.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("site: %w", err))
	}
	if c.Harvest.Tabs < 1 {
		errs = append(errs, errors.New("harvest.tabs must be at least 1"))
	}
	if c.Harvest.Attempts < 1 {
		errs = append(errs, errors.New("harvest.attempts must be at least 1"))
	}
	if c.Harvest.RequestsPerSec < 0 {
		errs = append(errs, errors.New("harvest.requests_per_sec must not be negative"))
	}
	switch c.Output.Format {
	case "flat", "wrapped", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format %q must be flat, wrapped or yaml", c.Output.Format))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	if c.Store.Enabled && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required when the store is enabled"))
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
