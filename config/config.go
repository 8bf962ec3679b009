package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log         LogConfig                   `mapstructure:"log"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Secrets     SecretsConfig               `mapstructure:"secrets"`
	DataSources map[string]DataSourceConfig `mapstructure:"datasources"`
	Sync        SyncConfig                  `mapstructure:"sync"`
	Metrics     MetricsConfig               `mapstructure:"metrics"`

	// order keeps datasource names in the order the config file lists them.
	order []string
}

// DataSourceConfig is one entry under datasources.<name>.
// Keys other than class and market_watch_only are provider specific and kept in Params.
type DataSourceConfig struct {
	Name            string         `mapstructure:"-"`
	Class           string         `mapstructure:"class"`
	MarketWatchOnly bool           `mapstructure:"market_watch_only"`
	Params          map[string]any `mapstructure:",remain"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"

	// Levels overrides Level per named logger, e.g. {"database": "warn", "datasource:mt5": "debug"}.
	// A name also covers its children. Child names are joined with ":" since viper splits keys on ".".
	Levels map[string]string `mapstructure:"levels"`
}

type SyncConfig struct {
	Interval      time.Duration `mapstructure:"interval"`       // 0 runs a single pass
	AlignMidnight bool          `mapstructure:"align_midnight"` // wait for UTC midnight before repeating
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. ":9090", empty disables the endpoint
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := newViper()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}
	v.AddConfigPath(".")

	cfg, err := read(v)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("database.dialect", "postgresql")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.password_key", "db_pass")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.timeout", 5*time.Second)

	// Support environment variables with dot notation (e.g., DATABASE_HOST)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	listed, err := datasourceOrder(v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}

	entries := cfg.DataSources
	cfg.DataSources = nil
	for _, name := range orderNames(listed, entries) {
		ds := entries[name]
		ds.Name = name
		cfg.AddDataSource(ds)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// datasourceOrder returns the keys of the datasources mapping in document order.
// Viper lower-cases keys, so the names are lower-cased here as well.
func datasourceOrder(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil
	}

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if strings.ToLower(root.Content[i].Value) != "datasources" {
			continue
		}
		section := root.Content[i+1]
		if section.Kind != yaml.MappingNode {
			return nil, nil
		}
		names := make([]string, 0, len(section.Content)/2)
		for j := 0; j+1 < len(section.Content); j += 2 {
			names = append(names, strings.ToLower(section.Content[j].Value))
		}
		return names, nil
	}
	return nil, nil
}

// orderNames puts the listed names first, then any names only known to viper
// (for example injected through the environment) in sorted order.
func orderNames(listed []string, entries map[string]DataSourceConfig) []string {
	out := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, name := range listed {
		if _, ok := entries[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range entries {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// AddDataSource registers a datasource entry, keeping insertion order.
func (c *Config) AddDataSource(ds DataSourceConfig) {
	if c.DataSources == nil {
		c.DataSources = make(map[string]DataSourceConfig)
	}
	if _, exists := c.DataSources[ds.Name]; !exists {
		c.order = append(c.order, ds.Name)
	}
	c.DataSources[ds.Name] = ds
}

// DataSourceNames returns every configured datasource name in configuration order.
func (c *Config) DataSourceNames() []string {
	if len(c.order) == len(c.DataSources) {
		out := make([]string, len(c.order))
		copy(out, c.order)
		return out
	}
	return orderNames(c.order, c.DataSources)
}

// DataSource returns the configuration entry for name.
func (c *Config) DataSource(name string) (DataSourceConfig, bool) {
	ds, ok := c.DataSources[name]
	if ok && ds.Name == "" {
		ds.Name = name
	}
	return ds, ok
}
