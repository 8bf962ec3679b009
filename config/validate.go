package config

import (
	"errors"
	"fmt"
)

// MaxDataSourceNameLen is the width of the datasource name column.
const MaxDataSourceNameLen = 20

// Validate checks that required fields are set and values are usable.
func (c *Config) Validate() error {
	if c.Database.Driver() == "" {
		return fmt.Errorf("database.dialect %q is not supported", c.Database.Dialect)
	}
	if c.Database.Database == "" {
		return errors.New("database.database is required")
	}
	if c.Database.Driver() == DriverPostgres && c.Database.Host == "" {
		return errors.New("database.host is required")
	}

	switch c.Secrets.Provider {
	case "", SecretsEnv, SecretsSSM:
	default:
		return fmt.Errorf("secrets.provider must be %q or %q, got %q", SecretsEnv, SecretsSSM, c.Secrets.Provider)
	}

	for _, name := range c.DataSourceNames() {
		if len(name) > MaxDataSourceNameLen {
			return fmt.Errorf("datasources.%s: name is longer than %d characters", name, MaxDataSourceNameLen)
		}
		if c.DataSources[name].Class == "" {
			return fmt.Errorf("datasources.%s.class is required", name)
		}
	}

	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must be >= 0, got %s", c.Sync.Interval)
	}

	return nil
}
