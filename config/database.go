package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig defines how to reach the application database.
// The password is not part of the file; it is looked up in the secret store under PasswordKey.
type DatabaseConfig struct {
	Dialect     string `mapstructure:"dialect"` // "postgresql", "postgres" or "sqlite"
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Database    string `mapstructure:"database"` // database name, or file path for sqlite
	Username    string `mapstructure:"username"`
	PasswordKey string `mapstructure:"password_key"`
	SSLMode     string `mapstructure:"sslmode"`
	TimeZone    string `mapstructure:"timezone"`

	CreateDatabase  bool          `mapstructure:"create_database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Driver normalizes Dialect to one of the supported drivers, or "" if unknown.
// Dialects may carry a driver suffix such as "postgresql+psycopg2".
func (cfg DatabaseConfig) Driver() string {
	dialect := strings.ToLower(cfg.Dialect)
	if i := strings.IndexByte(dialect, '+'); i >= 0 {
		dialect = dialect[:i]
	}
	switch dialect {
	case "postgres", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return ""
	}
}

// DSN builds the connection string for the configured driver.
func (cfg DatabaseConfig) DSN(password string) string {
	if cfg.Driver() == DriverSQLite {
		return cfg.Database
	}
	return cfg.postgresDSN(cfg.Database, password)
}

// MaintenanceDSN points at the server's default "postgres" database,
// used to create the application database when it does not exist yet.
func (cfg DatabaseConfig) MaintenanceDSN(password string) string {
	return cfg.postgresDSN("postgres", password)
}

func (cfg DatabaseConfig) postgresDSN(dbName, password string) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s", cfg.Host, cfg.Port, cfg.Username)

	if password != "" {
		dsn += fmt.Sprintf(" password=%s", password)
	}

	dsn += fmt.Sprintf(" dbname=%s sslmode=%s", dbName, cfg.SSLMode)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}
