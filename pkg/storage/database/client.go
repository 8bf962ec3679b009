package database

import (
	"context"
	"errors"
	"fmt"

	"algosync/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotConnected is returned by Ping when the database could not be reached at startup.
var ErrNotConnected = errors.New("database not connected")

// Database is the application's persistence gateway.
//
// A failed connection does not make Open fail: Connected reports false and every
// operation becomes a no-op, so callers can keep running without a database.
// A Database holds a single connection and is not safe for concurrent use.
type Database struct {
	DB        *gorm.DB
	connected bool
	logger    *zap.Logger
}

// Open connects to the configured database.
func Open(ctx context.Context, cfg config.DatabaseConfig, password string, logger *zap.Logger) *Database {
	d := &Database{logger: logger}

	if cfg.CreateDatabase && cfg.Driver() == config.DriverPostgres {
		if err := CreateDatabase(ctx, cfg, password); err != nil {
			logger.Warn("could not create database", zap.String("database", cfg.Database), zap.Error(err))
		}
	}

	db, err := connect(ctx, cfg, password)
	if err != nil {
		logger.Warn("could not connect to database, persistence disabled",
			zap.String("dialect", cfg.Dialect),
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Database),
			zap.Error(err),
		)
		return d
	}

	d.DB = db
	d.connected = true
	logger.Info("database connected", zap.String("dialect", cfg.Dialect), zap.String("database", cfg.Database))
	return d
}

func connect(ctx context.Context, cfg config.DatabaseConfig, password string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver() {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN(password))
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN(password))
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
	}

	// One shared connection, reused by every call.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return db, nil
}

// Connected reports whether the database was reachable when opened.
func (d *Database) Connected() bool {
	return d.connected
}

// Ping checks the connection is still alive.
func (d *Database) Ping(ctx context.Context) error {
	if !d.connected {
		return ErrNotConnected
	}
	db, err := d.DB.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (d *Database) IsHealthy(ctx context.Context) bool {
	return d.Ping(ctx) == nil
}

// AutoMigrate creates any missing tables.
func (d *Database) AutoMigrate(ctx context.Context) error {
	if !d.connected {
		return nil
	}
	err := d.DB.WithContext(ctx).AutoMigrate(
		&DataSourceRecord{},
		&SymbolRecord{},
		&DataSourceSymbolRecord{},
		&CandleRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	if !d.connected {
		return nil
	}
	db, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	d.connected = false
	return db.Close()
}
