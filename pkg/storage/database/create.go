package database

import (
	"context"
	"database/sql"
	"fmt"

	"algosync/config"

	"github.com/lib/pq"
)

// CreateDatabase connects to the server's maintenance database and creates
// cfg.Database if it doesn't exist. Postgres only.
func CreateDatabase(ctx context.Context, cfg config.DatabaseConfig, password string) error {
	db, err := sql.Open("postgres", cfg.MaintenanceDSN(password))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, cfg.Database).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}

	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.Database)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}

	return nil
}
