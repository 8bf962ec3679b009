package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EnsureDataSources creates missing tables and inserts a datasource row for
// every name not already present. Safe to call on every startup.
func (d *Database) EnsureDataSources(ctx context.Context, names []string) error {
	if !d.connected {
		return nil
	}

	if err := d.AutoMigrate(ctx); err != nil {
		return err
	}

	existing, err := d.DataSourceNames(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var missing []DataSourceRecord
	for _, name := range names {
		if !have[name] {
			missing = append(missing, DataSourceRecord{Name: name})
			have[name] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if err := d.DB.WithContext(ctx).Create(&missing).Error; err != nil {
		return fmt.Errorf("insert datasources: %w", err)
	}
	d.logger.Info("registered datasources", zap.Int("count", len(missing)))
	return nil
}

// DataSourceNames returns every persisted datasource name.
func (d *Database) DataSourceNames(ctx context.Context) ([]string, error) {
	if !d.connected {
		return nil, nil
	}

	var names []string
	err := d.DB.WithContext(ctx).
		Model(&DataSourceRecord{}).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("select datasources: %w", err)
	}
	return names, nil
}
