package database

import (
	"context"
	"fmt"

	"algosync/internal/mapping"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

// GetMappings returns every datasource_symbol row ordered by id.
// Returns an empty table when not connected.
func (d *Database) GetMappings(ctx context.Context) (*mapping.Table, error) {
	if !d.connected {
		return mapping.NewTable(), nil
	}

	var records []DataSourceSymbolRecord
	if err := d.DB.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("select datasource symbols: %w", err)
	}

	rows := make([]mapping.Row, len(records))
	for i, r := range records {
		rows[i] = mapping.Row{
			ID:                r.ID,
			DataSourceName:    r.DataSourceName,
			SymbolName:        r.SymbolName,
			RetrievePriceData: r.RetrievePriceData,
		}
	}
	return mapping.NewTable(rows...), nil
}

// UpsertMappings inserts rows without an ID and updates rows with one, in a
// single transaction. Parent datasource and symbol rows are inserted before
// the mapping rows that reference them. On any error nothing is committed.
//
// Existing rows are identified by ID; only retrieve_price_data is updated.
// The freshly read table is returned so that generated IDs are visible.
// When not connected the input is returned unchanged.
func (d *Database) UpsertMappings(ctx context.Context, table *mapping.Table) (*mapping.Table, error) {
	if !d.connected {
		d.logger.Warn("database not connected, datasource symbols not saved")
		return table, nil
	}

	created, existing := table.Partition()

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertMappings(tx, created); err != nil {
			return err
		}
		return updateMappings(tx, existing)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert datasource symbols: %w", err)
	}

	d.logger.Info("datasource symbols saved",
		zap.Int("inserted", len(created)),
		zap.Int("updated", len(existing)),
	)

	return d.GetMappings(ctx)
}

func insertMappings(tx *gorm.DB, rows []mapping.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var datasources []DataSourceRecord
	seen := map[string]bool{}
	for _, r := range rows {
		if !seen[r.DataSourceName] {
			seen[r.DataSourceName] = true
			datasources = append(datasources, DataSourceRecord{Name: r.DataSourceName})
		}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&datasources).Error; err != nil {
		return fmt.Errorf("insert datasources: %w", err)
	}

	names := mapping.Symbols(rows)
	symbols := make([]SymbolRecord, len(names))
	for i, name := range names {
		symbols[i] = SymbolRecord{Name: name}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&symbols, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert symbols: %w", err)
	}

	records := make([]DataSourceSymbolRecord, len(rows))
	for i, r := range rows {
		records[i] = DataSourceSymbolRecord{
			DataSourceName:    r.DataSourceName,
			SymbolName:        r.SymbolName,
			RetrievePriceData: r.RetrievePriceData,
		}
	}
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "datasource_name"},
				{Name: "symbol_name"},
			},
			DoNothing: true,
		}).
		CreateInBatches(&records, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("insert datasource symbols: %w", err)
	}
	return nil
}

// updateMappings sets retrieve_price_data with one statement per flag value
// and chunk of at most insertBatchSize ids.
func updateMappings(tx *gorm.DB, rows []mapping.Row) error {
	byFlag := map[bool][]uint{}
	for _, r := range rows {
		byFlag[r.RetrievePriceData] = append(byFlag[r.RetrievePriceData], r.ID)
	}

	for _, flag := range []bool{true, false} {
		ids := byFlag[flag]
		for len(ids) > 0 {
			n := min(len(ids), insertBatchSize)
			err := tx.Model(&DataSourceSymbolRecord{}).
				Where("id IN ?", ids[:n]).
				Update("retrieve_price_data", flag).Error
			if err != nil {
				return fmt.Errorf("update datasource symbols: %w", err)
			}
			ids = ids[n:]
		}
	}
	return nil
}
