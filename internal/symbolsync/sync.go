// Package symbolsync copies symbol lists from data sources into the database.
package symbolsync

import (
	"context"
	"fmt"
	"time"

	"algosync/internal/datasource"
	"algosync/internal/mapping"
	"algosync/internal/metrics"

	"go.uber.org/zap"
)

// Lister is a data source that can list its symbols.
type Lister interface {
	Name() string
	ListSymbols(ctx context.Context) ([]string, error)
}

// Gateway is the persistence side of a sync.
type Gateway interface {
	Connected() bool
	GetMappings(ctx context.Context) (*mapping.Table, error)
	UpsertMappings(ctx context.Context, table *mapping.Table) (*mapping.Table, error)
}

type Syncer struct {
	gw     Gateway
	logger *zap.Logger
}

func New(gw Gateway, logger *zap.Logger) *Syncer {
	return &Syncer{gw: gw, logger: logger}
}

// Run adds every (datasource, symbol) pair not yet persisted, with price data
// retrieval enabled, and returns the saved table. Existing rows are kept even
// if a source no longer lists the symbol.
//
// If any source fails to list its symbols the pass stops and nothing is written.
// With a disconnected gateway Run does nothing and returns an empty table.
func (s *Syncer) Run(ctx context.Context, sources []Lister) (table *mapping.Table, err error) {
	defer s.observe(time.Now(), &err)
	return s.run(ctx, sources)
}

// RunSources is Run for sources that hold a provider connection. The sources
// are opened for this pass only and closed on every path, so a provider that
// was down or dropped its connection is reconnected on the next pass.
// Providers are not contacted when the gateway is disconnected.
func (s *Syncer) RunSources(ctx context.Context, sources []*datasource.Source) (table *mapping.Table, err error) {
	defer s.observe(time.Now(), &err)

	if !s.gw.Connected() {
		return s.run(ctx, nil)
	}

	listers := make([]Lister, len(sources))
	for i, src := range sources {
		listers[i] = src
	}

	var runErr error
	err = datasource.UseAll(ctx, sources, func(ctx context.Context) error {
		table, runErr = s.run(ctx, listers)
		return runErr
	})
	switch {
	case runErr != nil:
		return nil, runErr
	case err != nil && table == nil:
		s.logger.Error("failed to open datasources", zap.Error(err))
		return nil, err
	case err != nil:
		s.logger.Warn("failed to close datasources", zap.Error(err))
	}
	return table, nil
}

func (s *Syncer) observe(start time.Time, err *error) {
	metrics.SyncRuns.Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	if *err != nil {
		metrics.SyncFailures.Inc()
	}
}

func (s *Syncer) run(ctx context.Context, sources []Lister) (*mapping.Table, error) {
	start := time.Now()

	if !s.gw.Connected() {
		s.logger.Warn("database not connected, skipping symbol sync")
		return mapping.NewTable(), nil
	}

	table, err := s.gw.GetMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}

	discovered := map[string]int{}
	for _, src := range sources {
		symbols, err := src.ListSymbols(ctx)
		if err != nil {
			s.logger.Error("failed to list symbols", zap.String("datasource", src.Name()), zap.Error(err))
			return nil, fmt.Errorf("list symbols for %s: %w", src.Name(), err)
		}

		for _, symbol := range symbols {
			added := table.Append(mapping.Row{
				DataSourceName:    src.Name(),
				SymbolName:        symbol,
				RetrievePriceData: true,
			})
			if added {
				discovered[src.Name()]++
			}
		}

		s.logger.Info("listed datasource symbols",
			zap.String("datasource", src.Name()),
			zap.Int("listed", len(symbols)),
			zap.Int("new", discovered[src.Name()]),
		)
	}

	saved, err := s.gw.UpsertMappings(ctx, table)
	if err != nil {
		return nil, err
	}

	for name, n := range discovered {
		metrics.SymbolsDiscovered.WithLabelValues(name).Add(float64(n))
	}
	metrics.MappingRows.Set(float64(saved.Len()))

	s.logger.Info("symbol sync complete",
		zap.Int("rows", saved.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return saved, nil
}
