package datasource

import (
	"context"
	"fmt"

	"algosync/config"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Source is a resolved data source. It must be opened before listing symbols
// and closed afterwards. Not safe for concurrent use.
type Source struct {
	cfg      config.DataSourceConfig
	terminal Terminal
	ready    bool
	logger   *zap.Logger
}

func NewSource(cfg config.DataSourceConfig, terminal Terminal, logger *zap.Logger) *Source {
	return &Source{
		cfg:      cfg,
		terminal: terminal,
		logger:   logger.With(zap.String("datasource", cfg.Name)),
	}
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) Class() string { return s.cfg.Class }

func (s *Source) MarketWatchOnly() bool { return s.cfg.MarketWatchOnly }

// Ready reports whether the provider connection is open.
func (s *Source) Ready() bool { return s.ready }

// Open connects the provider. On failure the source stays not ready.
func (s *Source) Open(ctx context.Context) error {
	if s.ready {
		return nil
	}
	if err := s.terminal.Connect(ctx); err != nil {
		s.logger.Error("failed to open datasource", zap.String("class", s.cfg.Class), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, s.cfg.Name, err)
	}
	s.ready = true
	return nil
}

// Close disconnects the provider. Closing a source that is not open is a no-op.
func (s *Source) Close() error {
	if !s.ready {
		return nil
	}
	s.ready = false
	if err := s.terminal.Disconnect(); err != nil {
		return fmt.Errorf("close datasource %s: %w", s.cfg.Name, err)
	}
	return nil
}

// ListSymbols returns the provider's symbol names in provider order.
// With market_watch_only set, only visible symbols are returned.
func (s *Source) ListSymbols(ctx context.Context) ([]string, error) {
	if !s.ready {
		return nil, fmt.Errorf("%w: %s is not open", ErrProviderUnavailable, s.cfg.Name)
	}

	all, err := s.terminal.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: list symbols: %w", ErrProviderUnavailable, s.cfg.Name, err)
	}

	names := make([]string, 0, len(all))
	for _, symbol := range all {
		if !s.cfg.MarketWatchOnly || symbol.Visible {
			names = append(names, symbol.Name)
		}
	}

	total, err := s.terminal.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count symbols", zap.Error(err))
		total = len(all)
	}
	s.logger.Debug(fmt.Sprintf("%d of %d returned", len(names), total),
		zap.Int("selected", len(names)),
		zap.Int("total", total),
		zap.Bool("market_watch_only", s.cfg.MarketWatchOnly),
	)

	return names, nil
}

// Use opens src, runs fn and closes src on every path.
func Use(ctx context.Context, src *Source, fn func(ctx context.Context) error) (err error) {
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()
	return fn(ctx)
}

// UseAll opens every source, runs fn and closes the opened sources on every
// path. If a source fails to open, fn is not run and the error wraps
// ErrProviderUnavailable. Calling it again reconnects from scratch.
func UseAll(ctx context.Context, sources []*Source, fn func(ctx context.Context) error) error {
	if len(sources) == 0 {
		return fn(ctx)
	}
	return Use(ctx, sources[0], func(ctx context.Context) error {
		return UseAll(ctx, sources[1:], fn)
	})
}
