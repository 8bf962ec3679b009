package datasource

import (
	"fmt"

	"algosync/config"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Resolver builds Sources from configuration.
type Resolver struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger
}

func NewResolver(cfg *config.Config, registry *Registry, logger *zap.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// Resolve builds the source configured under datasources.<name>.
func (r *Resolver) Resolve(name string) (*Source, error) {
	dsCfg, ok := r.cfg.DataSource(name)
	if !ok {
		return nil, fmt.Errorf("%w: datasource %s is not configured", ErrConfiguration, name)
	}

	factory, err := r.registry.Lookup(dsCfg.Class)
	if err != nil {
		return nil, fmt.Errorf("datasource %s: %w", name, err)
	}

	terminal, err := factory(dsCfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: datasource %s: %w", ErrConfiguration, name, err)
	}

	return NewSource(dsCfg, terminal, r.logger), nil
}

// AllInstances resolves every configured datasource in configuration order.
// A datasource that fails to resolve is logged and skipped; the others are
// still returned, together with the combined resolution errors.
func (r *Resolver) AllInstances() ([]*Source, error) {
	var (
		sources []*Source
		errs    error
	)

	for _, name := range r.cfg.DataSourceNames() {
		src, err := r.Resolve(name)
		if err != nil {
			r.logger.Error("failed to resolve datasource", zap.String("datasource", name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		sources = append(sources, src)
	}

	return sources, errs
}
