package datasource

import (
	"context"

	"algosync/config"

	"go.uber.org/zap"
)

// SymbolInfo is a symbol as reported by a provider.
type SymbolInfo struct {
	Name    string
	Visible bool // shown in the provider's market watch / currently tradable
}

// Terminal is the client side of an external symbol provider.
type Terminal interface {
	Connect(ctx context.Context) error
	Disconnect() error
	ListAll(ctx context.Context) ([]SymbolInfo, error)
	Count(ctx context.Context) (int, error)
}

// Factory builds a Terminal for a configured datasource.
type Factory func(cfg config.DataSourceConfig, logger *zap.Logger) (Terminal, error)
