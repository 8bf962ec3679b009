package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"algosync/config"
	"algosync/pkg/bybit"
	"algosync/pkg/terminal"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// Built-in provider classes.
const (
	ClassMT5   = "mt5"
	ClassBybit = "bybit"
)

type mt5Params struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// mt5Terminal reaches a MetaTrader 5 terminal through its WebSocket bridge.
type mt5Terminal struct {
	client *terminal.Client
}

// NewMT5Terminal is the Factory for ClassMT5. Params: url (required), timeout.
func NewMT5Terminal(cfg config.DataSourceConfig, logger *zap.Logger) (Terminal, error) {
	params := mt5Params{Timeout: 10 * time.Second}
	if err := decodeParams(cfg.Params, &params); err != nil {
		return nil, err
	}
	if params.URL == "" {
		return nil, errors.New("url is required")
	}

	client := terminal.NewClient(params.URL, params.Timeout, logger.Named("mt5").With(zap.String("datasource", cfg.Name)))
	return &mt5Terminal{client: client}, nil
}

func (t *mt5Terminal) Connect(ctx context.Context) error {
	return t.client.Connect(ctx)
}

func (t *mt5Terminal) Disconnect() error {
	return t.client.Shutdown()
}

func (t *mt5Terminal) ListAll(ctx context.Context) ([]SymbolInfo, error) {
	symbols, err := t.client.SymbolsGet(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolInfo, len(symbols))
	for i, s := range symbols {
		out[i] = SymbolInfo{Name: s.Name, Visible: s.Visible}
	}
	return out, nil
}

func (t *mt5Terminal) Count(ctx context.Context) (int, error) {
	return t.client.SymbolsTotal(ctx)
}

type bybitParams struct {
	BaseURL  string        `mapstructure:"base_url"`
	Category string        `mapstructure:"category"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// bybitTerminal lists Bybit instruments. An instrument counts as visible while it is trading.
type bybitTerminal struct {
	client    *bybit.RESTClient
	category  string
	connected bool
	lastCount int
	logger    *zap.Logger
}

// NewBybitTerminal is the Factory for ClassBybit. Params: base_url, category, timeout.
func NewBybitTerminal(cfg config.DataSourceConfig, logger *zap.Logger) (Terminal, error) {
	params := bybitParams{
		BaseURL:  "https://api.bybit.com",
		Category: "linear",
		Timeout:  10 * time.Second,
	}
	if err := decodeParams(cfg.Params, &params); err != nil {
		return nil, err
	}

	return &bybitTerminal{
		client:    bybit.NewRESTClient(params.BaseURL, params.Timeout),
		category:  params.Category,
		lastCount: -1,
		logger:    logger.Named("bybit").With(zap.String("datasource", cfg.Name)),
	}, nil
}

func (t *bybitTerminal) Connect(ctx context.Context) error {
	serverTime, err := t.client.GetServerTime(ctx)
	if err != nil {
		return err
	}
	t.connected = true
	t.logger.Debug("bybit reachable", zap.String("server_time", serverTime.TimeSecond))
	return nil
}

func (t *bybitTerminal) Disconnect() error {
	t.connected = false
	t.client.HTTPClient().CloseIdleConnections()
	return nil
}

func (t *bybitTerminal) ListAll(ctx context.Context) ([]SymbolInfo, error) {
	if !t.connected {
		return nil, errors.New("bybit client not connected")
	}
	instruments, err := t.client.GetInstruments(ctx, t.category)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolInfo, len(instruments))
	for i, inst := range instruments {
		out[i] = SymbolInfo{Name: inst.Symbol, Visible: inst.Trading()}
	}
	t.lastCount = len(out)
	return out, nil
}

// Count reuses the size of the last listing; the API has no separate count endpoint.
func (t *bybitTerminal) Count(ctx context.Context) (int, error) {
	if t.lastCount >= 0 {
		return t.lastCount, nil
	}
	all, err := t.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func decodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
