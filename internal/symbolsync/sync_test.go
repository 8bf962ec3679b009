package symbolsync_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"algosync/config"
	"algosync/internal/datasource"
	"algosync/internal/mapping"
	"algosync/internal/metrics"
	"algosync/internal/symbolsync"
	"algosync/pkg/storage/database"
	"algosync/pkg/terminal"
	"algosync/pkg/terminal/terminaltest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type fakeLister struct {
	name    string
	symbols []string
	err     error
	calls   int
}

func (f *fakeLister) Name() string { return f.name }

func (f *fakeLister) ListSymbols(context.Context) ([]string, error) {
	f.calls++
	return f.symbols, f.err
}

// fakeGateway keeps mappings in memory and records what was submitted.
type fakeGateway struct {
	connected bool
	current   *mapping.Table
	submitted *mapping.Table
	nextID    uint
}

func (g *fakeGateway) Connected() bool { return g.connected }

func (g *fakeGateway) GetMappings(context.Context) (*mapping.Table, error) {
	return mapping.NewTable(g.current.Rows()...), nil
}

func (g *fakeGateway) UpsertMappings(_ context.Context, table *mapping.Table) (*mapping.Table, error) {
	g.submitted = mapping.NewTable(table.Rows()...)
	rows := table.Rows()
	for i := range rows {
		if rows[i].IsNew() {
			g.nextID++
			rows[i].ID = g.nextID
		}
	}
	g.current = mapping.NewTable(rows...)
	return mapping.NewTable(rows...), nil
}

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	db := database.Open(context.Background(), config.DatabaseConfig{
		Dialect:  "sqlite",
		Database: filepath.Join(t.TempDir(), "sync.db"),
	}, "", zap.NewNop())
	if !db.Connected() {
		t.Fatal("expected sqlite database to connect")
	}
	if err := db.EnsureDataSources(context.Background(), []string{"mt5", "bybit"}); err != nil {
		t.Fatalf("EnsureDataSources failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// go test -v --run ^TestRunAppendsOnlyNewPairs$
func TestRunAppendsOnlyNewPairs(t *testing.T) {
	gw := &fakeGateway{
		connected: true,
		current:   mapping.NewTable(mapping.Row{ID: 1, DataSourceName: "mt5", SymbolName: "EURUSD", RetrievePriceData: false}),
		nextID:    1,
	}
	src := &fakeLister{name: "mt5", symbols: []string{"EURUSD", "GBPUSD"}}

	if _, err := symbolsync.New(gw, zap.NewNop()).Run(context.Background(), []symbolsync.Lister{src}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []mapping.Row{
		{ID: 1, DataSourceName: "mt5", SymbolName: "EURUSD", RetrievePriceData: false},
		{ID: 0, DataSourceName: "mt5", SymbolName: "GBPUSD", RetrievePriceData: true},
	}
	if got := gw.submitted.Rows(); !reflect.DeepEqual(got, want) {
		t.Errorf("submitted rows = %+v, want %+v", got, want)
	}
}

// go test -v --run ^TestRunExistingPairNotReinserted$
func TestRunExistingPairNotReinserted(t *testing.T) {
	gw := &fakeGateway{
		connected: true,
		current:   mapping.NewTable(mapping.Row{ID: 7, DataSourceName: "mt5", SymbolName: "EURUSD", RetrievePriceData: true}),
		nextID:    7,
	}
	src := &fakeLister{name: "mt5", symbols: []string{"EURUSD", "EURUSD"}}

	saved, err := symbolsync.New(gw, zap.NewNop()).Run(context.Background(), []symbolsync.Lister{src})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gw.submitted.Len() != 1 || saved.Len() != 1 {
		t.Errorf("row count changed: submitted=%d saved=%d", gw.submitted.Len(), saved.Len())
	}
}

// go test -v --run ^TestRunDisconnected$
func TestRunDisconnected(t *testing.T) {
	gw := &fakeGateway{connected: false, current: mapping.NewTable()}
	src := &fakeLister{name: "mt5", symbols: []string{"EURUSD"}}

	table, err := symbolsync.New(gw, zap.NewNop()).Run(context.Background(), []symbolsync.Lister{src})
	if err != nil {
		t.Fatalf("Run should not fail when disconnected: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}
	if gw.submitted != nil {
		t.Error("nothing should be written when disconnected")
	}
	if src.calls != 0 {
		t.Error("providers should not be queried when disconnected")
	}
}

// go test -v --run ^TestRunListFailureWritesNothing$
func TestRunListFailureWritesNothing(t *testing.T) {
	gw := &fakeGateway{connected: true, current: mapping.NewTable()}
	down := errors.New("terminal not ready")
	sources := []symbolsync.Lister{
		&fakeLister{name: "mt5", symbols: []string{"EURUSD"}},
		&fakeLister{name: "bybit", err: down},
	}

	failuresBefore := testutil.ToFloat64(metrics.SyncFailures)

	_, err := symbolsync.New(gw, zap.NewNop()).Run(context.Background(), sources)
	if !errors.Is(err, down) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if gw.submitted != nil {
		t.Error("a failed pass must not write")
	}
	if got := testutil.ToFloat64(metrics.SyncFailures); got != failuresBefore+1 {
		t.Errorf("SyncFailures = %v, want %v", got, failuresBefore+1)
	}
}

// go test -v --run ^TestRunIdempotent$
func TestRunIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	syncer := symbolsync.New(db, zap.NewNop())
	sources := []symbolsync.Lister{
		&fakeLister{name: "mt5", symbols: []string{"EURUSD", "GBPUSD", "XAUUSD"}},
		&fakeLister{name: "bybit", symbols: []string{"BTCUSDT", "EURUSD"}},
	}

	first, err := syncer.Run(ctx, sources)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := syncer.Run(ctx, sources)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if first.Len() != 5 {
		t.Errorf("expected 5 rows, got %d", first.Len())
	}
	if !reflect.DeepEqual(first.Rows(), second.Rows()) {
		t.Errorf("second run changed the table:\nfirst  %+v\nsecond %+v", first.Rows(), second.Rows())
	}
}

// go test -v --run ^TestRunPreservesIDs$
func TestRunPreservesIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	syncer := symbolsync.New(db, zap.NewNop())
	mt5 := &fakeLister{name: "mt5", symbols: []string{"EURUSD", "GBPUSD"}}

	before, err := syncer.Run(ctx, []symbolsync.Lister{mt5})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Provider drops GBPUSD and adds USDJPY.
	mt5.symbols = []string{"EURUSD", "USDJPY"}
	discoveredBefore := testutil.ToFloat64(metrics.SymbolsDiscovered.WithLabelValues("mt5"))

	after, err := syncer.Run(ctx, []symbolsync.Lister{mt5})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if after.Len() != 3 {
		t.Fatalf("expected 3 rows (no deletion), got %d", after.Len())
	}
	for _, row := range before.Rows() {
		got, ok := after.Get(row.DataSourceName, row.SymbolName)
		if !ok || got.ID != row.ID {
			t.Errorf("row %s/%s lost its ID: %d -> %+v", row.DataSourceName, row.SymbolName, row.ID, got)
		}
	}

	usdjpy, ok := after.Get("mt5", "USDJPY")
	if !ok || usdjpy.ID == 0 || !usdjpy.RetrievePriceData {
		t.Errorf("unexpected new row: %+v", usdjpy)
	}

	if got := testutil.ToFloat64(metrics.SymbolsDiscovered.WithLabelValues("mt5")); got != discoveredBefore+1 {
		t.Errorf("SymbolsDiscovered{mt5} = %v, want %v", got, discoveredBefore+1)
	}
	if got := testutil.ToFloat64(metrics.MappingRows); got != 3 {
		t.Errorf("MappingRows = %v, want 3", got)
	}
}

// flakyTerminal refuses to connect while down is set.
type flakyTerminal struct {
	down     bool
	symbols  []datasource.SymbolInfo
	open     bool
	connects int
}

func (f *flakyTerminal) Connect(context.Context) error {
	f.connects++
	if f.down {
		return errors.New("terminal IPC initialize failed")
	}
	f.open = true
	return nil
}

func (f *flakyTerminal) Disconnect() error {
	f.open = false
	return nil
}

func (f *flakyTerminal) ListAll(context.Context) ([]datasource.SymbolInfo, error) {
	if !f.open {
		return nil, errors.New("not connected")
	}
	return f.symbols, nil
}

func (f *flakyTerminal) Count(context.Context) (int, error) {
	return len(f.symbols), nil
}

// go test -v --run ^TestRunSourcesRecoversAfterStartupFailure$
func TestRunSourcesRecoversAfterStartupFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	syncer := symbolsync.New(db, zap.NewNop())

	term := &flakyTerminal{down: true, symbols: []datasource.SymbolInfo{{Name: "EURUSD", Visible: true}}}
	src := datasource.NewSource(config.DataSourceConfig{Name: "mt5", Class: datasource.ClassMT5}, term, zap.NewNop())
	sources := []*datasource.Source{src}

	if _, err := syncer.RunSources(ctx, sources); !errors.Is(err, datasource.ErrProviderUnavailable) {
		t.Fatalf("first pass error = %v, want ErrProviderUnavailable", err)
	}
	if table, _ := db.GetMappings(ctx); table.Len() != 0 {
		t.Fatalf("first pass wrote %d rows", table.Len())
	}

	term.down = false
	table, err := syncer.RunSources(ctx, sources)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if !table.Contains("mt5", "EURUSD") {
		t.Errorf("second pass did not save mt5/EURUSD: %+v", table.Rows())
	}
	if src.Ready() {
		t.Error("source should be closed after the pass")
	}
	if term.connects != 2 {
		t.Errorf("connects = %d, want 2", term.connects)
	}
}

// go test -v --run ^TestRunSourcesReconnectsEachPass$
func TestRunSourcesReconnectsEachPass(t *testing.T) {
	bridge := terminaltest.NewServer(terminal.SymbolInfo{Name: "EURUSD", Visible: true})
	defer bridge.Close()

	cfg := config.DataSourceConfig{
		Name:   "mt5",
		Class:  datasource.ClassMT5,
		Params: map[string]any{"url": bridge.WSURL(), "timeout": "2s"},
	}
	term, err := datasource.NewMT5Terminal(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMT5Terminal failed: %v", err)
	}
	sources := []*datasource.Source{datasource.NewSource(cfg, term, zap.NewNop())}

	db := openTestDB(t)
	ctx := context.Background()
	syncer := symbolsync.New(db, zap.NewNop())

	if _, err := syncer.RunSources(ctx, sources); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	bridge.SetSymbols(
		terminal.SymbolInfo{Name: "EURUSD", Visible: true},
		terminal.SymbolInfo{Name: "GBPUSD", Visible: true},
	)
	table, err := syncer.RunSources(ctx, sources)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}

	want := []string{
		terminal.OpInitialize, terminal.OpSymbolsGet, terminal.OpSymbolsTotal, terminal.OpShutdown,
		terminal.OpInitialize, terminal.OpSymbolsGet, terminal.OpSymbolsTotal, terminal.OpShutdown,
	}
	if got := bridge.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("bridge ops = %v, want %v", got, want)
	}
}

// go test -v --run ^TestRunSourcesDisconnectedSkipsProviders$
func TestRunSourcesDisconnectedSkipsProviders(t *testing.T) {
	gw := &fakeGateway{connected: false, current: mapping.NewTable()}
	term := &flakyTerminal{symbols: []datasource.SymbolInfo{{Name: "EURUSD", Visible: true}}}
	sources := []*datasource.Source{
		datasource.NewSource(config.DataSourceConfig{Name: "mt5", Class: datasource.ClassMT5}, term, zap.NewNop()),
	}

	table, err := symbolsync.New(gw, zap.NewNop()).RunSources(context.Background(), sources)
	if err != nil || table.Len() != 0 {
		t.Fatalf("RunSources = %d rows, %v", table.Len(), err)
	}
	if term.connects != 0 {
		t.Error("providers should not be contacted when disconnected")
	}
}
