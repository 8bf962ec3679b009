package terminal

import "encoding/json"

// Operations understood by the terminal bridge.
const (
	OpInitialize   = "initialize"
	OpSymbolsGet   = "symbols_get"
	OpSymbolsTotal = "symbols_total"
	OpShutdown     = "shutdown"
)

// Request is sent as a single JSON text frame.
type Request struct {
	ID uint64 `json:"id"`
	Op string `json:"op"`
}

// Response carries either Result or Error for the request with the same ID.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// TerminalInfo is returned by initialize.
type TerminalInfo struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Build     int    `json:"build"`
	Connected bool   `json:"connected"` // terminal connected to its trade server
}

// SymbolInfo is one entry of symbols_get. Visible means the symbol is shown in Market Watch.
type SymbolInfo struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}
