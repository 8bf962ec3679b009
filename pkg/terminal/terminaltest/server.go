// Package terminaltest provides an in-process terminal bridge for tests.
package terminaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"algosync/pkg/terminal"

	"github.com/gorilla/websocket"
)

// Server answers terminal bridge requests from a fixed symbol list.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	symbols  []terminal.SymbolInfo
	failInit bool
	ops      []string
}

// NewServer starts a bridge serving symbols.
func NewServer(symbols ...terminal.SymbolInfo) *Server {
	s := &Server{symbols: symbols}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// WSURL returns the ws:// address of the server.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// SetSymbols replaces the symbol list served from now on.
func (s *Server) SetSymbols(symbols ...terminal.SymbolInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = symbols
}

// FailInitialize makes initialize return an error, like a terminal that cannot start.
func (s *Server) FailInitialize(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInit = fail
}

// Ops returns the operations received so far, in order.
func (s *Server) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ops))
	copy(out, s.ops)
	return out
}

var upgrader = websocket.Upgrader{}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req terminal.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if err := conn.WriteJSON(s.respond(req)); err != nil {
			return
		}
	}
}

func (s *Server) respond(req terminal.Request) terminal.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, req.Op)

	resp := terminal.Response{ID: req.ID}
	var result any

	switch req.Op {
	case terminal.OpInitialize:
		if s.failInit {
			resp.Error = "IPC initialize failed"
			return resp
		}
		result = terminal.TerminalInfo{Name: "Test Terminal", Company: "Test Broker", Build: 4000, Connected: true}
	case terminal.OpSymbolsGet:
		result = s.symbols
	case terminal.OpSymbolsTotal:
		result = len(s.symbols)
	case terminal.OpShutdown:
		result = true
	default:
		resp.Error = "unknown op " + req.Op
		return resp
	}

	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = raw
	return resp
}
