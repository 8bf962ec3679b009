package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by calls made before Connect or after Shutdown.
var ErrNotConnected = errors.New("terminal not connected")

// Client talks to a terminal bridge over a WebSocket, one request at a time.
// It is not safe for concurrent use.
type Client struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	conn    *websocket.Conn
	nextID  uint64
	logger  *zap.Logger
}

// NewClient creates a client for the bridge at url. timeout bounds the handshake
// and every request that has no earlier context deadline.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:     url,
		timeout: timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		logger: logger,
	}
}

// Connect dials the bridge and initializes the terminal.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn

	info, err := c.Initialize(ctx)
	if err != nil {
		_ = c.conn.Close()
		c.conn = nil
		return fmt.Errorf("initialize: %w", err)
	}

	c.logger.Debug("terminal initialized",
		zap.String("url", c.url),
		zap.String("name", info.Name),
		zap.String("company", info.Company),
		zap.Int("build", info.Build),
		zap.Bool("trade_server_connected", info.Connected),
	)
	return nil
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	return c.conn != nil
}

func (c *Client) Initialize(ctx context.Context) (*TerminalInfo, error) {
	var info TerminalInfo
	if err := c.call(ctx, OpInitialize, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SymbolsGet returns every symbol the terminal knows about.
func (c *Client) SymbolsGet(ctx context.Context) ([]SymbolInfo, error) {
	var symbols []SymbolInfo
	if err := c.call(ctx, OpSymbolsGet, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// SymbolsTotal returns the terminal's symbol count.
func (c *Client) SymbolsTotal(ctx context.Context) (int, error) {
	var total int
	if err := c.call(ctx, OpSymbolsTotal, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Shutdown asks the terminal to shut down and closes the connection.
// The shutdown request is best-effort; the connection is always closed.
func (c *Client) Shutdown() error {
	if c.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.call(ctx, OpShutdown, nil); err != nil {
		c.logger.Warn("terminal shutdown request failed", zap.String("url", c.url), zap.Error(err))
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) call(ctx context.Context, op string, result any) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.nextID++
	req := Request{ID: c.nextID, Op: op}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("%s: read: %w", op, err)
		}
		if resp.ID != req.ID {
			// Late reply to an earlier request.
			continue
		}
		if resp.Error != "" {
			return fmt.Errorf("%s: terminal error: %s", op, resp.Error)
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", op, err)
		}
		return nil
	}
}
