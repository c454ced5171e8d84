// Package wsconn provides a WebSocket client with automatic reconnection and
// keepalive pings, built on coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/KPR-V/stellar/internal/apperror"
)

const meterName = "github.com/KPR-V/stellar/internal/wsconn"

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	AutoReconnect  bool
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration // 0 disables pings
	PongTimeout    time.Duration
	MaxMessageSize int64 // 0 keeps the library default
}

// DefaultConfig returns defaults suitable for market data streams.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		AutoReconnect:  true,
		DialTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// MessageHandler receives every inbound message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions. err is the cause, if any.
type StateHandler func(state State, err error)

type clientMetrics struct {
	messages   metric.Int64Counter
	reconnects metric.Int64Counter
}

// Client is a reconnecting WebSocket client.
type Client struct {
	cfg Config

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	handlersMu sync.RWMutex
	onMessage  MessageHandler
	onState    StateHandler

	life   context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup

	reconnecting atomic.Bool
	metrics      *clientMetrics
	attrs        metric.MeasurementOption
}

// New creates a client. It does not dial.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "wsconn: url is required")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	life, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:    cfg,
		state:  StateDisconnected,
		life:   life,
		cancel: cancel,
		attrs:  metric.WithAttributes(attribute.String("stream", cfg.Name)),
	}
	if err := c.initMetrics(); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	c.metrics = &clientMetrics{}

	c.metrics.messages, err = meter.Int64Counter(
		"ws_messages_received_total",
		metric.WithDescription("Total WebSocket messages received"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	c.metrics.reconnects, err = meter.Int64Counter(
		"ws_reconnects_total",
		metric.WithDescription("Total WebSocket reconnect attempts"),
		metric.WithUnit("{attempt}"),
	)
	return err
}

// OnMessage registers the inbound message handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange registers the state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlersMu.Lock()
	c.onState = h
	c.handlersMu.Unlock()
}

// Connect dials once. A failed dial leaves the client disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}
	if c.IsConnected() {
		return nil
	}

	c.setState(StateConnecting, nil)

	dialCtx := ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.cfg.Name))
	}
	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn)
	}
	return nil
}

// ConnectWithRetry dials with exponential backoff until it succeeds, ctx is
// done, or MaxReconnects attempts fail.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = c.Connect(ctx); lastErr == nil {
			return nil
		}
		if c.closed.Load() {
			return lastErr
		}
		if c.cfg.MaxReconnects > 0 && attempt >= c.cfg.MaxReconnects {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.cfg.MaxBackoff)
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	conn := c.current()
	if conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.cfg.Name))
	}
	return nil
}

// SendJSON marshals v and sends it.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether a live connection is held.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close shuts the connection down and stops reconnecting. Safe to call twice.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()

	if conn := c.current(); conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	c.wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	c.setState(StateClosed, nil)
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, data, err := conn.Read(c.life)
		if err != nil {
			c.dropped(conn, err)
			return
		}
		c.metrics.messages.Add(c.life, 1, c.attrs)

		c.handlersMu.RLock()
		h := c.onMessage
		c.handlersMu.RUnlock()
		if h != nil {
			h(c.life, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.life.Done():
			return
		case <-ticker.C:
			if c.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.life, c.cfg.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				// Closing unblocks the reader, which handles the reconnect.
				_ = conn.Close(websocket.StatusGoingAway, "pong timeout")
				return
			}
		}
	}
}

// dropped handles a broken connection observed by the reader.
func (c *Client) dropped(conn *websocket.Conn, cause error) {
	if c.closed.Load() {
		return
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.CloseNow()

	if !c.cfg.AutoReconnect {
		c.setState(StateDisconnected, cause)
		return
	}
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	c.setState(StateReconnecting, cause)

	c.wg.Add(1)
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	backoff := c.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		select {
		case <-c.life.Done():
			return
		case <-time.After(backoff):
		}
		c.metrics.reconnects.Add(c.life, 1, c.attrs)

		err := c.Connect(c.life)
		if err == nil {
			return
		}
		if c.closed.Load() {
			return
		}
		if c.cfg.MaxReconnects > 0 && attempt >= c.cfg.MaxReconnects {
			c.setState(StateDisconnected, err)
			return
		}
		c.setState(StateReconnecting, err)
		backoff = min(backoff*2, c.cfg.MaxBackoff)
	}
}

func (c *Client) setState(s State, err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.handlersMu.RLock()
	h := c.onState
	c.handlersMu.RUnlock()
	if h != nil {
		h(s, err)
	}
}
