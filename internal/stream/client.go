package stream

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// Reconnect backoff bounds: 1s, 2s, 4s, ... capped at 10s
const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
)

// Handler receives each decoded inbound event, invoked from a single read
// loop so events arrive in connection order.
type Handler func(models.CallEvent)

// Client owns one logical connection to the call-status feed. It reconnects
// forever with exponential backoff until Close is called.
type Client struct {
	url     string
	handler Handler
	onState func(connected bool)

	dialer    *websocket.Dialer
	baseDelay time.Duration
	maxDelay  time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	attempts  int
	reconnect *time.Timer
	closed    bool
}

// NewClient creates a client for the given ws:// or wss:// URL. Call Start
// to begin connecting.
func NewClient(url string, handler Handler) *Client {
	return &Client{
		url:       url,
		handler:   handler,
		dialer:    websocket.DefaultDialer,
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
	}
}

// OnConnectionChange registers a callback for connect/disconnect
// transitions. Must be called before Start.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.onState = fn
}

// Start begins the connect loop in the background
func (c *Client) Start() {
	go c.connect()
}

// Connected reports whether the connection is currently open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send pushes a message over the open connection. When the connection is
// down the message is dropped silently; callers must not assume delivery.
func (c *Client) Send(msg OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("⚠️  Feed send failed: %v", err)
	}
}

// Close tears the client down: any pending reconnect timer is cancelled and
// an open connection is closed. No reconnect fires after Close returns.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.attempts = 0 // successful open resets the backoff
	c.mu.Unlock()

	c.notify(true)
	c.readLoop(conn)
}

// readLoop consumes the connection until it drops, then schedules a
// reconnect unless the client was closed.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		// Malformed payloads are discarded; they never reach the handler
		ev, ok := DecodeEvent(data)
		if !ok {
			continue
		}
		c.handler(ev)
	}
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	c.notify(false)
	if !closed {
		c.scheduleReconnect()
	}
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	delay := backoffDelay(c.attempts, c.baseDelay, c.maxDelay)
	c.attempts++
	c.reconnect = time.AfterFunc(delay, c.connect)
}

func (c *Client) notify(connected bool) {
	if c.onState != nil {
		c.onState(connected)
	}
}

// backoffDelay returns min(base * 2^attempt, max)
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d > max || d <= 0 {
		return max
	}
	return d
}
