package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one receive-only WebSocket connection to the geometry source.
// The viewer never sends data frames; it only answers and sends keepalives.
type Client interface {
	// Connect dials the source and starts reading.
	Connect(ctx context.Context) error

	// Close sends a close frame and tears the connection down. It is idempotent.
	Close() error

	// Messages delivers frames in arrival order, stamped on receipt.
	Messages() <-chan TimestampedMessage

	// Errors delivers at most one error: the reason the connection ended.
	// A peer close arrives as *websocket.CloseError, a silent peer as
	// ErrStaleConnection.
	Errors() <-chan error
}

// ClientFactory builds a Client. The Manager calls it once per attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// client implements Client over gorilla/websocket.
//
// Liveness uses the read deadline: every frame, ping or pong pushes it
// PingTimeout into the future, so a peer that goes quiet fails the pending
// read instead of being polled for.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	frames chan TimestampedMessage
	failed chan error
	done   chan struct{}

	mu     sync.Mutex // guards conn and closed
	conn   *websocket.Conn
	closed bool

	controlMu sync.Mutex // serializes control frame writes
}

// NewClient creates a client for cfg.URL. Nothing is dialed until Connect.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Second
	}
	return &client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan TimestampedMessage, cfg.BufferSize),
		failed: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrAlreadyClosed
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		// Close raced with the dial.
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.extendDeadline(conn)
	conn.SetPingHandler(func(data string) error {
		c.extendDeadline(conn)
		// A failed pong surfaces on the next read.
		if err := c.writeControl(conn, websocket.PongMessage, []byte(data)); err != nil {
			c.logger.Debug("pong failed", "error", err)
		}
		return nil
	})
	conn.SetPongHandler(func(string) error {
		c.extendDeadline(conn)
		return nil
	})

	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		go c.keepalive(conn)
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn == nil {
		return nil
	}

	bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.writeControl(conn, websocket.CloseMessage, bye); err != nil {
		c.logger.Debug("close frame not sent", "error", err)
	}
	return conn.Close()
}

func (c *client) Messages() <-chan TimestampedMessage { return c.frames }

func (c *client) Errors() <-chan error { return c.failed }

func (c *client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readLoop forwards frames until the connection fails or is closed locally.
// It blocks on a full channel rather than dropping: every update is applied.
func (c *client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; the manager already knows.
			default:
				c.fail(classifyReadError(err))
			}
			return
		}
		msg := TimestampedMessage{Data: data, ReceivedAt: time.Now()}
		c.extendDeadline(conn)

		select {
		case c.frames <- msg:
		case <-c.done:
			return
		}
	}
}

// keepalive pings the source so a quiet but healthy peer keeps answering.
func (c *client) keepalive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.writeControl(conn, websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

func (c *client) writeControl(conn *websocket.Conn, kind int, data []byte) error {
	c.controlMu.Lock()
	defer c.controlMu.Unlock()
	return conn.WriteControl(kind, data, time.Now().Add(c.cfg.WriteTimeout))
}

func (c *client) extendDeadline(conn *websocket.Conn) {
	if c.cfg.PingTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PingTimeout))
	}
}

// fail reports the first terminal error; later ones are dropped.
func (c *client) fail(err error) {
	select {
	case c.failed <- err:
	default:
	}
}

// classifyReadError turns a read deadline expiry into ErrStaleConnection.
func classifyReadError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrStaleConnection, err)
	}
	return err
}
