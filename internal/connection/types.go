package connection

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the state of the managed connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventKind identifies an event processed by the Manager's event loop.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
	EventClose
	EventTick
)

// String returns the lowercase event name.
func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	case EventTick:
		return "tick"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one input to the Manager's dispatch function.
type Event struct {
	Kind       EventKind
	Gen        uint64    // Connection attempt this event belongs to (ignored for ticks)
	Data       []byte    // Message payload (EventMessage)
	Err        error     // Cause (EventError, EventClose)
	ReceivedAt time.Time // Local receive time (EventMessage)
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Connection Manager to its Handler.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when WS Client received message
}

// Handler consumes messages. It runs on the event loop and must not block.
type Handler interface {
	HandleMessage(msg RawMessage)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(RawMessage)

func (f HandlerFunc) HandleMessage(msg RawMessage) {
	f(msg)
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:9223)
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // Interval between keepalive pings, 0 disables
	PingTimeout      time.Duration // Max silence (no frame, ping or pong) before the connection is stale
	WriteTimeout     time.Duration // Deadline for control frames (pong, ping, close)
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              "ws://localhost:9223",
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client            ClientConfig
	ReconnectInterval time.Duration // Fixed wait between reconnect attempts
	EventBufferSize   int           // Buffer for dial results
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:            DefaultClientConfig(),
		ReconnectInterval: 1 * time.Second,
		EventBufferSize:   16,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State         State
	Attempts      int64 // Dials started
	Connects      int64 // Dials that reached Connected
	Disconnects   int64 // Error or close events applied
	TimersStarted int64 // Reconnect timers created
	Messages      int64 // Messages handed to the Handler
}
