package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Manager owns the connection to the geometry source and reconnects it.
type Manager interface {
	// Start dials the source and begins the event loop.
	Start(ctx context.Context) error

	// Stop shuts down the event loop and closes the connection.
	Stop(ctx context.Context) error

	// State returns the current connection state.
	State() State

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// Option customizes a Manager.
type Option func(*manager)

// WithClientFactory replaces the gorilla/websocket client.
func WithClientFactory(f ClientFactory) Option {
	return func(m *manager) {
		m.newClient = f
	}
}

// manager implements the Manager interface.
//
// Every field below the event loop marker is owned by the loop goroutine.
// Dial goroutines only post results to events.
type manager struct {
	cfg       ManagerConfig
	handler   Handler
	logger    *slog.Logger
	newClient ClientFactory

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Event loop state
	state  State
	gen    uint64
	client Client
	retry  *time.Ticker

	// Readable from any goroutine
	stateView     atomic.Int32
	attempts      atomic.Int64
	connects      atomic.Int64
	disconnects   atomic.Int64
	timersStarted atomic.Int64
	messages      atomic.Int64
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, handler Handler, logger *slog.Logger, opts ...Option) Manager {
	return newManager(cfg, handler, logger, opts...)
}

func newManager(cfg ManagerConfig, handler Handler, logger *slog.Logger, opts ...Option) *manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = time.Second
	}
	if cfg.EventBufferSize < 1 {
		cfg.EventBufferSize = 1
	}

	m := &manager{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		newClient: NewClient,
		events:    make(chan Event, cfg.EventBufferSize),
		state:     Disconnected,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start dials the source and begins the event loop. A failed first dial is
// retried like any other disconnect.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.connect()

	m.wg.Add(1)
	go m.loop()

	m.logger.Info("connection manager started",
		"url", m.cfg.Client.URL,
		"reconnect_interval", m.cfg.ReconnectInterval,
	)

	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("connection manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
		return ctx.Err()
	}
}

// State returns the current connection state.
func (m *manager) State() State {
	return State(m.stateView.Load())
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	return ManagerStats{
		State:         m.State(),
		Attempts:      m.attempts.Load(),
		Connects:      m.connects.Load(),
		Disconnects:   m.disconnects.Load(),
		TimersStarted: m.timersStarted.Load(),
		Messages:      m.messages.Load(),
	}
}

// loop is the event loop. Handlers run to completion before the next event.
func (m *manager) loop() {
	defer m.wg.Done()
	defer func() {
		m.stopRetry()
		m.closeClient()
		m.setState(Disconnected)
	}()

	for {
		var (
			msgs <-chan TimestampedMessage
			errs <-chan error
			tick <-chan time.Time
		)
		if m.state == Connected && m.client != nil {
			msgs = m.client.Messages()
			errs = m.client.Errors()
		}
		if m.retry != nil {
			tick = m.retry.C
		}

		select {
		case <-m.ctx.Done():
			return

		case ev := <-m.events:
			m.dispatch(ev)

		case msg := <-msgs:
			m.dispatch(Event{
				Kind:       EventMessage,
				Gen:        m.gen,
				Data:       msg.Data,
				ReceivedAt: msg.ReceivedAt,
			})

		case err := <-errs:
			// Apply what the connection already delivered before tearing it down.
			m.drainMessages()
			m.dispatch(Event{Kind: eventKindOf(err), Gen: m.gen, Err: err})

		case <-tick:
			m.dispatch(Event{Kind: EventTick})
		}
	}
}

// dispatch applies one event to the manager state.
func (m *manager) dispatch(ev Event) {
	if ev.Kind == EventTick {
		if m.state != Disconnected {
			return
		}
		m.logger.Info("attempting reconnection", "url", m.cfg.Client.URL)
		m.connect()
		return
	}

	if ev.Gen != m.gen {
		m.logger.Debug("ignoring event from superseded connection",
			"kind", ev.Kind,
			"gen", ev.Gen,
			"current", m.gen,
		)
		return
	}

	switch ev.Kind {
	case EventOpen:
		if m.state == Connected {
			return
		}
		m.setState(Connected)
		m.connects.Add(1)
		m.stopRetry()
		m.logger.Info("websocket connected", "url", m.cfg.Client.URL, "gen", m.gen)

	case EventMessage:
		m.messages.Add(1)
		m.handler.HandleMessage(RawMessage{
			Data:       ev.Data,
			ReceivedAt: ev.ReceivedAt,
		})

	case EventError, EventClose:
		if ev.Kind == EventError {
			m.logger.Warn("websocket error", "error", ev.Err, "state", m.state)
		} else {
			m.logger.Info("websocket closed, retrying", "error", ev.Err)
		}
		m.closeClient()
		m.setState(Disconnected)
		m.disconnects.Add(1)
		m.startRetry()
	}
}

// connect starts a dial unless one is in flight or the connection is up.
func (m *manager) connect() {
	if m.state != Disconnected {
		return
	}

	m.gen++
	gen := m.gen
	c := m.newClient(m.cfg.Client, m.logger.With("gen", gen))
	m.client = c
	m.setState(Connecting)
	m.attempts.Add(1)

	ctx := m.ctx
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ev := Event{Kind: EventOpen, Gen: gen}
		if err := c.Connect(ctx); err != nil {
			ev = Event{Kind: EventError, Gen: gen, Err: err}
		}

		select {
		case m.events <- ev:
		case <-ctx.Done():
		}
	}()
}

// drainMessages hands already-buffered messages of the current client to the handler.
func (m *manager) drainMessages() {
	if m.client == nil {
		return
	}
	msgs := m.client.Messages()
	for {
		select {
		case msg := <-msgs:
			m.dispatch(Event{
				Kind:       EventMessage,
				Gen:        m.gen,
				Data:       msg.Data,
				ReceivedAt: msg.ReceivedAt,
			})
		default:
			return
		}
	}
}

// startRetry starts the reconnect ticker if none is running.
func (m *manager) startRetry() {
	if m.retry != nil {
		return
	}
	m.retry = time.NewTicker(m.cfg.ReconnectInterval)
	m.timersStarted.Add(1)
	m.logger.Debug("reconnect timer started", "interval", m.cfg.ReconnectInterval)
}

// stopRetry cancels the reconnect ticker.
func (m *manager) stopRetry() {
	if m.retry == nil {
		return
	}
	m.retry.Stop()
	m.retry = nil
}

func (m *manager) closeClient() {
	if m.client == nil {
		return
	}
	if err := m.client.Close(); err != nil {
		m.logger.Debug("close client", "error", err)
	}
	m.client = nil
}

func (m *manager) setState(s State) {
	m.state = s
	m.stateView.Store(int32(s))
}

// eventKindOf maps a read error to close or error.
func eventKindOf(err error) EventKind {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return EventClose
	}
	return EventError
}
