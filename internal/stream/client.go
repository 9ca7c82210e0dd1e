// Package stream implements a generic reconnecting subscriber to a
// server-pushed event channel for a single entity. One Client owns one
// connection lifecycle; distinct clients are fully independent.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnState is the connection lifecycle state of a Client.
type ConnState string

const (
	StateIdle       ConnState = "IDLE"
	StateConnecting ConnState = "CONNECTING"
	StateOpen       ConnState = "OPEN"
	StateRetryWait  ConnState = "RETRY_WAIT"
	StateClosed     ConnState = "CLOSED"
)

// DefaultChannel is the name of the unnamed event channel.
const DefaultChannel = ""

// Event is one pushed message, tagged with the channel it arrived on.
type Event struct {
	Channel string
	Data    []byte
}

// Conn is a single live connection to the push source. Recv blocks until
// the next event, a transport failure, or Close.
type Conn interface {
	Recv() (Event, error)
	Close() error
}

// Transport dials new connections for a Client. Implementations carry the
// entity addressing (URL, channel key) themselves.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Handler consumes the raw payload of one event. Handlers run on the
// client's dispatch goroutine, strictly in arrival order.
type Handler func(data []byte)

type Config struct {
	// ReconnectDelay is the fixed wait before the single reconnect attempt
	// scheduled after any transport error. No backoff, no retry ceiling.
	ReconnectDelay time.Duration
}

// Client is a reconnecting subscriber. Start and Close are idempotent;
// Close is terminal. Messages on channels with no registered handler are
// dropped without error.
type Client struct {
	id        string
	transport Transport
	logger    *slog.Logger
	cfg       Config

	mu       sync.Mutex
	state    ConnState
	handlers map[string]Handler
	onState  func(ConnState)
	conn     Conn
	retry    *time.Timer
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(transport Transport, logger *slog.Logger, cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}

	id := uuid.NewString()

	return &Client{
		id:        id,
		transport: transport,
		logger:    logger.With("stream_session", id),
		cfg:       cfg,
		state:     StateIdle,
		handlers:  make(map[string]Handler),
	}
}

// ID is the client-session identity. Connection state is tracked per
// (entity, session), so two clients for the same entity stay independent.
func (c *Client) ID() string {
	return c.id
}

// On registers the handler for a named channel. Use DefaultChannel for the
// unnamed channel. Register handlers before Start.
func (c *Client) On(channel string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[channel] = fn
}

// OnStateChange registers an observer for connection state transitions.
// The callback is for display purposes only.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onState = fn
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Start opens the subscription. A second call while the client is already
// running is a no-op, as is any call after Close.
func (c *Client) Start() {
	c.mu.Lock()

	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	notify()

	go c.run(ctx)
}

// Close unconditionally transitions the client to CLOSED, detaches all
// dispatch and cancels any pending reconnect timer. It is safe to call
// multiple times or on a client that was never started. No handler fires
// after Close returns.
func (c *Client) Close() {
	c.mu.Lock()

	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	notify := c.setStateLocked(StateClosed)

	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Wait for the dispatch goroutine so no handler runs past this point.
	if done != nil {
		<-done
	}

	notify()
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		conn, err := c.transport.Dial(ctx)
		if err != nil {
			if !c.waitRetry(ctx, err) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		notify := c.setStateLocked(StateOpen)
		c.mu.Unlock()

		notify()

		err = c.consume(conn)

		c.mu.Lock()
		closed := c.state == StateClosed
		c.conn = nil
		c.mu.Unlock()

		_ = conn.Close()

		if closed {
			return
		}

		if !c.waitRetry(ctx, err) {
			return
		}
	}
}

func (c *Client) consume(conn Conn) error {
	for {
		ev, err := conn.Recv()
		if err != nil {
			return err
		}

		c.mu.Lock()
		if c.state != StateOpen {
			c.mu.Unlock()
			return nil
		}
		fn := c.handlers[ev.Channel]
		c.mu.Unlock()

		if fn == nil {
			continue
		}

		fn(ev.Data)
	}
}

// waitRetry flips to RETRY_WAIT and blocks for the fixed delay. It returns
// false when the client was closed in the meantime.
func (c *Client) waitRetry(ctx context.Context, cause error) bool {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return false
	}

	notify := c.setStateLocked(StateRetryWait)
	timer := time.NewTimer(c.cfg.ReconnectDelay)
	c.retry = timer
	c.mu.Unlock()

	notify()

	if cause != nil && !errors.Is(cause, context.Canceled) {
		c.logger.Warn("stream transport failed, reconnecting",
			"error", cause,
			"delay", c.cfg.ReconnectDelay,
		)
	}

	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	c.retry = nil
	notify = c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	notify()

	return true
}

// setStateLocked records the transition and returns the observer
// invocation, to be called after the lock is released.
func (c *Client) setStateLocked(s ConnState) func() {
	if c.state == s {
		return func() {}
	}

	c.state = s

	fn := c.onState
	if fn == nil {
		return func() {}
	}

	return func() { fn(s) }
}
