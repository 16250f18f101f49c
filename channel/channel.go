package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/transport"
	"github.com/danmuck/framelink/value"
	"github.com/danmuck/framelink/wire"
)

var ErrClosed = errors.New("channel: closed")

const (
	readyMethod = "__ready"
	readyPing   = "ping"
	readyPong   = "pong"
)

// Channel is one configured protocol instance over a transport port. All
// state lives on the instance; two channels never share tables.
type Channel struct {
	cfg   Config
	port  transport.Port
	log   zerolog.Logger
	table *table
	reg   *registry
	queue *pendingQueue

	idMu   sync.Mutex
	nextID int64

	readyMu      sync.Mutex
	readyHandled bool

	closeMu sync.Mutex
	closed  bool
}

// New attaches a channel to port and starts the readiness handshake: the
// ready ping is transmitted first, then the not-ready gate arms (hosts
// only), then the receiver attaches. That ordering keeps the ping itself
// out of the pending queue. Guests start ready.
func New(cfg Config, port transport.Port) (*Channel, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: nil port", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Channel{
		cfg:   cfg,
		port:  port,
		table: newTable(),
		reg:   newRegistry(),
		queue: newPendingQueue(true),
	}
	c.log = cfg.logger().With().
		Str("component", "channel").
		Str("role", cfg.Role.String()).
		Str("scope", cfg.Scope).
		Logger()
	switch cfg.Role {
	case RoleHost:
		c.nextID = 2
	case RoleGuest:
		c.nextID = 1
	}

	ping := wire.Message{
		Method: wire.JoinScope(cfg.Scope, readyMethod),
		Params: value.String(readyPing),
	}
	if err := c.postForced(ping); err != nil {
		return nil, fmt.Errorf("channel: ready ping: %w", err)
	}
	if cfg.Role == RoleHost {
		c.queue.markNotReady()
	}
	port.SetReceiver(c.route)
	c.log.Debug().Msgf("channel.new origin=%s ready=%v", cfg.PeerOrigin, c.queue.isReady())
	return c, nil
}

// Query is one correlated request. Success is required and fires with the
// peer's result; Failure is optional and fires with the peer's coded error.
// Exactly one of them fires, once, when the peer responds; a peer that
// never responds leaves the transaction open indefinitely.
type Query struct {
	Method  string
	Params  value.Value
	Success func(result value.Value)
	Failure func(code, message string)
}

// Query extracts the invocables nested in q.Params into callback
// declarations, records the transaction, and transmits the request.
// Traffic issued before the readiness handshake completes is queued and
// later flushes newest-first.
func (c *Channel) Query(q Query) error {
	if c.isClosed() {
		return ErrClosed
	}
	if q.Method == "" {
		return fmt.Errorf("%w: query needs a method", ErrInvalidArgument)
	}
	if q.Success == nil {
		return fmt.Errorf("%w: query needs a success continuation", ErrInvalidArgument)
	}
	params, paths, funcs := value.ExtractFuncs(q.Params)
	id := c.allocID()
	c.table.createOutbound(id, q.Success, q.Failure, funcs)
	msg := wire.Message{
		ID:        id,
		HasID:     true,
		Method:    wire.JoinScope(c.cfg.Scope, q.Method),
		Params:    params,
		Callbacks: paths,
	}
	if err := c.post(msg); err != nil {
		c.table.takeOutbound(id)
		return err
	}
	c.log.Debug().Msgf("channel.query method=%s id=%d callbacks=%d", q.Method, id, len(paths))
	return nil
}

// Notify transmits one fire-and-forget notification. No transaction is
// recorded and no response will ever arrive. Invocables nested in params
// do not survive serialization.
func (c *Channel) Notify(method string, params value.Value) error {
	if c.isClosed() {
		return ErrClosed
	}
	if method == "" {
		return fmt.Errorf("%w: notify needs a method", ErrInvalidArgument)
	}
	if err := c.post(wire.Message{
		Method: wire.JoinScope(c.cfg.Scope, method),
		Params: params,
	}); err != nil {
		return err
	}
	c.log.Debug().Msgf("channel.notify method=%s", method)
	return nil
}

// Bind registers a handler for inbound requests and notifications carrying
// method. The ready method name is reserved by the handshake.
func (c *Channel) Bind(method string, h Handler) error {
	if c.isClosed() {
		return ErrClosed
	}
	if method == readyMethod {
		return fmt.Errorf("%w: %s is reserved", ErrAlreadyBound, readyMethod)
	}
	return c.reg.bind(method, h)
}

// Unbind removes a binding. Absent bindings are a no-op.
func (c *Channel) Unbind(method string) {
	c.reg.unbind(method)
}

// Ready reports whether the readiness handshake has completed on this
// side.
func (c *Channel) Ready() bool {
	return c.queue.isReady()
}

// Open returns the number of transactions currently tracked.
func (c *Channel) Open() int {
	return c.table.size()
}

// Close detaches the channel from its port and drops all channel state.
// Open transactions never complete and queued traffic is discarded. The
// underlying port stays open; the caller owns it.
func (c *Channel) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.port.SetReceiver(nil)
	c.table.clear()
	c.log.Debug().Msgf("channel.close")
	return nil
}

func (c *Channel) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func (c *Channel) allocID() int64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := c.nextID
	c.nextID += 2
	return id
}

// post encodes and transmits, holding the payload whenever the readiness
// gate is armed.
func (c *Channel) post(m wire.Message) error {
	payload, err := m.Encode()
	if err != nil {
		return err
	}
	if c.queue.offer(string(payload)) {
		c.log.Debug().Msgf("channel.post queued bytes=%d", len(payload))
		return nil
	}
	return c.port.Send(string(payload))
}

// postForced bypasses the readiness gate; only handshake traffic uses it.
func (c *Channel) postForced(m wire.Message) error {
	payload, err := m.Encode()
	if err != nil {
		return err
	}
	return c.port.Send(string(payload))
}

// handleReady processes the peer's handshake notification: flush the
// backlog, flip to ready, and answer a ping with a pong. Later handshake
// notifications are dropped.
func (c *Channel) handleReady(params value.Value) bool {
	c.readyMu.Lock()
	if c.readyHandled {
		c.readyMu.Unlock()
		c.drop("ready_duplicate", "")
		return false
	}
	c.readyHandled = true
	c.readyMu.Unlock()
	observability.RecordChannelRouted(wire.KindNotification.String())

	payload := params.Str()
	c.log.Debug().Msgf("channel.ready payload=%s queued=%d", payload, c.queue.depth())
	c.queue.drain(func(p string) {
		if err := c.port.Send(p); err != nil {
			c.log.Warn().Msgf("channel.ready flush send failed err=%v", err)
		}
	})
	if payload != readyPong {
		if err := c.postForced(wire.Message{
			Method: wire.JoinScope(c.cfg.Scope, readyMethod),
			Params: value.String(readyPong),
		}); err != nil {
			c.log.Warn().Msgf("channel.ready pong failed err=%v", err)
		}
	}
	if c.cfg.OnReady != nil {
		c.cfg.OnReady(c)
	}
	return true
}
