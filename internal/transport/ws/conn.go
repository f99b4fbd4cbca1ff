// Package ws owns the client side of the musicbox websocket: one long-lived
// connection that multiplexes correlated requests, delivers pushed events,
// and reconnects on failure without the callers noticing anything but a
// rejected in-flight request.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"musicbox/client/internal/protocol"
)

// State is the connection lifecycle phase.
type State int32

const (
	// StateConnecting covers the initial dial, before the socket has ever
	// been open.
	StateConnecting State = iota
	StateOpen
	// StateReconnecting covers every re-dial after a drop.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrConnectionLost settles every request that was pending when the
	// socket dropped.
	ErrConnectionLost = errors.New("connection lost")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("connection closed")
)

const (
	defaultMinBackoff  = 250 * time.Millisecond
	defaultMaxBackoff  = 8 * time.Second
	defaultEventBuffer = 16
)

// Options configures a Conn. Zero durations fall back to the defaults; a
// nil Logger disables logging.
type Options struct {
	URL         string
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	EventBuffer int
	Logger      *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MinBackoff <= 0 {
		o.MinBackoff = defaultMinBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = defaultEventBuffer
	}
	return o
}

// Conn is the single logical connection. The underlying socket is owned
// exclusively by the manage loop and replaced wholesale on every reconnect,
// never mutated in place.
type Conn struct {
	opts Options
	log  zerolog.Logger
	reg  *Registry

	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	sock    *websocket.Conn
	queue   [][]byte
	subs    map[int]chan protocol.Event
	nextSub int
	openCh  chan struct{}
	closed  bool
	done    chan struct{}
}

// Dial starts the connection manage loop and returns immediately; the first
// socket comes up in the background. There is no terminal failure state: the
// loop retries with capped exponential backoff until Close.
func Dial(opts Options) *Conn {
	opts = opts.withDefaults()
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	c := &Conn{
		opts:   opts,
		log:    log,
		reg:    NewRegistry(),
		state:  StateConnecting,
		subs:   make(map[int]chan protocol.Event),
		openCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

// State reports the current lifecycle phase.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitOpen blocks until the socket is open, the context ends, or the
// connection is closed.
func (c *Conn) WaitOpen(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if c.state == StateOpen {
			c.mu.Unlock()
			return nil
		}
		open := c.openCh
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case <-open:
		}
	}
}

// Request sends a correlated request and blocks until the matching response
// arrives, the connection drops, or the context ends. The returned payload
// is raw; the endpoint's schema decodes it.
func (c *Conn) Request(ctx context.Context, path string, data any) (json.RawMessage, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode request data: %w", err)
		}
		raw = b
	}

	id, outcome := c.reg.Register()
	frame, err := protocol.EncodeRequest(id, path, raw)
	if err != nil {
		c.reg.Reject(id, err)
		return nil, err
	}
	if err := c.send(frame); err != nil {
		c.reg.Reject(id, err)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.reg.Reject(id, ctx.Err())
		return nil, ctx.Err()
	case out := <-outcome:
		return out.Raw, out.Err
	}
}

// SendCommand fires a command at the server. No correlation id, no response;
// while the socket is down the frame is queued and flushed on open.
func (c *Conn) SendCommand(cmd protocol.Command) error {
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.send(frame)
}

// Subscribe registers an event channel. Events the subscriber does not drain
// in time are dropped, never blocking the dispatch loop. The returned cancel
// removes the subscription and closes the channel.
func (c *Conn) Subscribe() (<-chan protocol.Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan protocol.Event, c.opts.EventBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops the manage loop, rejects everything pending, and closes all
// event subscriptions.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	sock := c.sock
	c.sock = nil
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	c.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}
	c.reg.RejectAll(ErrClosed)
	return nil
}

// send transmits a frame on the current socket, or queues it while no
// socket is open. It never panics on a non-open connection.
func (c *Conn) send(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	sock := c.sock
	if sock == nil {
		c.queue = append(c.queue, frame)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := sock.WriteMessage(websocket.TextMessage, frame); err != nil {
		// The read loop sees the same failure and triggers the reconnect.
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Conn) run() {
	backoff := c.opts.MinBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		sock, _, err := websocket.DefaultDialer.Dial(c.opts.URL, nil)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("dial failed")
			select {
			case <-c.done:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.opts.MaxBackoff {
				backoff = c.opts.MaxBackoff
			}
			continue
		}
		backoff = c.opts.MinBackoff

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = sock.Close()
			return
		}
		c.sock = sock
		c.state = StateOpen
		queued := c.queue
		c.queue = nil
		close(c.openCh)
		c.mu.Unlock()
		c.log.Info().Str("url", c.opts.URL).Msg("connection open")

		c.flush(sock, queued)
		c.readLoop(sock)
		_ = sock.Close()

		c.mu.Lock()
		c.sock = nil
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.state = StateReconnecting
		c.openCh = make(chan struct{})
		c.mu.Unlock()

		// Settle every in-flight request before the replacement socket
		// carries anything new.
		c.reg.RejectAll(ErrConnectionLost)
		c.log.Warn().Msg("connection lost, reconnecting")
	}
}

// flush transmits frames queued while the socket was down, in send order.
func (c *Conn) flush(sock *websocket.Conn, queued [][]byte) {
	if len(queued) == 0 {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, frame := range queued {
		if err := sock.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.log.Warn().Err(err).Msg("flush queued frame failed")
			return
		}
	}
}

func (c *Conn) readLoop(sock *websocket.Conn) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
		c.dispatch(data)
	}
}

// dispatch routes one inbound frame: responses to the registry, events to
// the subscribers. Malformed input is logged and dropped; nothing inbound
// ever kills the connection.
func (c *Conn) dispatch(data []byte) {
	msg, err := protocol.DecodeServerMessage(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("discarding frame")
		return
	}

	switch msg.Type {
	case protocol.TypeResponse:
		if !c.reg.Resolve(msg.ID, msg.Response) {
			c.log.Warn().Uint64("id", msg.ID).Msg("response with no pending request")
		}
	case protocol.TypeEvent:
		ev, err := protocol.DecodeEvent(msg.Event)
		if err != nil {
			c.log.Warn().Err(err).Msg("discarding event")
			return
		}
		c.publish(ev)
	}
}

func (c *Conn) publish(ev protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default:
			c.log.Warn().Str("event", ev.Type).Msg("slow subscriber, event dropped")
		}
	}
}
