package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/protocol"
)

var (
	ErrTimeout      = errors.New("server timeout")
	ErrDisconnected = errors.New("disconnected from server")
	ErrJoinRejected = errors.New("join rejected")
	ErrBusy         = errors.New("another request is in flight")
)

const (
	DefaultRequestTimeout = 5 * time.Second
	writeTimeout          = 3 * time.Second
)

// Handler receives every server message that is not the reply to a pending
// create or join.
type Handler interface {
	Handle(m protocol.Message)
}

type HandlerFunc func(m protocol.Message)

func (f HandlerFunc) Handle(m protocol.Message) { f(m) }

type Option func(*Client)

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

func WithRequestTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

type request struct {
	want  protocol.EventType
	reply chan protocol.Message
}

type Client struct {
	conn    *websocket.Conn
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	handler Handler
	backlog []protocol.Message
	pending *request

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Dial connects to the server's websocket endpoint and starts reading.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		log:     zap.NewNop(),
		timeout: DefaultRequestTimeout,
		ctx:     cctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

// SetHandler installs h and replays whatever arrived before it.
func (c *Client) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	backlog := c.backlog
	c.backlog = nil
	c.mu.Unlock()

	for _, m := range backlog {
		h.Handle(m)
	}
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.err = fmt.Errorf("%w: %v", ErrDisconnected, err)
			c.log.Debug("read ended", zap.Error(err))
			return
		}
		m, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("dropping server message", zap.Error(err))
			continue
		}
		c.dispatch(m)
	}
}

func (c *Client) dispatch(m protocol.Message) {
	c.mu.Lock()
	if req := c.pending; req != nil && req.want == m.Type() {
		c.pending = nil
		c.mu.Unlock()
		req.reply <- m
		return
	}
	h := c.handler
	if h == nil {
		c.backlog = append(c.backlog, m)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	h.Handle(m)
}

// Emit sends one message to the server.
func (c *Client) Emit(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// await sends m and waits for the first reply of type want. The timeout, the
// disconnect and the reply race; whichever comes first settles the request
// and a late reply goes to the handler instead.
func (c *Client) await(ctx context.Context, m protocol.Message, want protocol.EventType) (protocol.Message, error) {
	req := &request{want: want, reply: make(chan protocol.Message, 1)}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.pending = req
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	if err := c.Emit(m); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-req.reply:
		return reply, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-c.done:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CreateRoom asks for a new room and returns its code.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	reply, err := c.await(ctx, protocol.CreateRoom{DisplayName: name}, protocol.EvtRoomCreated)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return reply.(protocol.RoomCreated).RoomID, nil
}

// JoinRoom joins an existing room. A refusal is reported as ErrJoinRejected
// carrying the server's reason.
func (c *Client) JoinRoom(ctx context.Context, roomID, name string) (protocol.RoomJoinResult, error) {
	reply, err := c.await(ctx, protocol.JoinRoom{RoomID: roomID, DisplayName: name}, protocol.EvtRoomJoinResult)
	if err != nil {
		return protocol.RoomJoinResult{}, fmt.Errorf("join room: %w", err)
	}
	res := reply.(protocol.RoomJoinResult)
	if !res.OK {
		return res, fmt.Errorf("%w: %s", ErrJoinRejected, res.Reason)
	}
	return res, nil
}

func (c *Client) Rename(name string) error { return c.Emit(protocol.Rename{DisplayName: name}) }

func (c *Client) Leave() error { return c.Emit(protocol.LeaveRoom{}) }

func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "bye")
	c.cancel()
	<-c.done
	return err
}
