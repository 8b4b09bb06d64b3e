package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/hub"
	"github.com/DoyleJ11/farkle-backend/internal/protocol"
	"github.com/DoyleJ11/farkle-backend/internal/room"
	"github.com/DoyleJ11/farkle-backend/internal/session"
)

const (
	writeTimeout     = 3 * time.Second
	outboxSize       = 32
	roomOutboxSize   = 32
	requestTimeout   = 5 * time.Second
	defaultIdleLimit = 5 * time.Minute
)

type Options struct {
	IdleTimeout    time.Duration
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := session.New("")
		c := &connection{
			conn:   conn,
			hub:    h,
			sess:   sess,
			out:    make(chan protocol.Message, outboxSize),
			idle:   opts.IdleTimeout,
			log:    opts.Logger.With(zap.String("session", sess.ID())),
			ctx:    ctx,
			cancel: cancel,
		}
		c.handlers = map[protocol.EventType]func(protocol.Message){
			protocol.EvtCreateRoom:     c.createRoom,
			protocol.EvtJoinRoom:       c.joinRoom,
			protocol.EvtRename:         c.rename,
			protocol.EvtLeaveRoom:      func(protocol.Message) { c.leaveRoom() },
			protocol.EvtPlayerReady:    c.relay,
			protocol.EvtGameRoll:       c.relay,
			protocol.EvtGameSelect:     c.relay,
			protocol.EvtGameTurnLost:   c.relay,
			protocol.EvtGameTurnScored: c.relay,
			protocol.EvtGameWon:        c.relay,
		}

		c.log.Debug("connected")
		defer c.log.Debug("disconnected")
		defer c.leaveRoom()

		go c.writer()
		c.reader()
	}
}

type connection struct {
	conn     *websocket.Conn
	hub      *hub.Hub
	sess     *session.Session
	out      chan protocol.Message
	idle     time.Duration
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	handlers map[protocol.EventType]func(protocol.Message)

	// room is only touched by the reader goroutine.
	room *room.Room
}

// writer drains the outbox. A failed write stops the whole connection.
func (c *connection) writer() {
	defer c.cancel()
	for {
		select {
		case <-c.ctx.Done():
			return
		case m := <-c.out:
			payload, err := protocol.Encode(m)
			if err != nil {
				c.log.Error("encode failed", zap.Error(err))
				continue
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err = c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *connection) reader() {
	for {
		ctx, cancel := context.WithTimeout(c.ctx, c.idle)
		_, data, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read ended", zap.Error(err))
			}
			return
		}

		m, err := protocol.Decode(data)
		if err != nil {
			c.notice(noticeFor(err))
			continue
		}
		h, ok := c.handlers[m.Type()]
		if !ok {
			c.notice(fmt.Sprintf("unexpected %s", m.Type()))
			continue
		}
		h(m)
	}
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown type"
	case errors.Is(err, protocol.ErrBadPayload):
		return "bad payload"
	}
	return "bad json"
}

func (c *connection) send(m protocol.Message) {
	select {
	case c.out <- m:
	case <-c.ctx.Done():
	}
}

func (c *connection) notice(text string) { c.send(protocol.Notice{Text: text}) }

// current returns the room the session is still attached to.
func (c *connection) current() *room.Room {
	if c.room == nil || c.sess.Snapshot().RoomID != c.room.ID() {
		return nil
	}
	return c.room
}

// forward copies a room's messages to the socket until the room detaches us.
func (c *connection) forward(roomID string, in <-chan protocol.Message) {
	for m := range in {
		c.send(m)
	}
	c.sess.Detach(roomID)
}

func (c *connection) member(outbox chan protocol.Message) room.Member {
	return room.Member{ID: c.sess.ID(), Name: c.sess.Name(), Outbox: outbox}
}

func (c *connection) createRoom(m protocol.Message) {
	c.leaveRoom()
	c.sess.Rename(m.(protocol.CreateRoom).DisplayName)

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	outbox := make(chan protocol.Message, roomOutboxSize)
	rm, err := c.hub.Create(ctx, c.member(outbox))
	if err != nil {
		c.log.Warn("create room failed", zap.Error(err))
		c.notice("could not create room")
		return
	}

	c.attach(rm, protocol.RoleCreator)
	c.send(protocol.RoomCreated{RoomID: rm.ID()})
	go c.forward(rm.ID(), outbox)
}

func (c *connection) joinRoom(m protocol.Message) {
	req := m.(protocol.JoinRoom)
	c.leaveRoom()
	c.sess.Rename(req.DisplayName)

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	rm, err := c.hub.Get(ctx, req.RoomID)
	if err != nil {
		c.send(protocol.RoomJoinResult{Reason: joinReason(err)})
		return
	}

	outbox := make(chan protocol.Message, roomOutboxSize)
	res, err := rm.Join(ctx, c.member(outbox))
	if err != nil {
		c.send(protocol.RoomJoinResult{Reason: joinReason(err)})
		return
	}

	c.attach(rm, res.Role)
	c.send(protocol.RoomJoinResult{OK: true, Role: res.Role, CreatorName: res.CreatorName})
	go c.forward(rm.ID(), outbox)
}

func joinReason(err error) string {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound), errors.Is(err, room.ErrClosed):
		return "room not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "server timeout"
	}
	return "could not join room"
}

func (c *connection) attach(rm *room.Room, role protocol.Role) {
	c.room = rm
	c.sess.Attach(rm.ID(), role)
	c.log.Info("attached", zap.String("room", rm.ID()), zap.String("role", string(role)))
}

func (c *connection) rename(m protocol.Message) {
	name := c.sess.Rename(m.(protocol.Rename).DisplayName)
	if rm := c.current(); rm != nil {
		rm.Send(room.Rename{MemberID: c.sess.ID(), Name: name})
	}
}

func (c *connection) leaveRoom() {
	rm := c.current()
	c.room = nil
	if rm == nil {
		return
	}
	rm.Send(room.Leave{MemberID: c.sess.ID()})
	c.sess.Detach(rm.ID())
}

func (c *connection) relay(m protocol.Message) {
	rm := c.current()
	if rm == nil {
		c.notice("not in a room")
		return
	}
	rm.Send(room.FromClient{MemberID: c.sess.ID(), Msg: m})
}
