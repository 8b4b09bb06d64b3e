package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/room"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrHubClosed = errors.New("hub closed")

// maxCodeAttempts bounds the retries on a code collision.
const maxCodeAttempts = 16

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Creator room.Member
	Reply   chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

type RemoveRoom struct {
	ID string
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Option func(*Hub)

// WithCodes replaces the room code generator.
func WithCodes(gen func() (string, error)) Option {
	return func(h *Hub) { h.codes = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) { h.log = l }
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	codes  func() (string, error)
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		codes:  GenerateCode,
		log:    zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.ctx.Done():
		return ErrHubClosed
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create opens a room with a fresh code and seats the creator.
func (h *Hub) Create(ctx context.Context, creator room.Member) (*room.Room, error) {
	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateRoom{Creator: creator, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get looks a room up by code. Codes are matched case-insensitively.
func (h *Hub) Get(ctx context.Context, id string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rm := <-reply:
		if rm == nil {
			return nil, fmt.Errorf("%q: %w", id, ErrRoomNotFound)
		}
		return rm, nil
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove drops a room from the registry. It never blocks after shutdown.
func (h *Hub) Remove(id string) {
	if err := h.send(context.Background(), RemoveRoom{ID: id}); err != nil {
		h.log.Debug("remove after shutdown", zap.String("room", id), zap.Error(err))
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, Count{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg.Creator)

			case GetRoom:
				msg.Reply <- h.rooms[normalizeCode(msg.ID)] // May be nil

			case RemoveRoom:
				if _, ok := h.rooms[msg.ID]; ok {
					delete(h.rooms, msg.ID)
					h.log.Info("room removed", zap.String("room", msg.ID), zap.Int("rooms", len(h.rooms)))
				}

			case Count:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(creator room.Member) CreateResult {
	for range maxCodeAttempts {
		code, err := h.codes()
		if err != nil {
			return CreateResult{Err: fmt.Errorf("generate code: %w", err)}
		}
		if _, taken := h.rooms[code]; taken {
			h.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}

		rm := room.New(h.ctx, code, creator, h.Remove, h.log)
		h.rooms[code] = rm
		h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.rooms)))
		return CreateResult{Room: rm}
	}
	return CreateResult{Err: fmt.Errorf("no free code after %d attempts", maxCodeAttempts)}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Send(room.Shutdown{})
	}
	clear(h.rooms)
}

func normalizeCode(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
