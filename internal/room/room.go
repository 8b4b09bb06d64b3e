package room

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/protocol"
)

var ErrClosed = errors.New("room closed")

type Msg interface{ isRoomMsg() }

// Member is one connection taking part in a room. The room closes Outbox when
// the member is detached.
type Member struct {
	ID     string
	Name   string
	Outbox chan protocol.Message
}

type Join struct {
	Member Member
	Reply  chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Role        protocol.Role
	CreatorName string
	Err         error
}

type Leave struct{ MemberID string }

func (Leave) isRoomMsg() {}

// FromClient carries a game event or readiness signal from one member.
type FromClient struct {
	MemberID string
	Msg      protocol.Message
}

func (FromClient) isRoomMsg() {}

type Rename struct {
	MemberID string
	Name     string
}

func (Rename) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type MemberView struct {
	Name string        `json:"name"`
	Role protocol.Role `json:"role"`
}

type View struct {
	ID         string        `json:"id"`
	Members    []MemberView  `json:"members"`
	Started    bool          `json:"started"`
	Turn       protocol.Role `json:"turn,omitempty"`
	NumClients int           `json:"numClients"`
}

type member struct {
	Member
	role protocol.Role
}

type Room struct {
	id      string
	inbox   chan Msg
	members map[string]*member
	order   []string
	turn    protocol.Role
	ready   map[protocol.Role]bool
	started bool
	onClose func(id string)
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts a room with its creator already seated. onClose runs on the room
// goroutine once a playing member left and the room has stopped.
func New(parent context.Context, id string, creator Member, onClose func(id string), log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	r := &Room{
		id:      id,
		inbox:   make(chan Msg, 64),
		members: make(map[string]*member),
		ready:   make(map[protocol.Role]bool),
		onClose: onClose,
		log:     log.With(zap.String("room", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
	r.add(creator, protocol.RoleCreator)

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

// Inbox exposes the actor's queue to the hub, the ws layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room stopped.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send queues m unless the room already stopped.
func (r *Room) Send(m Msg) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Join seats a member and waits for the assigned role.
func (r *Room) Join(ctx context.Context, m Member) (JoinResult, error) {
	reply := make(chan JoinResult, 1)
	if !r.Send(Join{Member: m, Reply: reply}) {
		return JoinResult{}, ErrClosed
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-r.ctx.Done():
		return JoinResult{}, ErrClosed
	case <-ctx.Done():
		return JoinResult{}, ctx.Err()
	}
}

// State returns a copy of the room's membership.
func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !r.Send(GetState{Reply: reply}) {
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.join(msg.Member)

			case Leave:
				if r.leave(msg.MemberID) {
					return
				}

			case FromClient:
				if r.fromClient(msg) {
					return
				}

			case Rename:
				if r.rename(msg) {
					return
				}

			case GetState:
				msg.Reply <- r.view()

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) add(m Member, role protocol.Role) {
	r.members[m.ID] = &member{Member: m, role: role}
	r.order = append(r.order, m.ID)
}

func (r *Room) remove(id string) *member {
	m, ok := r.members[id]
	if !ok {
		return nil
	}
	delete(r.members, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	close(m.Outbox)
	return m
}

func (r *Room) byRole(role protocol.Role) *member {
	for _, id := range r.order {
		if m := r.members[id]; m.role == role {
			return m
		}
	}
	return nil
}

func (r *Room) join(m Member) JoinResult {
	if _, ok := r.members[m.ID]; ok {
		return JoinResult{Err: fmt.Errorf("member %s: already in room", m.ID)}
	}

	role := protocol.RoleSpectator
	if r.byRole(protocol.RoleOpponent) == nil {
		role = protocol.RoleOpponent
	}
	r.add(m, role)

	res := JoinResult{Role: role}
	if c := r.byRole(protocol.RoleCreator); c != nil {
		res.CreatorName = c.Name
	}

	dropped := r.broadcastExcept(m.ID, protocol.Notice{Text: fmt.Sprintf("%s joined as %s", m.Name, role)})
	if role == protocol.RoleOpponent {
		dropped = append(dropped, r.broadcastExcept(m.ID, protocol.PlayerRename{Role: role, Name: m.Name})...)
	} else if o := r.byRole(protocol.RoleOpponent); o != nil {
		dropped = append(dropped, r.sendTo(m.ID, protocol.PlayerRename{Role: o.role, Name: o.Name})...)
	}

	r.log.Info("member joined", zap.String("member", m.ID), zap.String("role", string(role)))
	// If this tears the room down the joiner reads room_closed from its outbox.
	r.dropAll(dropped)
	return res
}

// leave removes a member. It reports true when the room has shut down.
func (r *Room) leave(id string) bool {
	m := r.remove(id)
	if m == nil {
		return false
	}
	r.log.Info("member left", zap.String("member", id), zap.String("role", string(m.role)))

	if !m.role.Playing() {
		return false
	}

	text := fmt.Sprintf("%s left the room", m.Name)
	for _, oid := range r.order {
		o := r.members[oid]
		r.deliver(o, protocol.Notice{Text: text})
		r.deliver(o, protocol.RoomClosed{})
	}
	r.detachAll()
	r.cancel()
	if r.onClose != nil {
		r.onClose(r.id)
	}
	return true
}

func (r *Room) fromClient(msg FromClient) bool {
	sender, ok := r.members[msg.MemberID]
	if !ok {
		return false
	}

	switch m := msg.Msg.(type) {
	case protocol.PlayerReady:
		return r.markReady(sender)
	default:
		if !protocol.IsGameEvent(m.Type()) {
			return false
		}
		if !r.started || sender.role != r.turn {
			r.log.Debug("dropping out of turn event",
				zap.String("member", sender.ID), zap.String("type", string(m.Type())))
			return false
		}
		switch m.Type() {
		case protocol.EvtGameTurnScored, protocol.EvtGameTurnLost:
			r.turn = r.turn.Other()
		case protocol.EvtGameWon:
			r.turn = protocol.RoleNone
			r.started = false
		}
		return r.dropAll(r.broadcastExcept(sender.ID, m))
	}
}

func (r *Room) markReady(sender *member) bool {
	if !sender.role.Playing() {
		return false
	}
	r.ready[sender.role] = true
	if r.byRole(protocol.RoleOpponent) == nil || !r.ready[protocol.RoleCreator] || !r.ready[protocol.RoleOpponent] {
		return false
	}

	clear(r.ready)
	r.turn = protocol.RoleCreator
	r.started = true
	r.log.Info("round started")
	return r.dropAll(r.broadcastExcept("", protocol.GameStart{}))
}

func (r *Room) rename(msg Rename) bool {
	m, ok := r.members[msg.MemberID]
	if !ok {
		return false
	}
	m.Name = msg.Name
	if !m.role.Playing() {
		return false
	}
	return r.dropAll(r.broadcastExcept(m.ID, protocol.PlayerRename{Role: m.role, Name: m.Name}))
}

// deliver never blocks. A full outbox reports false.
func (r *Room) deliver(m *member, msg protocol.Message) bool {
	select {
	case m.Outbox <- msg:
		return true
	default:
		return false
	}
}

func (r *Room) sendTo(id string, msg protocol.Message) []string {
	if m, ok := r.members[id]; ok && !r.deliver(m, msg) {
		return []string{id}
	}
	return nil
}

// broadcastExcept sends msg to every member but skip, in join order, and
// returns the members whose outbox was full.
func (r *Room) broadcastExcept(skip string, msg protocol.Message) []string {
	var dropped []string
	for _, id := range r.order {
		if id == skip {
			continue
		}
		if !r.deliver(r.members[id], msg) {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// dropAll treats slow members as having left.
func (r *Room) dropAll(ids []string) bool {
	for _, id := range ids {
		r.log.Warn("dropping slow member", zap.String("member", id))
		if r.leave(id) {
			return true
		}
	}
	return false
}

func (r *Room) detachAll() {
	for len(r.order) > 0 {
		r.remove(r.order[0])
	}
}

func (r *Room) shutdown() {
	for _, id := range r.order {
		r.deliver(r.members[id], protocol.RoomClosed{})
	}
	r.detachAll()
	r.cancel()
}

func (r *Room) view() View {
	v := View{
		ID:         r.id,
		Members:    make([]MemberView, 0, len(r.order)),
		Started:    r.started,
		Turn:       r.turn,
		NumClients: len(r.members),
	}
	for _, id := range r.order {
		m := r.members[id]
		v.Members = append(v.Members, MemberView{Name: m.Name, Role: m.role})
	}
	return v
}
