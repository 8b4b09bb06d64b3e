package netplay

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/engine"
	"github.com/DoyleJ11/farkle-backend/internal/protocol"
	"github.com/DoyleJ11/farkle-backend/internal/turn"
)

var ErrNotPlaying = errors.New("spectators cannot signal ready")
var ErrClosed = errors.New("game closed")

// Emitter sends a message to the relay.
type Emitter interface {
	Emit(m protocol.Message) error
}

type handlerFunc func(protocol.Message)

// Controller keeps one peer's copy of the board in step with the other peer.
// Local actions are only accepted on the local player's turn; remote events
// are only applied while it is not.
type Controller struct {
	mu       sync.Mutex
	board    *engine.Board
	role     protocol.Role
	emitter  Emitter
	cfg      turn.Config
	sched    *turn.Scheduler
	feed     *turn.Feed
	log      *zap.Logger
	phase    turn.Phase
	winner   engine.Player
	names    [2]string
	handlers map[protocol.EventType]handlerFunc
}

func New(role protocol.Role, board *engine.Board, emitter Emitter, opts ...turn.Option) *Controller {
	cfg := turn.NewConfig(opts...)
	c := &Controller{
		board:   board,
		role:    role,
		emitter: emitter,
		cfg:     cfg,
		feed:    turn.NewFeed(),
		log:     cfg.Logger.With(zap.String("mode", "online"), zap.String("role", string(role))),
		phase:   turn.PhaseAwaitingRoll,
	}
	c.sched = turn.NewScheduler(cfg.Clock, &c.mu)
	c.handlers = map[protocol.EventType]handlerFunc{
		protocol.EvtGameStart:      c.handleStart,
		protocol.EvtGameRoll:       c.handleRoll,
		protocol.EvtGameSelect:     c.handleSelect,
		protocol.EvtGameTurnLost:   c.handleTurnLost,
		protocol.EvtGameTurnScored: c.handleTurnScored,
		protocol.EvtGameWon:        c.handleWon,
		protocol.EvtPlayerRename:   c.handleRename,
		protocol.EvtRoomClosed:     c.handleClosed,
	}
	return c
}

func (c *Controller) Updates() <-chan turn.Update { return c.feed.C() }

func (c *Controller) Role() protocol.Role { return c.role }

// IsLocalPlayerActive reports whether the board's active player is this peer.
func (c *Controller) IsLocalPlayerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localActive()
}

func (c *Controller) localActive() bool {
	side, ok := c.role.Side()
	return ok && c.phase != turn.PhaseClosed && c.board.ActivePlayer() == side
}

// Ready tells the relay this player wants the next round to start.
func (c *Controller) Ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.role.Playing() {
		return ErrNotPlaying
	}
	if c.phase == turn.PhaseClosed {
		return ErrClosed
	}
	return c.emitter.Emit(protocol.PlayerReady{})
}

func (c *Controller) Select(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.localActive() || c.phase.Locked() {
		return false
	}
	d, ok := c.board.ToggleSelect(i)
	if !ok {
		return false
	}
	c.emit(protocol.GameSelect{DieIndex: i, IsSelected: d.Selected})
	c.publish()
	return true
}

func (c *Controller) Roll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.localActive() || turn.RollDisabled(c.phase, c.board) {
		return false
	}

	c.board.StoreSelected()
	c.board.RollDice(false)
	c.emitRoll()
	if !c.board.IsPlayable() {
		c.loseTurn()
	} else {
		c.phase = turn.PhaseSelecting
	}
	c.publish()
	return true
}

func (c *Controller) Take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.localActive() || turn.TakeDisabled(c.phase, c.board) {
		return false
	}

	player := c.board.ActivePlayer()
	total := c.board.BankTurn()
	totals := c.board.TotalScore()
	if total >= c.cfg.WinScore {
		c.phase = turn.PhaseRoundWon
		c.winner = player
		c.log.Info("round won", zap.Int("total", total))
		c.emit(protocol.GameWon{TotalScore: totals})
		c.publish()
		return true
	}

	c.emit(protocol.GameTurnScored{TotalScore: totals})
	c.board.ClearDice()
	c.board.SwitchActivePlayer()
	c.phase = turn.PhaseAwaitingRoll
	c.publish()
	return true
}

// Handle applies one message from the relay.
func (c *Controller) Handle(m protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handlers[m.Type()]
	if !ok || c.phase == turn.PhaseClosed {
		return
	}
	h(m)
	c.publish()
}

func (c *Controller) handleStart(protocol.Message) {
	c.sched.Cancel()
	c.board.FullReset()
	c.board.SetActivePlayer(engine.PlayerOne)
	c.winner = engine.PlayerOne
	c.phase = turn.PhaseAwaitingRoll

	if !c.localActive() {
		return
	}
	for {
		c.board.RollDice(true)
		if c.board.IsPlayable() {
			break
		}
	}
	c.emitRoll()
	c.phase = turn.PhaseSelecting
}

func (c *Controller) handleRoll(m protocol.Message) {
	// A roll during the turn-lost delay comes from whoever's clock fired first.
	// Finish our own pending switch before applying it.
	if c.phase == turn.PhaseTurnLost && c.sched.Pending() {
		c.sched.Cancel()
		c.passTurn()
	}
	if c.localActive() {
		return
	}
	roll := m.(protocol.GameRoll)
	if err := c.board.SetDice(roll.DiceStates(), roll.StoredScore); err != nil {
		c.log.Warn("dropping bad roll", zap.Error(err))
		return
	}
	if c.phase != turn.PhaseTurnLost {
		c.phase = turn.PhaseSelecting
	}
}

func (c *Controller) handleSelect(m protocol.Message) {
	if c.localActive() || c.phase.Locked() {
		return
	}
	sel := m.(protocol.GameSelect)
	if err := c.board.SetSelect(sel.DieIndex, sel.IsSelected); err != nil {
		c.log.Warn("dropping bad select", zap.Error(err))
	}
}

func (c *Controller) handleTurnLost(protocol.Message) {
	if c.localActive() {
		return
	}
	c.board.DiscardStored()
	c.phase = turn.PhaseTurnLost
	c.sched.Schedule(c.cfg.Delay, func() {
		c.board.ClearDice()
		c.board.SwitchActivePlayer()
		c.phase = turn.PhaseAwaitingRoll
		if c.localActive() {
			c.openTurn()
		}
		c.publish()
	})
}

func (c *Controller) handleTurnScored(m protocol.Message) {
	if c.localActive() {
		return
	}
	c.board.SetTotals(m.(protocol.GameTurnScored).TotalScore)
	c.board.ClearDice()
	c.board.SwitchActivePlayer()
	c.phase = turn.PhaseAwaitingRoll
	if c.localActive() {
		c.openTurn()
	}
}

func (c *Controller) handleWon(m protocol.Message) {
	if c.localActive() {
		return
	}
	c.sched.Cancel()
	c.board.SetTotals(m.(protocol.GameWon).TotalScore)
	c.winner = c.board.ActivePlayer()
	c.phase = turn.PhaseRoundWon
}

func (c *Controller) handleRename(m protocol.Message) {
	r := m.(protocol.PlayerRename)
	if side, ok := r.Role.Side(); ok {
		c.names[side] = r.Name
	}
}

func (c *Controller) handleClosed(protocol.Message) {
	c.sched.Cancel()
	c.phase = turn.PhaseClosed
	c.log.Info("room closed")
}

// openTurn rolls a fresh board for the local player after the turn passed.
func (c *Controller) openTurn() {
	c.board.RollDice(true)
	c.emitRoll()
	if !c.board.IsPlayable() {
		c.loseTurn()
		return
	}
	c.phase = turn.PhaseSelecting
}

// loseTurn forfeits the local player's turn. Both peers wait the same delay
// before switching.
func (c *Controller) loseTurn() {
	c.board.DiscardStored()
	c.phase = turn.PhaseTurnLost
	c.emit(protocol.GameTurnLost{})
	c.log.Debug("turn lost")
	c.sched.Schedule(c.cfg.Delay, func() {
		c.passTurn()
		c.publish()
	})
}

func (c *Controller) passTurn() {
	c.board.ClearDice()
	c.board.SwitchActivePlayer()
	c.phase = turn.PhaseAwaitingRoll
}

func (c *Controller) emitRoll() {
	states, ok := c.board.DiceStates()
	if !ok {
		return
	}
	c.emit(protocol.NewGameRoll(states, c.board.StoredScore()))
}

func (c *Controller) emit(m protocol.Message) {
	if err := c.emitter.Emit(m); err != nil {
		c.log.Warn("emit failed", zap.String("type", string(m.Type())), zap.Error(err))
	}
}

// Close cancels a pending turn switch and stops updates.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.Cancel()
	c.phase = turn.PhaseClosed
	c.feed.Close()
}

func (c *Controller) Names() [2]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names
}

func (c *Controller) RollDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.localActive() || turn.RollDisabled(c.phase, c.board)
}

func (c *Controller) TakeDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.localActive() || turn.TakeDisabled(c.phase, c.board)
}

func (c *Controller) Snapshot() turn.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() turn.Update {
	return turn.Update{
		Phase:        c.phase,
		Winner:       c.winner,
		RollDisabled: !c.localActive() || turn.RollDisabled(c.phase, c.board),
		TakeDisabled: !c.localActive() || turn.TakeDisabled(c.phase, c.board),
		Board:        c.board.Snapshot(),
	}
}

func (c *Controller) publish() { c.feed.Publish(c.snapshot()) }
