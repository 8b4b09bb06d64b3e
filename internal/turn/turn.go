package turn

import (
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/farkle-backend/internal/engine"
)

// Controller drives a board for two players sharing one machine.
type Controller struct {
	mu     sync.Mutex
	board  *engine.Board
	cfg    Config
	sched  *Scheduler
	feed   *Feed
	log    *zap.Logger
	phase  Phase
	winner engine.Player
}

func New(board *engine.Board, opts ...Option) *Controller {
	cfg := NewConfig(opts...)
	c := &Controller{
		board: board,
		cfg:   cfg,
		feed:  NewFeed(),
		log:   cfg.Logger.With(zap.String("mode", "hotseat")),
		phase: PhaseAwaitingRoll,
	}
	c.sched = NewScheduler(cfg.Clock, &c.mu)
	return c
}

func (c *Controller) Updates() <-chan Update { return c.feed.C() }

// Start begins a round. The opening roll is repeated until it can score.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseClosed {
		return
	}
	c.begin()
}

func (c *Controller) begin() {
	c.sched.Cancel()
	c.board.FullReset()
	c.board.SetActivePlayer(engine.PlayerOne)
	for {
		c.board.RollDice(true)
		if c.board.IsPlayable() {
			break
		}
	}
	c.phase = PhaseSelecting
	c.publish()
}

func (c *Controller) Select(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Locked() {
		return false
	}
	if _, ok := c.board.ToggleSelect(i); !ok {
		return false
	}
	c.publish()
	return true
}

// Roll stores the pending selection and rolls the free dice.
func (c *Controller) Roll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if RollDisabled(c.phase, c.board) {
		return false
	}

	c.board.StoreSelected()
	c.board.RollDice(false)
	if !c.board.IsPlayable() {
		c.loseTurn()
	} else {
		c.phase = PhaseSelecting
	}
	c.publish()
	return true
}

// Take banks the turn. Reaching the win score ends the round without
// switching players.
func (c *Controller) Take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if TakeDisabled(c.phase, c.board) {
		return false
	}

	player := c.board.ActivePlayer()
	total := c.board.BankTurn()
	if total >= c.cfg.WinScore {
		c.phase = PhaseRoundWon
		c.winner = player
		c.log.Info("round won", zap.Int("player", int(player)), zap.Int("total", total))
		c.publish()
		return true
	}

	c.board.SwitchActivePlayer()
	c.openTurn()
	c.publish()
	return true
}

// openTurn gives the active player a fresh board.
func (c *Controller) openTurn() {
	c.board.RollDice(true)
	if !c.board.IsPlayable() {
		c.loseTurn()
		return
	}
	c.phase = PhaseSelecting
}

func (c *Controller) loseTurn() {
	c.board.DiscardStored()
	c.phase = PhaseTurnLost
	c.log.Debug("turn lost", zap.Int("player", int(c.board.ActivePlayer())))

	c.sched.Schedule(c.cfg.Delay, func() {
		c.board.ClearDice()
		c.board.SwitchActivePlayer()
		c.openTurn()
		c.publish()
	})
}

// Quit tears the controller down. A pending turn switch never fires.
func (c *Controller) Quit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.Cancel()
	c.board.FullReset()
	c.phase = PhaseClosed
	c.feed.Close()
}

func (c *Controller) PlayAgain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseClosed {
		return
	}
	c.begin()
}

func (c *Controller) RollDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RollDisabled(c.phase, c.board)
}

func (c *Controller) TakeDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TakeDisabled(c.phase, c.board)
}

func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Update {
	return Update{
		Phase:        c.phase,
		Winner:       c.winner,
		RollDisabled: RollDisabled(c.phase, c.board),
		TakeDisabled: TakeDisabled(c.phase, c.board),
		Board:        c.board.Snapshot(),
	}
}

func (c *Controller) publish() { c.feed.Publish(c.snapshot()) }
