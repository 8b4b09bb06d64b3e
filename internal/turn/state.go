package turn

import "github.com/DoyleJ11/farkle-backend/internal/engine"

type Phase string

const (
	PhaseAwaitingRoll Phase = "awaiting_roll"
	PhaseSelecting    Phase = "selecting"
	PhaseTurnLost     Phase = "turn_lost"
	PhaseRoundWon     Phase = "round_won"
	PhaseClosed       Phase = "closed"
)

// Locked reports phases in which no player action is accepted.
func (p Phase) Locked() bool {
	return p == PhaseTurnLost || p == PhaseRoundWon || p == PhaseClosed
}

// Update is what the display layer receives after every state change.
type Update struct {
	Phase        Phase
	Winner       engine.Player
	RollDisabled bool
	TakeDisabled bool
	Board        engine.View
}

// Feed delivers updates to one display. A slow reader only misses
// intermediate states: when the buffer is full the oldest update is dropped.
// Callers serialize access.
type Feed struct {
	ch     chan Update
	closed bool
}

func NewFeed() *Feed { return &Feed{ch: make(chan Update, updateBuffer)} }

func (f *Feed) C() <-chan Update { return f.ch }

func (f *Feed) Publish(u Update) {
	if f.closed {
		return
	}
	select {
	case f.ch <- u:
		return
	default:
	}
	select {
	case <-f.ch:
	default:
	}
	select {
	case f.ch <- u:
	default:
	}
}

func (f *Feed) Close() {
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}

// RollDisabled reports whether a roll may not be requested on the board.
// Without dice a roll is always allowed; with dice it needs a complete
// selection and at least one free die.
func RollDisabled(phase Phase, b *engine.Board) bool {
	if phase.Locked() {
		return true
	}
	if !b.HasDice() {
		return false
	}
	return b.ActionDisabled() || b.FreeCount() == 0
}

func TakeDisabled(phase Phase, b *engine.Board) bool {
	return phase.Locked() || b.ActionDisabled()
}
