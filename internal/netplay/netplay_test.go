package netplay

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/farkle-backend/internal/dice"
	"github.com/DoyleJ11/farkle-backend/internal/engine"
	"github.com/DoyleJ11/farkle-backend/internal/protocol"
	"github.com/DoyleJ11/farkle-backend/internal/turn"
)

type outbox struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (o *outbox) Emit(m protocol.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *outbox) drain() []protocol.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.msgs
	o.msgs = nil
	return out
}

func (o *outbox) types() []protocol.EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]protocol.EventType, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m.Type())
	}
	return out
}

type peer struct {
	c   *Controller
	out *outbox
}

func newPeer(t *testing.T, role protocol.Role, clock clockwork.Clock, opts []turn.Option, rolls ...dice.Value) peer {
	t.Helper()
	out := &outbox{}
	opts = append([]turn.Option{turn.WithClock(clock), turn.WithLogger(zaptest.NewLogger(t))}, opts...)
	c := New(role, engine.New(dice.NewSequence(rolls...)), out, opts...)
	return peer{c: c, out: out}
}

// pump delivers every peer's queued messages to all the others until the
// table is quiet.
func pump(peers ...peer) {
	for {
		quiet := true
		for i, from := range peers {
			msgs := from.out.drain()
			if len(msgs) > 0 {
				quiet = false
			}
			for _, m := range msgs {
				for j, to := range peers {
					if j != i {
						to.c.Handle(m)
					}
				}
			}
		}
		if quiet {
			return
		}
	}
}

// waitPhase waits for a continuation fired by a fake clock.
func waitPhase(t *testing.T, p peer, phase turn.Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return p.c.Snapshot().Phase == phase }, time.Second, time.Millisecond)
}

func start(peers ...peer) {
	for _, p := range peers {
		p.c.Handle(protocol.GameStart{})
	}
	pump(peers...)
}

func TestStart_CreatorRollsFirst(t *testing.T) {
	p := newPeer(t, protocol.RoleCreator, clockwork.NewFakeClock(), nil,
		2, 2, 4, 6, 6, 3,
		1, 2, 3, 3, 4, 6,
	)
	p.c.Handle(protocol.GameStart{})

	msgs := p.out.drain()
	require.Len(t, msgs, 1)
	roll, ok := msgs[0].(protocol.GameRoll)
	require.True(t, ok)
	assert.Equal(t, 1, roll.Dice[0].Value)
	assert.Equal(t, 6, roll.Dice[5].Value)
	assert.Equal(t, 0, roll.StoredScore)

	assert.True(t, p.c.IsLocalPlayerActive())
	assert.Equal(t, turn.PhaseSelecting, p.c.Snapshot().Phase)
}

func TestOpponent_WaitsAndMirrors(t *testing.T) {
	p := newPeer(t, protocol.RoleOpponent, clockwork.NewFakeClock(), nil)
	p.c.Handle(protocol.GameStart{})

	assert.Empty(t, p.out.types(), "opponent never rolls the opening board")
	assert.False(t, p.c.IsLocalPlayerActive())
	assert.False(t, p.c.Select(0))
	assert.True(t, p.c.RollDisabled())
	assert.True(t, p.c.TakeDisabled())

	states := [engine.DiceCount]engine.DieState{
		{Value: dice.One}, {Value: dice.Two}, {Value: dice.Three},
		{Value: dice.Three}, {Value: dice.Four}, {Value: dice.Six},
	}
	p.c.Handle(protocol.NewGameRoll(states, 0))
	p.c.Handle(protocol.GameSelect{DieIndex: 0, IsSelected: true})

	snap := p.c.Snapshot()
	require.Len(t, snap.Board.Dice, engine.DiceCount)
	assert.True(t, snap.Board.Dice[0].Selected)
	assert.Equal(t, 100, snap.Board.SelectedScore)
	assert.Equal(t, engine.PlayerOne, snap.Board.ActivePlayer)

	select {
	case u := <-p.c.Updates():
		assert.Equal(t, turn.PhaseAwaitingRoll, u.Phase)
	default:
		t.Fatalf("expected updates from remote events")
	}
}

func TestRemoteEvents_IgnoredWhileLocallyActive(t *testing.T) {
	p := newPeer(t, protocol.RoleCreator, clockwork.NewFakeClock(), nil, 1, 2, 3, 3, 4, 6)
	p.c.Handle(protocol.GameStart{})

	p.c.Handle(protocol.GameSelect{DieIndex: 1, IsSelected: true})
	p.c.Handle(protocol.GameTurnScored{TotalScore: [2]int{900, 900}})

	snap := p.c.Snapshot()
	assert.False(t, snap.Board.Dice[1].Selected)
	assert.Equal(t, [2]int{0, 0}, snap.Board.TotalScore)
	assert.Equal(t, engine.PlayerOne, snap.Board.ActivePlayer)
}

func TestRelay_TurnScoredKeepsBoardsInStep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newPeer(t, protocol.RoleCreator, clock, nil, 1, 2, 3, 3, 4, 6)
	b := newPeer(t, protocol.RoleOpponent, clock, nil, 5, 2, 2, 3, 4, 6)
	start(a, b)
	assert.Equal(t, a.c.Snapshot().Board, b.c.Snapshot().Board)

	require.True(t, a.c.Select(0))
	pump(a, b)
	assert.Equal(t, a.c.Snapshot().Board, b.c.Snapshot().Board)

	require.True(t, a.c.Take())
	assert.Equal(t, []protocol.EventType{protocol.EvtGameTurnScored}, a.out.types())
	pump(a, b)

	as, bs := a.c.Snapshot(), b.c.Snapshot()
	assert.Equal(t, as.Board, bs.Board)
	assert.Equal(t, [2]int{100, 0}, as.Board.TotalScore)
	assert.Equal(t, engine.PlayerTwo, as.Board.ActivePlayer)
	assert.Equal(t, engine.StreetOneFive, as.Board.Street)
	assert.False(t, a.c.IsLocalPlayerActive())
	assert.True(t, b.c.IsLocalPlayerActive())
	assert.False(t, a.c.Take(), "creator cannot act on the opponent's turn")
}

func TestRelay_TurnLostSwitchesAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newPeer(t, protocol.RoleCreator, clock, nil,
		1, 2, 3, 3, 4, 6,
		2, 2, 3, 4, 6,
	)
	b := newPeer(t, protocol.RoleOpponent, clock, nil, 5, 2, 2, 3, 4, 6)
	start(a, b)

	require.True(t, a.c.Select(0))
	require.True(t, a.c.Roll())
	assert.Equal(t, []protocol.EventType{
		protocol.EvtGameSelect, protocol.EvtGameRoll, protocol.EvtGameTurnLost,
	}, a.out.types())
	pump(a, b)

	as, bs := a.c.Snapshot(), b.c.Snapshot()
	assert.Equal(t, turn.PhaseTurnLost, as.Phase)
	assert.Equal(t, turn.PhaseTurnLost, bs.Phase)
	assert.Equal(t, as.Board, bs.Board)
	assert.Equal(t, 0, bs.Board.StoredScore, "stored score is forfeited on both sides")

	clock.BlockUntil(2)
	clock.Advance(turn.DefaultTurnLostDelay)
	waitPhase(t, b, turn.PhaseSelecting)
	pump(a, b)

	as, bs = a.c.Snapshot(), b.c.Snapshot()
	assert.Equal(t, as.Board, bs.Board)
	assert.Equal(t, engine.PlayerTwo, as.Board.ActivePlayer)
	assert.Equal(t, turn.PhaseSelecting, as.Phase)
	assert.Equal(t, turn.PhaseSelecting, bs.Phase)
	assert.True(t, b.c.IsLocalPlayerActive())
}

func TestRelay_PeerRollFinishesPendingSwitch(t *testing.T) {
	clockA, clockB := clockwork.NewFakeClock(), clockwork.NewFakeClock()
	a := newPeer(t, protocol.RoleCreator, clockA, nil,
		1, 2, 3, 3, 4, 6,
		2, 2, 3, 4, 6,
	)
	b := newPeer(t, protocol.RoleOpponent, clockB, nil, 5, 2, 2, 3, 4, 6)
	start(a, b)

	require.True(t, a.c.Select(0))
	require.True(t, a.c.Roll())
	pump(a, b)

	clockB.Advance(turn.DefaultTurnLostDelay)
	waitPhase(t, b, turn.PhaseSelecting)
	pump(a, b)

	clockA.BlockUntil(0)
	as, bs := a.c.Snapshot(), b.c.Snapshot()
	assert.Equal(t, as.Board, bs.Board)
	assert.Equal(t, engine.PlayerTwo, as.Board.ActivePlayer)
}

func TestRelay_SpectatorKeepsEarlyRoll(t *testing.T) {
	clockA, clockB, clockS := clockwork.NewFakeClock(), clockwork.NewFakeClock(), clockwork.NewFakeClock()
	a := newPeer(t, protocol.RoleCreator, clockA, nil,
		1, 2, 3, 3, 4, 6,
		2, 2, 3, 4, 6,
	)
	b := newPeer(t, protocol.RoleOpponent, clockB, nil, 5, 2, 2, 3, 4, 6)
	s := newPeer(t, protocol.RoleSpectator, clockS, nil)
	start(a, b, s)
	assert.Equal(t, a.c.Snapshot().Board, s.c.Snapshot().Board)

	require.True(t, a.c.Select(0))
	require.True(t, a.c.Roll())
	pump(a, b, s)
	require.Equal(t, turn.PhaseTurnLost, s.c.Snapshot().Phase)

	// The opponent's delay runs out first and its roll reaches the spectator
	// while the spectator is still waiting.
	clockB.Advance(turn.DefaultTurnLostDelay)
	waitPhase(t, b, turn.PhaseSelecting)
	pump(a, b, s)

	bs, ss := b.c.Snapshot(), s.c.Snapshot()
	assert.Equal(t, turn.PhaseSelecting, ss.Phase)
	assert.Equal(t, bs.Board, ss.Board)
	clockS.BlockUntil(0)

	clockS.Advance(turn.DefaultTurnLostDelay)
	assert.Never(t, func() bool {
		return len(s.c.Snapshot().Board.Dice) != engine.DiceCount
	}, 20*time.Millisecond, time.Millisecond)

	ss = s.c.Snapshot()
	assert.Equal(t, bs.Board, ss.Board)
	assert.Equal(t, engine.PlayerTwo, ss.Board.ActivePlayer)
	assert.Equal(t, a.c.Snapshot().Board, ss.Board)
}

func TestRelay_WinEndsRound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	opts := []turn.Option{turn.WithWinScore(100)}
	a := newPeer(t, protocol.RoleCreator, clock, opts, 1, 2, 3, 3, 4, 6)
	b := newPeer(t, protocol.RoleOpponent, clock, opts)
	start(a, b)

	require.True(t, a.c.Select(0))
	require.True(t, a.c.Take())
	pump(a, b)

	for _, p := range []peer{a, b} {
		snap := p.c.Snapshot()
		assert.Equal(t, turn.PhaseRoundWon, snap.Phase)
		assert.Equal(t, engine.PlayerOne, snap.Winner)
		assert.Equal(t, [2]int{100, 0}, snap.Board.TotalScore)
	}
	assert.False(t, a.c.Roll())

	start(a, b)
	assert.Equal(t, [2]int{0, 0}, b.c.Snapshot().Board.TotalScore)
	assert.Equal(t, turn.PhaseSelecting, a.c.Snapshot().Phase)
}

func TestSpectator(t *testing.T) {
	p := newPeer(t, protocol.RoleSpectator, clockwork.NewFakeClock(), nil)
	assert.ErrorIs(t, p.c.Ready(), ErrNotPlaying)

	p.c.Handle(protocol.GameStart{})
	p.c.Handle(protocol.GameTurnScored{TotalScore: [2]int{250, 0}})

	snap := p.c.Snapshot()
	assert.Equal(t, [2]int{250, 0}, snap.Board.TotalScore)
	assert.Equal(t, engine.PlayerTwo, snap.Board.ActivePlayer)
	assert.Empty(t, p.out.types())
}

func TestRenameAndClose(t *testing.T) {
	p := newPeer(t, protocol.RoleOpponent, clockwork.NewFakeClock(), nil)
	require.NoError(t, p.c.Ready())
	assert.Equal(t, []protocol.EventType{protocol.EvtPlayerReady}, p.out.types())

	p.c.Handle(protocol.PlayerRename{Role: protocol.RoleCreator, Name: "Ann"})
	p.c.Handle(protocol.PlayerRename{Role: protocol.RoleSpectator, Name: "ignored"})
	assert.Equal(t, [2]string{"Ann", ""}, p.c.Names())

	p.c.Handle(protocol.RoomClosed{})
	assert.Equal(t, turn.PhaseClosed, p.c.Snapshot().Phase)
	assert.ErrorIs(t, p.c.Ready(), ErrClosed)
	assert.False(t, p.c.Roll())

	p.c.Close()
	p.c.Close()
}
