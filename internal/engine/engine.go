package engine

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/farkle-backend/internal/dice"
)

var ErrDieIndex = errors.New("die index out of range")
var ErrDieValue = errors.New("invalid die value")

const DiceCount = 6

type Player int

const (
	PlayerOne Player = 0
	PlayerTwo Player = 1
)

func (p Player) Other() Player { return 1 - p }

func (p Player) Valid() bool { return p == PlayerOne || p == PlayerTwo }

// Dice is either NoDice (before the first roll) or a *DiceSet.
type Dice interface{ isDice() }

type NoDice struct{}

type DiceSet struct {
	Dice [DiceCount]dice.Die
}

func (NoDice) isDice()   {}
func (*DiceSet) isDice() {}

type State struct {
	ActivePlayer Player
	TotalScore   [2]int
	StoredScore  int
	Dice         Dice
	Street       Street
}

func NewEmptyState() State {
	return State{
		ActivePlayer: PlayerOne,
		Dice:         NoDice{},
		Street:       NoStreet{},
	}
}

// DieState is the part of a die that travels between peers.
type DieState struct {
	Value    dice.Value
	Selected bool
	Stored   bool
}

// Board owns one game's dice and scores. It is not safe for concurrent use;
// controllers serialize access.
type Board struct {
	src   dice.Source
	state State
}

func New(src dice.Source) *Board {
	if src == nil {
		src = dice.NewSource()
	}
	return &Board{src: src, state: NewEmptyState()}
}

func (b *Board) set() (*DiceSet, bool) {
	ds, ok := b.state.Dice.(*DiceSet)
	return ds, ok
}

func (b *Board) HasDice() bool {
	_, ok := b.set()
	return ok
}

func (b *Board) ActivePlayer() Player { return b.state.ActivePlayer }

func (b *Board) TotalScore() [2]int { return b.state.TotalScore }

func (b *Board) StoredScore() int { return b.state.StoredScore }

func (b *Board) Street() Street { return b.state.Street }

func (b *Board) slots(keep func(dice.Die) bool) []slot {
	ds, ok := b.set()
	if !ok {
		return nil
	}
	out := make([]slot, 0, DiceCount)
	for i, d := range ds.Dice {
		if keep(d) {
			out = append(out, slot{index: i, value: d.Value})
		}
	}
	return out
}

func (b *Board) selected() []slot { return b.slots(func(d dice.Die) bool { return d.Selected }) }

func (b *Board) free() []slot { return b.slots(dice.Die.Free) }

func (b *Board) FreeCount() int { return len(b.free()) }

func (b *Board) SelectedCount() int { return len(b.selected()) }

// RollDice replaces all six dice when resetAll is set or no dice exist yet,
// otherwise it rolls only the free dice. The street is then recomputed over
// the free dice.
func (b *Board) RollDice(resetAll bool) {
	ds, ok := b.set()
	if resetAll || !ok {
		ds = &DiceSet{}
		for i := range ds.Dice {
			ds.Dice[i] = dice.Die{Value: dice.Roll(b.src)}
		}
		b.state.Dice = ds
	} else {
		for i := range ds.Dice {
			if ds.Dice[i].Free() {
				ds.Dice[i].Roll(b.src)
			}
		}
	}

	b.state.Street = classifyStreet(b.free())
	b.updateDisabled()
}

// SetDice applies a peer's roll verbatim.
func (b *Board) SetDice(states [DiceCount]DieState, storedScore int) error {
	ds := &DiceSet{}
	for i, s := range states {
		if !s.Value.Valid() {
			return fmt.Errorf("die %d: %w", i, ErrDieValue)
		}
		ds.Dice[i] = dice.Die{Value: s.Value, Selected: s.Selected, Stored: s.Stored}
	}
	b.state.Dice = ds
	b.state.StoredScore = max(storedScore, 0)
	b.state.Street = classifyStreet(b.free())
	b.updateDisabled()
	return nil
}

// DiceStates returns the shareable part of the dice, false without dice.
func (b *Board) DiceStates() ([DiceCount]DieState, bool) {
	var out [DiceCount]DieState
	ds, ok := b.set()
	if !ok {
		return out, false
	}
	for i, d := range ds.Dice {
		out[i] = DieState{Value: d.Value, Selected: d.Selected, Stored: d.Stored}
	}
	return out, true
}

// ToggleSelect flips the selection of one die. Stored and disabled dice are
// left alone and false is returned; callers only propagate accepted toggles.
func (b *Board) ToggleSelect(i int) (dice.Die, bool) {
	ds, ok := b.set()
	if !ok || i < 0 || i >= DiceCount {
		return dice.Die{}, false
	}
	d := &ds.Dice[i]
	if d.Stored || d.Disabled {
		return *d, false
	}
	d.Selected = !d.Selected
	b.updateDisabled()
	return *d, true
}

// SetSelect applies a peer's selection without consulting local disablement.
func (b *Board) SetSelect(i int, selected bool) error {
	ds, ok := b.set()
	if !ok || i < 0 || i >= DiceCount {
		return fmt.Errorf("select %d: %w", i, ErrDieIndex)
	}
	d := &ds.Dice[i]
	if d.Stored {
		return nil
	}
	d.Selected = selected
	b.updateDisabled()
	return nil
}

// updateDisabled recomputes every die's disabled flag from the current state.
func (b *Board) updateDisabled() {
	ds, ok := b.set()
	if !ok {
		return
	}
	for i := range ds.Dice {
		ds.Dice[i].Disabled = false
	}

	if streetActive(b.state.Street) {
		p, ok := b.state.Street.(PartialStreet)
		if !ok || !p.HasDuplicate() || dice.IsSolo(p.DuplicateValue) {
			return
		}
		a, c := p.Duplicates[0], p.Duplicates[1]
		ds.Dice[c].Disabled = ds.Dice[a].Selected && !ds.Dice[c].Selected
		ds.Dice[a].Disabled = ds.Dice[c].Selected && !ds.Dice[a].Selected
		return
	}

	chain := unfinishedChain(countValues(b.selected()))
	if chain == 0 {
		return
	}
	for i := range ds.Dice {
		d := &ds.Dice[i]
		d.Disabled = d.Free() && d.Value != chain && !dice.IsSolo(d.Value)
	}
}

// UnfinishedChain returns the non-solo face with one or two selected dice,
// or zero when there is none.
func (b *Board) UnfinishedChain() dice.Value {
	return unfinishedChain(countValues(b.selected()))
}

func (b *Board) completesStreet(sel []slot) bool {
	if !streetActive(b.state.Street) || len(sel) < 5 {
		return false
	}
	return classifyStreet(sel).Kind() == b.state.Street.Kind()
}

// IsStreetUnfinished reports a street on the board whose selection is neither
// all solo dice nor a complete street of the same kind.
func (b *Board) IsStreetUnfinished() bool {
	if !streetActive(b.state.Street) {
		return false
	}
	sel := b.selected()
	if allSolo(sel) {
		return false
	}
	return !b.completesStreet(sel)
}

// storeBlocked reports an incomplete selection. A complete street is never
// blocked even though it holds single non-solo faces.
func (b *Board) storeBlocked() bool {
	sel := b.selected()
	if b.completesStreet(sel) {
		return false
	}
	return unfinishedChain(countValues(sel)) != 0
}

// ActionDisabled reports whether the current selection may not be stored or
// banked.
func (b *Board) ActionDisabled() bool {
	if !b.HasDice() || len(b.selected()) == 0 {
		return true
	}
	if streetActive(b.state.Street) {
		return b.IsStreetUnfinished()
	}
	return b.UnfinishedChain() != 0
}

func (b *Board) SelectedScore() int {
	sel := b.selected()
	if len(sel) == 0 {
		return 0
	}

	if b.completesStreet(sel) {
		score := streetScores[b.state.Street.Kind()]
		if p, ok := b.state.Street.(PartialStreet); ok && p.HasDuplicate() {
			ds, _ := b.set()
			if ds.Dice[p.Duplicates[0]].Selected && ds.Dice[p.Duplicates[1]].Selected {
				if p.DuplicateValue == dice.One {
					score += 100
				} else {
					score += 50
				}
			}
		}
		return score
	}

	return scoreCounts(countValues(sel))
}

// IsPlayable reports whether any points can be taken from the free dice.
func (b *Board) IsPlayable() bool {
	if streetActive(b.state.Street) {
		return true
	}
	free := b.free()
	if len(free) == 0 {
		return false
	}
	count := countValues(free)
	if count[dice.One] > 0 || count[dice.Five] > 0 {
		return true
	}
	for _, v := range dice.Faces {
		if count[v] >= 3 {
			return true
		}
	}
	return false
}

// StoreSelected moves the selection's score into the stored score and turns
// the selected dice into stored ones.
func (b *Board) StoreSelected() {
	ds, ok := b.set()
	if !ok || b.storeBlocked() {
		return
	}
	b.state.StoredScore += b.SelectedScore()
	for i := range ds.Dice {
		d := &ds.Dice[i]
		if d.Selected {
			d.Stored = true
			d.Selected = false
		}
	}
	b.updateDisabled()
}

// BankTurn adds the stored and selected score to the active player's total
// and returns the new total.
func (b *Board) BankTurn() int {
	p := b.state.ActivePlayer
	b.state.TotalScore[p] += b.state.StoredScore + b.SelectedScore()
	b.state.StoredScore = 0
	return b.state.TotalScore[p]
}

func (b *Board) DiscardStored() { b.state.StoredScore = 0 }

// ClearDice removes the dice between turns.
func (b *Board) ClearDice() {
	b.state.Dice = NoDice{}
	b.state.Street = NoStreet{}
	b.state.StoredScore = 0
}

func (b *Board) SwitchActivePlayer() Player {
	b.state.ActivePlayer = b.state.ActivePlayer.Other()
	return b.state.ActivePlayer
}

func (b *Board) SetActivePlayer(p Player) {
	if p.Valid() {
		b.state.ActivePlayer = p
	}
}

// SetTotals applies totals computed by a peer.
func (b *Board) SetTotals(totals [2]int) {
	for i, t := range totals {
		b.state.TotalScore[i] = max(t, 0)
	}
}

func (b *Board) FullReset() {
	b.state = NewEmptyState()
}

// View is a read-only projection of the board for display.
type View struct {
	ActivePlayer   Player
	TotalScore     [2]int
	StoredScore    int
	SelectedScore  int
	Dice           []dice.Die
	Street         StreetKind
	Playable       bool
	ActionDisabled bool
	FreeCount      int
}

func (b *Board) Snapshot() View {
	v := View{
		ActivePlayer:   b.state.ActivePlayer,
		TotalScore:     b.state.TotalScore,
		StoredScore:    b.state.StoredScore,
		SelectedScore:  b.SelectedScore(),
		Street:         b.state.Street.Kind(),
		Playable:       b.IsPlayable(),
		ActionDisabled: b.ActionDisabled(),
		FreeCount:      b.FreeCount(),
	}
	if ds, ok := b.set(); ok {
		v.Dice = append([]dice.Die(nil), ds.Dice[:]...)
	}
	return v
}
