package dice

import (
	"math/rand/v2"
	"sync"
)

type Value int

const (
	One   Value = 1
	Two   Value = 2
	Three Value = 3
	Four  Value = 4
	Five  Value = 5
	Six   Value = 6
)

// Faces lists every die value in ascending order.
var Faces = [6]Value{One, Two, Three, Four, Five, Six}

func (v Value) Valid() bool { return v >= One && v <= Six }

// IsSolo reports whether a face scores on its own without a triple.
func IsSolo(v Value) bool { return v == One || v == Five }

type Die struct {
	Value    Value
	Selected bool
	Stored   bool
	Disabled bool
}

// Free reports whether the die can still be rolled.
func (d Die) Free() bool { return !d.Selected && !d.Stored }

// Roll gives the die a new value. Stored dice keep theirs.
func (d *Die) Roll(src Source) {
	if d.Stored {
		return
	}
	d.Value = Roll(src)
}

// Source is the randomness provider for rolls. Implementations must be safe
// for concurrent use.
type Source interface {
	// Intn returns a random int in [0, n).
	Intn(n int) int
}

func Roll(src Source) Value {
	return Value(src.Intn(6) + 1)
}

type randSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a Source seeded from the runtime's random generator.
func NewSource() Source {
	return &randSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (s *randSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Sequence replays the given values in order, wrapping around at the end.
// Used by tests to drive deterministic boards.
type Sequence struct {
	mu     sync.Mutex
	values []Value
	next   int
}

func NewSequence(values ...Value) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return (int(v) - 1) % n
}
