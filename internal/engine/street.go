package engine

import "github.com/DoyleJ11/farkle-backend/internal/dice"

type StreetKind string

const (
	StreetNone    StreetKind = ""
	StreetOneFive StreetKind = "1-5"
	StreetTwoSix  StreetKind = "2-6"
	StreetFull    StreetKind = "1-6"
)

// A run missing the 1 is labelled "1-5" and scores 500; a run missing the 6
// is "2-6" at 750. The swap is deliberate.
var streetScores = map[StreetKind]int{
	StreetOneFive: 500,
	StreetTwoSix:  750,
	StreetFull:    1500,
}

// Street is one of NoStreet, PartialStreet or FullStreet.
type Street interface {
	Kind() StreetKind
	isStreet()
}

type NoStreet struct{}

type FullStreet struct{}

// PartialStreet is a 1-5 or 2-6 run. Over six dice one face shows twice;
// Duplicates holds the board indexes of those two dice. Over five dice there
// is no duplicate and DuplicateValue is zero.
type PartialStreet struct {
	Type           StreetKind
	Duplicates     [2]int
	DuplicateValue dice.Value
}

func (NoStreet) Kind() StreetKind        { return StreetNone }
func (FullStreet) Kind() StreetKind      { return StreetFull }
func (p PartialStreet) Kind() StreetKind { return p.Type }

func (NoStreet) isStreet()      {}
func (FullStreet) isStreet()    {}
func (PartialStreet) isStreet() {}

func (p PartialStreet) HasDuplicate() bool { return p.DuplicateValue != 0 }

// IsDuplicate reports whether the die at index i is one of the pair.
func (p PartialStreet) IsDuplicate(i int) bool {
	return p.HasDuplicate() && (p.Duplicates[0] == i || p.Duplicates[1] == i)
}

// Sibling returns the other die of the duplicate pair.
func (p PartialStreet) Sibling(i int) (int, bool) {
	switch {
	case !p.HasDuplicate():
		return 0, false
	case p.Duplicates[0] == i:
		return p.Duplicates[1], true
	case p.Duplicates[1] == i:
		return p.Duplicates[0], true
	}
	return 0, false
}

func streetActive(s Street) bool {
	return s != nil && s.Kind() != StreetNone
}

// classifyStreet looks for a run among the given dice. The first and the last
// face with a zero count must be the same face, so exactly one face may be
// missing. A missing 1 is labelled "1-5", a missing 6 "2-6".
func classifyStreet(slots []slot) Street {
	if len(slots) < 5 {
		return NoStreet{}
	}

	count := countValues(slots)
	missing, missingLast := dice.Value(0), dice.Value(0)
	for _, v := range dice.Faces {
		if count[v] == 0 {
			if missing == 0 {
				missing = v
			}
			missingLast = v
		}
	}

	switch {
	case missing == 0 && missingLast == 0:
		return FullStreet{}
	case missing != missingLast:
		return NoStreet{}
	case missing == dice.One:
		return partialStreet(StreetOneFive, slots)
	case missing == dice.Six:
		return partialStreet(StreetTwoSix, slots)
	}
	return NoStreet{}
}

func partialStreet(kind StreetKind, slots []slot) PartialStreet {
	p := PartialStreet{Type: kind}
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].value == slots[j].value {
				p.Duplicates = [2]int{slots[i].index, slots[j].index}
				p.DuplicateValue = slots[i].value
				return p
			}
		}
	}
	return p
}
