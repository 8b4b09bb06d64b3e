package engine

import "github.com/DoyleJ11/farkle-backend/internal/dice"

// slot is a die value paired with its board index.
type slot struct {
	index int
	value dice.Value
}

type faceCount [7]int

func countValues(slots []slot) faceCount {
	var c faceCount
	for _, s := range slots {
		if s.value.Valid() {
			c[s.value]++
		}
	}
	return c
}

func allSolo(slots []slot) bool {
	for _, s := range slots {
		if !dice.IsSolo(s.value) {
			return false
		}
	}
	return true
}

// scoreCounts scores a selection that is not a street.
func scoreCounts(count faceCount) int {
	total := 0
	for _, v := range dice.Faces {
		n := count[v]

		need := 3
		if dice.IsSolo(v) {
			need = 1
		}
		if n < need {
			continue
		}

		base := int(v) * 10
		if v == dice.One {
			base = 100
		}
		multiplier := n
		if n >= 3 {
			multiplier = (n - 2) * 10
		}
		total += base * multiplier
	}
	return total
}

// chainFaces are checked in this order when looking for an unfinished chain.
var chainFaces = [4]dice.Value{dice.Two, dice.Three, dice.Four, dice.Six}

func unfinishedChain(count faceCount) dice.Value {
	for _, v := range chainFaces {
		if n := count[v]; n > 0 && n < 3 {
			return v
		}
	}
	return 0
}

// Score returns the points a set of values is worth outside of a street.
func Score(values ...dice.Value) int {
	slots := make([]slot, len(values))
	for i, v := range values {
		slots[i] = slot{index: i, value: v}
	}
	return scoreCounts(countValues(slots))
}

// Classify reports the street formed by a set of values, if any.
func Classify(values ...dice.Value) Street {
	slots := make([]slot, len(values))
	for i, v := range values {
		slots[i] = slot{index: i, value: v}
	}
	return classifyStreet(slots)
}
