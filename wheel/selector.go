package wheel

import (
	"fmt"
	"math/rand"
	"time"
)

// RandSource yields uniform values in [0, 1). Injected so selection is
// reproducible in tests and auditable when seeded.
type RandSource interface {
	Float64() float64
}

// Selector performs weighted random selection over an outcome table.
type Selector struct {
	src RandSource
}

// NewSelector creates a selector backed by the given random source.
// A nil source falls back to a time-seeded math/rand source.
func NewSelector(src RandSource) *Selector {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{src: src}
}

// Pick returns the index of a segment chosen with probability proportional
// to its weight. It draws a uniform value in [0, totalWeight) and walks the
// table accumulating weights; if floating point drift leaves the draw
// unconsumed after the walk, the last index is returned.
func (s *Selector) Pick(table *Table) (int, error) {
	total := table.TotalWeight()
	if total <= 0 {
		return 0, fmt.Errorf("cannot select from table with total weight %v", total)
	}

	r := s.src.Float64() * total
	for i, o := range table.Outcomes {
		if r < o.Weight {
			return i, nil
		}
		r -= o.Weight
	}
	return len(table.Outcomes) - 1, nil
}
