// Package heuristic provides cost estimators for the search engine.
//
// None of these are required to be admissible. Caps and Lua estimators encode
// catalog-specific knowledge (e.g. "a second bench is never useful") and prune
// by returning +Inf; the engine treats every estimator as an opaque oracle.
package heuristic

import (
	"fmt"
	"math"
	"sort"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

// Kind names a heuristic family selectable from configuration.
type Kind string

const (
	KindZero Kind = "zero"
	KindCaps Kind = "caps"
	KindLua  Kind = "lua"
)

// Valid reports whether k is a known heuristic family.
func (k Kind) Valid() bool {
	switch k {
	case KindZero, KindCaps, KindLua:
		return true
	}
	return false
}

// Zero estimates every State at 0, turning the search into uniform-cost search.
var Zero search.Heuristic = search.HeuristicFunc(func(inventory.State) float64 { return 0 })

type bound struct {
	index int
	max   int
}

// Caps prunes States holding more of an item than is ever useful.
type Caps struct {
	bounds []bound
}

// NewCaps resolves per-item upper bounds against vocab.
//
// Postcondition: returns an error wrapping inventory.ErrUnknownItem when caps
// names an untracked item, or an error for a negative bound.
func NewCaps(vocab *inventory.Vocabulary, caps map[string]int) (*Caps, error) {
	names := make([]string, 0, len(caps))
	for n := range caps {
		names = append(names, n)
	}
	sort.Strings(names)

	c := &Caps{bounds: make([]bound, 0, len(names))}
	for _, n := range names {
		i, ok := vocab.Index(n)
		if !ok {
			return nil, fmt.Errorf("heuristic.NewCaps: %w %q", inventory.ErrUnknownItem, n)
		}
		if caps[n] < 0 {
			return nil, fmt.Errorf("heuristic.NewCaps: cap for %q must be >= 0, got %d", n, caps[n])
		}
		c.bounds = append(c.bounds, bound{index: i, max: caps[n]})
	}
	return c, nil
}

// Estimate returns +Inf if any capped item exceeds its bound, otherwise 0.
func (c *Caps) Estimate(s inventory.State) float64 {
	for _, b := range c.bounds {
		if s.At(b.index) > b.max {
			return math.Inf(1)
		}
	}
	return 0
}

// Max combines estimators by taking the largest estimate. The maximum of
// admissible estimators is admissible.
func Max(hs ...search.Heuristic) search.Heuristic {
	return search.HeuristicFunc(func(s inventory.State) float64 {
		best := 0.0
		for _, h := range hs {
			v := h.Estimate(s)
			if math.IsInf(v, 1) {
				return v
			}
			if v > best {
				best = v
			}
		}
		return best
	})
}
