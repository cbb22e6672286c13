// Package goal compiles target inventories into predicates over States.
package goal

import (
	"sort"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
)

type minimum struct {
	index  int
	amount int
}

// Goal is a compiled minimum-quantity predicate.
//
// Invariant: a Goal naming any item outside its Vocabulary is never satisfied.
type Goal struct {
	minimums []minimum
	unknown  []string
}

// Compile resolves required minimums against vocab once, ahead of search.
//
// Postcondition: Unknown() lists every required item not in vocab; such a Goal
// can never be satisfied.
func Compile(vocab *inventory.Vocabulary, required map[string]int) Goal {
	names := make([]string, 0, len(required))
	for n := range required {
		names = append(names, n)
	}
	sort.Strings(names)

	var g Goal
	for _, n := range names {
		i, ok := vocab.Index(n)
		if !ok {
			g.unknown = append(g.unknown, n)
			continue
		}
		g.minimums = append(g.minimums, minimum{index: i, amount: required[n]})
	}
	return g
}

// Satisfied reports whether s holds at least the required quantity of every
// goal item.
func (g Goal) Satisfied(s inventory.State) bool {
	if len(g.unknown) > 0 {
		return false
	}
	for _, m := range g.minimums {
		if s.At(m.index) < m.amount {
			return false
		}
	}
	return true
}

// Unknown returns the required item names missing from the Vocabulary.
func (g Goal) Unknown() []string {
	out := make([]string, len(g.unknown))
	copy(out, g.unknown)
	return out
}
