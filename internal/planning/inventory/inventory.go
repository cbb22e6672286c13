// Package inventory models the resource snapshots searched by the planner.
//
// A Vocabulary fixes the ordered set of item names for one problem. Every State
// built from it carries a quantity for each of those names, defaulting to zero.
// States are values: transitions always build a new State and never modify the
// receiver.
package inventory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownItem is returned when an item name is not part of the Vocabulary.
var ErrUnknownItem = errors.New("unknown item")

// Vocabulary is the ordered set of item names a State tracks.
//
// Invariant: names are unique and index[names[i]] == i.
type Vocabulary struct {
	names []string
	index map[string]int
}

// NewVocabulary builds a Vocabulary preserving the declaration order of names.
//
// Precondition: names must be non-empty strings without duplicates.
// Postcondition: Returns a Vocabulary or an error naming the first bad entry.
func NewVocabulary(names []string) (*Vocabulary, error) {
	v := &Vocabulary{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, n := range names {
		if n == "" {
			return nil, errors.New("inventory.NewVocabulary: item name must not be empty")
		}
		if _, dup := v.index[n]; dup {
			return nil, fmt.Errorf("inventory.NewVocabulary: duplicate item %q", n)
		}
		v.index[n] = len(v.names)
		v.names = append(v.names, n)
	}
	return v, nil
}

// Len returns the number of tracked items.
func (v *Vocabulary) Len() int { return len(v.names) }

// Names returns a copy of the item names in declaration order.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Index returns the position of name, or false if it is not tracked.
func (v *Vocabulary) Index(name string) (int, bool) {
	i, ok := v.index[name]
	return i, ok
}

// Zero returns the State with every item at quantity 0.
func (v *Vocabulary) Zero() State {
	return newState(v, make([]int, len(v.names)))
}

// NewState returns the zero State overridden by quantities.
//
// Postcondition: returns an error wrapping ErrUnknownItem if quantities names an
// item outside the Vocabulary.
func (v *Vocabulary) NewState(quantities map[string]int) (State, error) {
	counts := make([]int, len(v.names))
	for name, q := range quantities {
		i, ok := v.index[name]
		if !ok {
			return State{}, fmt.Errorf("inventory.NewState: %w %q", ErrUnknownItem, name)
		}
		counts[i] = q
	}
	return newState(v, counts), nil
}

// State is an immutable snapshot of every item quantity in a Vocabulary.
//
// Invariant: len(counts) == vocab.Len(); key encodes counts and never changes.
type State struct {
	vocab  *Vocabulary
	counts []int
	key    string
}

func newState(v *Vocabulary, counts []int) State {
	buf := make([]byte, 0, len(counts)*2)
	for _, c := range counts {
		buf = binary.AppendVarint(buf, int64(c))
	}
	return State{vocab: v, counts: counts, key: string(buf)}
}

// Vocabulary returns the item set this State was built from.
func (s State) Vocabulary() *Vocabulary { return s.vocab }

// Key returns a compact encoding of the quantities. Two States from the same
// Vocabulary are Equal exactly when their Keys are equal, so Key is suitable as
// a map key.
func (s State) Key() string { return s.key }

// Quantity returns the held quantity of name; untracked names report 0, false.
func (s State) Quantity(name string) (int, bool) {
	i, ok := s.vocab.index[name]
	if !ok {
		return 0, false
	}
	return s.counts[i], true
}

// At returns the quantity at vocabulary position i.
//
// Precondition: 0 <= i < Vocabulary().Len().
func (s State) At(i int) int { return s.counts[i] }

// Equal reports whether s and o hold identical quantities.
func (s State) Equal(o State) bool { return s.key == o.key && s.vocab == o.vocab }

// Compare orders States lexicographically by quantity in vocabulary order.
// It returns -1, 0 or +1.
//
// Precondition: s and o share a Vocabulary.
func (s State) Compare(o State) int {
	for i, c := range s.counts {
		switch {
		case c < o.counts[i]:
			return -1
		case c > o.counts[i]:
			return 1
		}
	}
	return 0
}

// Delta is a signed quantity change at a vocabulary position.
type Delta struct {
	Index  int
	Amount int
}

// Apply returns a new State with every delta added in order. The receiver is
// left untouched.
func (s State) Apply(deltas ...Delta) State {
	counts := make([]int, len(s.counts))
	copy(counts, s.counts)
	for _, d := range deltas {
		counts[d.Index] += d.Amount
	}
	return newState(s.vocab, counts)
}

// Map returns the quantities keyed by item name.
func (s State) Map() map[string]int {
	out := make(map[string]int, len(s.counts))
	for i, n := range s.vocab.names {
		out[n] = s.counts[i]
	}
	return out
}

// String renders non-zero quantities in vocabulary order, e.g. "{wood: 1, plank: 4}".
func (s State) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for i, c := range s.counts {
		if c == 0 {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %d", s.vocab.names[i], c)
	}
	b.WriteByte('}')
	return b.String()
}
