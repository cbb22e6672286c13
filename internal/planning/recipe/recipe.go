// Package recipe compiles declarative crafting rules into transitions over
// inventory States.
//
// A Spec is the raw rule as it appears in a catalog. Compile resolves item names
// against a Vocabulary once, ahead of search, so that Applicable and Apply run
// without map lookups on the hot path.
package recipe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
)

var (
	// ErrMissingProduces is returned for a Spec without a Produces clause.
	ErrMissingProduces = errors.New("missing Produces")
	// ErrMissingTime is returned for a Spec without a Time clause.
	ErrMissingTime = errors.New("missing Time")
	// ErrUnknownItem is returned when a clause names an item outside the Vocabulary.
	ErrUnknownItem = errors.New("unknown item")
	// ErrNegativeAmount is returned for negative amounts or a negative Time.
	ErrNegativeAmount = errors.New("negative amount")
)

// Spec is the declarative description of one rule.
//
// Requires values are presence flags; the flag itself is not consulted, a listed
// item only has to be held at quantity one or more.
type Spec struct {
	Consumes map[string]int  `yaml:"Consumes"`
	Requires map[string]bool `yaml:"Requires"`
	Produces map[string]int  `yaml:"Produces"`
	Time     *float64        `yaml:"Time"`
}

// Recipe is a compiled rule.
//
// Invariant: every index refers to a position in the Vocabulary the Recipe was
// compiled against; cost >= 0 and never changes.
type Recipe struct {
	name     string
	consumes []inventory.Delta // Amount > 0 is the quantity taken
	requires []int
	produces []inventory.Delta
	effect   []inventory.Delta // produces followed by negated consumes
	cost     float64
}

// Compile validates spec and resolves it against vocab.
//
// Postcondition: returns a Recipe, or an error wrapping ErrMissingProduces,
// ErrMissingTime, ErrUnknownItem or ErrNegativeAmount.
func Compile(vocab *inventory.Vocabulary, name string, spec Spec) (*Recipe, error) {
	if name == "" {
		return nil, errors.New("recipe.Compile: name must not be empty")
	}
	if spec.Produces == nil {
		return nil, fmt.Errorf("recipe.Compile %q: %w", name, ErrMissingProduces)
	}
	if spec.Time == nil {
		return nil, fmt.Errorf("recipe.Compile %q: %w", name, ErrMissingTime)
	}
	if *spec.Time < 0 {
		return nil, fmt.Errorf("recipe.Compile %q: %w: Time %v", name, ErrNegativeAmount, *spec.Time)
	}

	r := &Recipe{name: name, cost: *spec.Time}
	var err error
	if r.produces, err = resolveAmounts(vocab, name, "Produces", spec.Produces); err != nil {
		return nil, err
	}
	if r.consumes, err = resolveAmounts(vocab, name, "Consumes", spec.Consumes); err != nil {
		return nil, err
	}
	for _, item := range sortedKeys(spec.Requires) {
		i, ok := vocab.Index(item)
		if !ok {
			return nil, fmt.Errorf("recipe.Compile %q: Requires: %w %q", name, ErrUnknownItem, item)
		}
		r.requires = append(r.requires, i)
	}

	r.effect = make([]inventory.Delta, 0, len(r.produces)+len(r.consumes))
	r.effect = append(r.effect, r.produces...)
	for _, c := range r.consumes {
		r.effect = append(r.effect, inventory.Delta{Index: c.Index, Amount: -c.Amount})
	}
	return r, nil
}

func resolveAmounts(vocab *inventory.Vocabulary, name, clause string, amounts map[string]int) ([]inventory.Delta, error) {
	out := make([]inventory.Delta, 0, len(amounts))
	for _, item := range sortedKeys(amounts) {
		i, ok := vocab.Index(item)
		if !ok {
			return nil, fmt.Errorf("recipe.Compile %q: %s: %w %q", name, clause, ErrUnknownItem, item)
		}
		if amounts[item] < 0 {
			return nil, fmt.Errorf("recipe.Compile %q: %s %q: %w", name, clause, item, ErrNegativeAmount)
		}
		out = append(out, inventory.Delta{Index: i, Amount: amounts[item]})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Name returns the rule name, which doubles as the plan action label.
func (r *Recipe) Name() string { return r.name }

// Cost returns the rule's Time.
func (r *Recipe) Cost() float64 { return r.cost }

// Applicable reports whether s holds every consumed amount and at least one of
// every required item. A rule with neither clause is always applicable.
func (r *Recipe) Applicable(s inventory.State) bool {
	for _, c := range r.consumes {
		if s.At(c.Index) < c.Amount {
			return false
		}
	}
	for _, i := range r.requires {
		if s.At(i) < 1 {
			return false
		}
	}
	return true
}

// Apply returns the State after producing then consuming.
//
// Precondition: Applicable(s) is true.
func (r *Recipe) Apply(s inventory.State) inventory.State {
	return s.Apply(r.effect...)
}
