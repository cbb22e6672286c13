package recipe

import (
	"fmt"
	"iter"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
)

// Named pairs a rule name with its Spec, preserving catalog order.
type Named struct {
	Name string
	Spec Spec
}

// Transition is one rule application reachable from a State.
type Transition struct {
	Action string
	Next   inventory.State
	Cost   float64
}

// RuleSet is an ordered, immutable collection of compiled Recipes. It is safe
// for concurrent use by any number of searches.
type RuleSet struct {
	recipes []*Recipe
	byName  map[string]*Recipe
}

// CompileAll compiles every spec in order.
//
// Postcondition: returns the first compile error encountered, or an error on a
// duplicate rule name.
func CompileAll(vocab *inventory.Vocabulary, specs []Named) (*RuleSet, error) {
	rs := &RuleSet{
		recipes: make([]*Recipe, 0, len(specs)),
		byName:  make(map[string]*Recipe, len(specs)),
	}
	for _, n := range specs {
		if _, dup := rs.byName[n.Name]; dup {
			return nil, fmt.Errorf("recipe.CompileAll: duplicate rule %q", n.Name)
		}
		r, err := Compile(vocab, n.Name, n.Spec)
		if err != nil {
			return nil, err
		}
		rs.recipes = append(rs.recipes, r)
		rs.byName[n.Name] = r
	}
	return rs, nil
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.recipes) }

// Recipes returns the rules in declaration order.
func (rs *RuleSet) Recipes() []*Recipe {
	out := make([]*Recipe, len(rs.recipes))
	copy(out, rs.recipes)
	return out
}

// Lookup returns the rule with the given name.
func (rs *RuleSet) Lookup(name string) (*Recipe, bool) {
	r, ok := rs.byName[name]
	return r, ok
}

// Successors lazily yields one Transition per applicable rule, in declaration
// order. Apply is only ever called after Applicable has accepted s.
func (rs *RuleSet) Successors(s inventory.State) iter.Seq[Transition] {
	return func(yield func(Transition) bool) {
		for _, r := range rs.recipes {
			if !r.Applicable(s) {
				continue
			}
			if !yield(Transition{Action: r.name, Next: r.Apply(s), Cost: r.cost}) {
				return
			}
		}
	}
}
