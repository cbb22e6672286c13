// Package planner turns catalogs into runnable searches and reports.
//
// A Problem is a catalog compiled once: vocabulary, start state, goal, rule
// set and optional caps. Problems are immutable and shared by every search that
// uses them, including concurrent ones.
package planner

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/goal"
	"github.com/cory-johannsen/craftplan/internal/planning/heuristic"
	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/planning/recipe"
)

// Problem is a compiled catalog.
//
// Invariant: Start, Goal, Rules and Caps all share Vocab.
type Problem struct {
	ID        string
	Vocab     *inventory.Vocabulary
	Start     inventory.State
	Goal      goal.Goal
	Required  map[string]int
	Rules     *recipe.RuleSet
	Caps      *heuristic.Caps // nil when the catalog declares none
	TimeLimit time.Duration   // 0 = use the service default
}

// Compile resolves every name in c and compiles its rules.
//
// Precondition: c has passed Validate.
// Postcondition: returns a Problem, or the first configuration error found.
func Compile(c *catalog.Catalog) (*Problem, error) {
	vocab, err := inventory.NewVocabulary(c.Items)
	if err != nil {
		return nil, fmt.Errorf("planner.Compile %q: %w", c.ID, err)
	}
	start, err := vocab.NewState(c.Initial)
	if err != nil {
		return nil, fmt.Errorf("planner.Compile %q: %w", c.ID, err)
	}
	rules, err := recipe.CompileAll(vocab, c.Recipes)
	if err != nil {
		return nil, fmt.Errorf("planner.Compile %q: %w", c.ID, err)
	}
	p := &Problem{
		ID:        c.ID,
		Vocab:     vocab,
		Start:     start,
		Goal:      goal.Compile(vocab, c.Goal),
		Required:  copyCounts(c.Goal),
		Rules:     rules,
		TimeLimit: time.Duration(c.TimeLimit * float64(time.Second)),
	}
	if len(c.Caps) > 0 {
		if p.Caps, err = heuristic.NewCaps(vocab, c.Caps); err != nil {
			return nil, fmt.Errorf("planner.Compile %q: %w", c.ID, err)
		}
	}
	return p, nil
}

// WithOverrides returns a copy of p whose start quantities and goal minimums
// are replaced item by item. Nil maps leave the corresponding part untouched.
func (p *Problem) WithOverrides(initial, required map[string]int) (*Problem, error) {
	out := *p
	if len(initial) > 0 {
		q := p.Start.Map()
		for k, v := range initial {
			q[k] = v
		}
		start, err := p.Vocab.NewState(q)
		if err != nil {
			return nil, fmt.Errorf("planner: initial override for %q: %w", p.ID, err)
		}
		out.Start = start
	}
	if len(required) > 0 {
		out.Required = copyCounts(required)
		out.Goal = goal.Compile(p.Vocab, required)
	}
	return &out, nil
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
