package planner

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

// Report is the presentable result of planning one Problem.
//
// Invariant: Steps is empty unless Outcome == search.Succeeded.
type Report struct {
	CatalogID string
	Outcome   search.Outcome
	Steps     []search.Step
	Cost      float64
	Stats     search.Stats
	Limit     time.Duration
}

// Found reports whether a plan was produced.
func (r Report) Found() bool { return r.Outcome == search.Succeeded }

// Len returns the number of actions in the plan, excluding the start.
func (r Report) Len() int {
	if len(r.Steps) == 0 {
		return 0
	}
	return len(r.Steps) - 1
}

// Actions returns the action names in plan order, excluding the start.
func (r Report) Actions() []string {
	out := make([]string, 0, r.Len())
	for _, s := range r.Steps[min(1, len(r.Steps)):] {
		out = append(out, s.Action)
	}
	return out
}

// Write prints the plan one state and action per step, followed by the totals.
// A failed search prints the outcome instead.
func (r Report) Write(w io.Writer) error {
	if !r.Found() {
		_, err := fmt.Fprintf(w, "no plan for %s: %s after %s (%d states expanded)\n",
			r.CatalogID, r.Outcome, r.Stats.Elapsed.Round(time.Millisecond), r.Stats.Expanded)
		return err
	}
	for _, s := range r.Steps {
		if _, err := fmt.Fprintf(w, "\t%s\n", s.State); err != nil {
			return err
		}
		if s.Action != "" {
			if _, err := fmt.Fprintln(w, s.Action); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "cost = %g, len = %d, expanded = %d, elapsed = %s\n",
		r.Cost, r.Len(), r.Stats.Expanded, r.Stats.Elapsed.Round(time.Millisecond))
	return err
}

// Planner runs searches for one Problem with a fixed estimator.
//
// Invariant: problem, engine, h and logger are non-nil.
type Planner struct {
	problem *Problem
	engine  *search.Engine
	h       search.Heuristic
	limit   time.Duration
	logger  *zap.Logger
}

// NewPlanner constructs a Planner. The Problem's own TimeLimit, when set,
// overrides limit.
//
// Precondition: problem, h and logger must not be nil.
func NewPlanner(problem *Problem, h search.Heuristic, limit time.Duration, logger *zap.Logger, opts ...search.Option) *Planner {
	if problem == nil {
		panic("planner.NewPlanner: problem must not be nil")
	}
	if h == nil {
		panic("planner.NewPlanner: heuristic must not be nil")
	}
	if logger == nil {
		panic("planner.NewPlanner: logger must not be nil")
	}
	if problem.TimeLimit > 0 {
		limit = problem.TimeLimit
	}
	return &Planner{
		problem: problem,
		engine:  search.New(problem.Rules, opts...),
		h:       h,
		limit:   limit,
		logger:  logger,
	}
}

// Plan searches from the Problem's start to its goal.
//
// Postcondition: never returns an error for exhaustion or timeout; those are
// reported through Report.Outcome.
func (p *Planner) Plan(ctx context.Context) Report {
	if unknown := p.problem.Goal.Unknown(); len(unknown) > 0 {
		p.logger.Warn("goal names items outside the catalog; it can never be met",
			zap.String("catalog", p.problem.ID),
			zap.Strings("items", unknown),
		)
	}

	res := p.engine.Search(ctx, p.problem.Start, p.problem.Goal, p.h, p.limit)
	rep := Report{
		CatalogID: p.problem.ID,
		Outcome:   res.Outcome,
		Steps:     res.Path,
		Cost:      res.Cost,
		Stats:     res.Stats,
		Limit:     p.limit,
	}

	fields := []zap.Field{
		zap.String("catalog", p.problem.ID),
		zap.String("outcome", res.Outcome.String()),
		zap.Int("expanded", res.Stats.Expanded),
		zap.Int("generated", res.Stats.Generated),
		zap.Int("pruned", res.Stats.Pruned),
		zap.Duration("elapsed", res.Stats.Elapsed),
	}
	if rep.Found() {
		p.logger.Info("plan found", append(fields, zap.Float64("cost", rep.Cost), zap.Int("len", rep.Len()))...)
	} else {
		p.logger.Info("no plan found", append(fields, zap.Duration("limit", p.limit))...)
	}
	return rep
}
