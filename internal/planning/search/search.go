// Package search implements the best-first (A*-style) planner over the state
// graph induced by a rule set.
//
// The engine is single-threaded and holds no state between calls: every Search
// builds its own frontier, cost map and back-pointers, so one Engine may serve
// any number of concurrent searches over a shared read-only Graph.
package search

import (
	"container/heap"
	"context"
	"iter"
	"math"
	"time"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/planning/recipe"
)

// Graph enumerates the transitions available from a State.
type Graph interface {
	Successors(s inventory.State) iter.Seq[recipe.Transition]
}

// Goal decides whether a State ends the search.
type Goal interface {
	Satisfied(s inventory.State) bool
}

// Heuristic estimates the remaining cost from a State to any goal State.
// +Inf prunes the State. Admissibility is the caller's responsibility: an
// estimate above the true remaining cost may yield a more expensive plan.
type Heuristic interface {
	Estimate(s inventory.State) float64
}

// HeuristicFunc adapts a plain function to Heuristic.
type HeuristicFunc func(s inventory.State) float64

// Estimate calls f(s).
func (f HeuristicFunc) Estimate(s inventory.State) float64 { return f(s) }

// Observer receives every finished Result.
type Observer interface {
	ObserveSearch(r Result)
}

// Outcome is the terminal state of one search.
type Outcome int

const (
	// Succeeded means a goal State was reached and Path is set.
	Succeeded Outcome = iota
	// Exhausted means the reachable, unpruned state space holds no goal.
	Exhausted
	// TimedOut means the wall-clock budget ran out first.
	TimedOut
	// Canceled means the context was done before a terminal outcome.
	Canceled
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case TimedOut:
		return "timed_out"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Step is one element of a plan: the State reached and the action that
// produced it. The first Step holds the start State and an empty Action.
type Step struct {
	State  inventory.State
	Action string
}

// Stats counts the work done by one search.
type Stats struct {
	Expanded  int // states popped and expanded
	Generated int // transitions produced by the Graph
	Pushed    int // frontier insertions
	Stale     int // popped entries superseded by a cheaper path
	Pruned    int // successors dropped for an infinite estimate
	Elapsed   time.Duration
}

// Result is the outcome of one Search.
//
// Invariant: Path is non-nil exactly when Outcome == Succeeded.
type Result struct {
	Outcome Outcome
	Path    []Step
	Cost    float64
	Stats   Stats
}

// Found reports whether a plan was produced.
func (r Result) Found() bool { return r.Outcome == Succeeded }

// Engine runs searches over one Graph.
type Engine struct {
	graph    Graph
	now      func() time.Time
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the budget clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers o to receive every Result.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New constructs an Engine over graph.
//
// Precondition: graph must not be nil.
func New(graph Graph, opts ...Option) *Engine {
	if graph == nil {
		panic("search.New: graph must not be nil")
	}
	e := &Engine{graph: graph, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// node is the path record of a discovered State.
type node struct {
	state  inventory.State
	g      float64
	parent *node
	action string
}

// Search looks for the cheapest path from start to a State satisfying goal.
//
// The budget and ctx are checked once before every frontier pop, so a limit
// <= 0 reports TimedOut even when start already satisfies goal. A nil h is
// treated as the zero estimate.
//
// Postcondition: on Succeeded, Path[0].State equals start with an empty Action,
// the last State satisfies goal, and Cost is the sum of the step costs.
func (e *Engine) Search(ctx context.Context, start inventory.State, goal Goal, h Heuristic, limit time.Duration) Result {
	began := e.now()
	res := e.run(ctx, began, start, goal, h, limit)
	res.Stats.Elapsed = e.now().Sub(began)
	if e.observer != nil {
		e.observer.ObserveSearch(res)
	}
	return res
}

func (e *Engine) run(ctx context.Context, began time.Time, start inventory.State, goal Goal, h Heuristic, limit time.Duration) Result {
	var (
		stats Stats
		seq   uint64
	)
	nodes := map[string]*node{start.Key(): {state: start}}
	open := &frontier{}
	heap.Push(open, &entry{priority: 0, g: 0, state: start, seq: seq})
	stats.Pushed++

	for open.Len() > 0 {
		if e.now().Sub(began) >= limit {
			return Result{Outcome: TimedOut, Stats: stats}
		}
		if ctx.Err() != nil {
			return Result{Outcome: Canceled, Stats: stats}
		}

		cur := heap.Pop(open).(*entry)
		n := nodes[cur.state.Key()]
		if cur.g > n.g {
			stats.Stale++
			continue
		}

		if goal.Satisfied(n.state) {
			return Result{Outcome: Succeeded, Path: reconstruct(n), Cost: n.g, Stats: stats}
		}

		stats.Expanded++
		for tr := range e.graph.Successors(n.state) {
			stats.Generated++
			g := n.g + tr.Cost
			key := tr.Next.Key()
			known, seen := nodes[key]
			if seen && g >= known.g {
				continue
			}
			if !seen {
				known = &node{state: tr.Next}
				nodes[key] = known
			}
			known.g = g
			known.parent = n
			known.action = tr.Action

			est := estimate(h, tr.Next)
			if math.IsInf(est, 1) || math.IsNaN(est) {
				stats.Pruned++
				continue
			}
			seq++
			heap.Push(open, &entry{priority: g + est, g: g, state: tr.Next, seq: seq})
			stats.Pushed++
		}
	}
	return Result{Outcome: Exhausted, Stats: stats}
}

func estimate(h Heuristic, s inventory.State) float64 {
	if h == nil {
		return 0
	}
	return h.Estimate(s)
}

// reconstruct walks back-pointers from n to the start and reverses them.
func reconstruct(n *node) []Step {
	var path []Step
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, Step{State: cur.state, Action: cur.action})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
