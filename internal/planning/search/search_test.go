package search_test

import (
	"context"
	"iter"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/craftplan/internal/planning/goal"
	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/planning/recipe"
	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

func timeOf(v float64) *float64 { return &v }

// routes builds two ways to obtain a pickaxe: mining ore then smelting
// (2 + 3 = 5) or trading for one outright (8).
func routes(t require.TestingT) (*inventory.Vocabulary, *recipe.RuleSet) {
	v, err := inventory.NewVocabulary([]string{"ore", "pickaxe"})
	require.NoError(t, err)
	rs, err := recipe.CompileAll(v, []recipe.Named{
		{Name: "trade for pickaxe", Spec: recipe.Spec{Produces: map[string]int{"pickaxe": 1}, Time: timeOf(8)}},
		{Name: "mine ore", Spec: recipe.Spec{Produces: map[string]int{"ore": 1}, Time: timeOf(2)}},
		{Name: "smelt pickaxe", Spec: recipe.Spec{
			Consumes: map[string]int{"ore": 1},
			Produces: map[string]int{"pickaxe": 1},
			Time:     timeOf(3),
		}},
	})
	require.NoError(t, err)
	return v, rs
}

func actions(path []search.Step) []string {
	out := make([]string, len(path))
	for i, s := range path {
		out[i] = s.Action
	}
	return out
}

func TestSearch_UniformCostFindsCheapestRoute(t *testing.T) {
	v, rs := routes(t)
	g := goal.Compile(v, map[string]int{"pickaxe": 1})

	res := search.New(rs).Search(context.Background(), v.Zero(), g, nil, time.Minute)

	require.True(t, res.Found())
	assert.Equal(t, search.Succeeded, res.Outcome)
	assert.Equal(t, 5.0, res.Cost)
	assert.Equal(t, []string{"", "mine ore", "smelt pickaxe"}, actions(res.Path))
	assert.True(t, res.Path[0].State.Equal(v.Zero()))
	assert.True(t, g.Satisfied(res.Path[len(res.Path)-1].State))
}

func TestSearch_StartAlreadySatisfiesGoal(t *testing.T) {
	v, rs := routes(t)
	start, _ := v.NewState(map[string]int{"pickaxe": 1})
	g := goal.Compile(v, map[string]int{"pickaxe": 1})

	res := search.New(rs).Search(context.Background(), start, g, nil, time.Minute)

	require.True(t, res.Found())
	require.Len(t, res.Path, 1)
	assert.Equal(t, "", res.Path[0].Action)
	assert.True(t, res.Path[0].State.Equal(start))
	assert.Equal(t, 0.0, res.Cost)
}

func TestSearch_ZeroBudgetTimesOutBeforeGoalCheck(t *testing.T) {
	v, rs := routes(t)
	start, _ := v.NewState(map[string]int{"pickaxe": 1})
	g := goal.Compile(v, map[string]int{"pickaxe": 1})

	for _, limit := range []time.Duration{0, -time.Second} {
		res := search.New(rs).Search(context.Background(), start, g, nil, limit)
		assert.Equal(t, search.TimedOut, res.Outcome, "limit %v", limit)
		assert.Nil(t, res.Path)
	}
}

func TestSearch_ExhaustedWhenGoalUnreachable(t *testing.T) {
	v, err := inventory.NewVocabulary([]string{"wood", "plank", "stone"})
	require.NoError(t, err)
	rs, err := recipe.CompileAll(v, []recipe.Named{
		{Name: "craft plank", Spec: recipe.Spec{
			Consumes: map[string]int{"wood": 1},
			Produces: map[string]int{"plank": 4},
			Time:     timeOf(1),
		}},
	})
	require.NoError(t, err)
	start, _ := v.NewState(map[string]int{"wood": 2})

	res := search.New(rs).Search(context.Background(), start, goal.Compile(v, map[string]int{"stone": 1}), nil, time.Minute)

	assert.Equal(t, search.Exhausted, res.Outcome)
	assert.False(t, res.Found())
	assert.Equal(t, 3, res.Stats.Expanded)
}

func TestSearch_TimesOutOnInfiniteGraph(t *testing.T) {
	v, err := inventory.NewVocabulary([]string{"wood", "diamond"})
	require.NoError(t, err)
	rs, err := recipe.CompileAll(v, []recipe.Named{
		{Name: "punch for wood", Spec: recipe.Spec{Produces: map[string]int{"wood": 1}, Time: timeOf(4)}},
	})
	require.NoError(t, err)

	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	res := search.New(rs, search.WithClock(clock)).
		Search(context.Background(), v.Zero(), goal.Compile(v, map[string]int{"diamond": 1}), nil, 5*time.Second)

	assert.Equal(t, search.TimedOut, res.Outcome)
	assert.Greater(t, res.Stats.Expanded, 0)
}

func TestSearch_CanceledContext(t *testing.T) {
	v, rs := routes(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := search.New(rs).Search(ctx, v.Zero(), goal.Compile(v, map[string]int{"pickaxe": 1}), nil, time.Minute)
	assert.Equal(t, search.Canceled, res.Outcome)
}

func TestSearch_InfiniteEstimatePrunes(t *testing.T) {
	v, rs := routes(t)
	g := goal.Compile(v, map[string]int{"pickaxe": 1})
	noOre := search.HeuristicFunc(func(s inventory.State) float64 {
		if q, _ := s.Quantity("ore"); q > 0 {
			return math.Inf(1)
		}
		return 0
	})

	res := search.New(rs).Search(context.Background(), v.Zero(), g, noOre, time.Minute)

	require.True(t, res.Found())
	assert.Equal(t, 8.0, res.Cost)
	assert.Equal(t, []string{"", "trade for pickaxe"}, actions(res.Path))
	assert.Equal(t, 1, res.Stats.Pruned)
}

type recordingObserver struct{ results []search.Result }

func (o *recordingObserver) ObserveSearch(r search.Result) { o.results = append(o.results, r) }

func TestSearch_ObserverReceivesResult(t *testing.T) {
	v, rs := routes(t)
	obs := &recordingObserver{}
	res := search.New(rs, search.WithObserver(obs)).
		Search(context.Background(), v.Zero(), goal.Compile(v, map[string]int{"pickaxe": 1}), nil, time.Minute)

	require.Len(t, obs.results, 1)
	assert.Equal(t, res.Outcome, obs.results[0].Outcome)
	assert.Equal(t, res.Cost, obs.results[0].Cost)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded", search.Succeeded.String())
	assert.Equal(t, "exhausted", search.Exhausted.String())
	assert.Equal(t, "timed_out", search.TimedOut.String())
	assert.Equal(t, "canceled", search.Canceled.String())
}

// edge is a labelled arc of a hand-built graph whose States hold one
// quantity: the node position.
type edge struct {
	to   int
	cost float64
	name string
}

type adjacency struct {
	vocab *inventory.Vocabulary
	edges map[int][]edge
}

func newAdjacency(t require.TestingT, edges map[int][]edge) *adjacency {
	v, err := inventory.NewVocabulary([]string{"pos"})
	require.NoError(t, err)
	return &adjacency{vocab: v, edges: edges}
}

func (a *adjacency) at(pos int) inventory.State {
	s, _ := a.vocab.NewState(map[string]int{"pos": pos})
	return s
}

func (a *adjacency) Successors(s inventory.State) iter.Seq[recipe.Transition] {
	return func(yield func(recipe.Transition) bool) {
		for _, e := range a.edges[s.At(0)] {
			if !yield(recipe.Transition{Action: e.name, Next: a.at(e.to), Cost: e.cost}) {
				return
			}
		}
	}
}

type reachGoal int

func (r reachGoal) Satisfied(s inventory.State) bool { return s.At(0) == int(r) }

func TestSearch_StaleEntriesAreSkipped(t *testing.T) {
	// 0 -> 1 costs 10 directly or 3 via 2; node 1 leads nowhere.
	a := newAdjacency(t, map[int][]edge{
		0: {{to: 1, cost: 10, name: "long"}, {to: 2, cost: 1, name: "hop"}},
		2: {{to: 1, cost: 2, name: "short"}},
	})

	res := search.New(a).Search(context.Background(), a.at(0), reachGoal(99), nil, time.Minute)

	assert.Equal(t, search.Exhausted, res.Outcome)
	assert.Equal(t, 1, res.Stats.Stale)
	assert.Equal(t, 3, res.Stats.Expanded)
}

func TestSearch_ImprovedPathIsReturned(t *testing.T) {
	a := newAdjacency(t, map[int][]edge{
		0: {{to: 1, cost: 10, name: "long"}, {to: 2, cost: 1, name: "hop"}},
		2: {{to: 1, cost: 2, name: "short"}},
	})

	res := search.New(a).Search(context.Background(), a.at(0), reachGoal(1), nil, time.Minute)

	require.True(t, res.Found())
	assert.Equal(t, 3.0, res.Cost)
	assert.Equal(t, []string{"", "hop", "short"}, actions(res.Path))
}

func TestSearch_TiesBreakByStateOrder(t *testing.T) {
	// Both 1 and 2 reach goal 3 at equal cost; the smaller state wins.
	a := newAdjacency(t, map[int][]edge{
		0: {{to: 2, cost: 1, name: "to two"}, {to: 1, cost: 1, name: "to one"}},
		1: {{to: 3, cost: 1, name: "one to three"}},
		2: {{to: 3, cost: 1, name: "two to three"}},
	})

	res := search.New(a).Search(context.Background(), a.at(0), reachGoal(3), nil, time.Minute)

	require.True(t, res.Found())
	assert.Equal(t, []string{"", "to one", "one to three"}, actions(res.Path))
}

// cheapest computes reference shortest-path costs with Bellman-Ford.
func cheapest(edges map[int][]edge, n, from int) []float64 {
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[from] = 0
	for range n {
		for u, es := range edges {
			for _, e := range es {
				if dist[u]+e.cost < dist[e.to] {
					dist[e.to] = dist[u] + e.cost
				}
			}
		}
	}
	return dist
}

func randomEdges(rt *rapid.T, n int) map[int][]edge {
	edges := make(map[int][]edge)
	count := rapid.IntRange(0, n*3).Draw(rt, "edges")
	for i := range count {
		from := rapid.IntRange(0, n-1).Draw(rt, "from")
		edges[from] = append(edges[from], edge{
			to:   rapid.IntRange(0, n-1).Draw(rt, "to"),
			cost: float64(rapid.IntRange(0, 9).Draw(rt, "cost")),
			name: "e" + string(rune('a'+i%26)),
		})
	}
	return edges
}

func TestProperty_ZeroHeuristicIsOptimal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 7).Draw(rt, "n")
		edges := randomEdges(rt, n)
		target := rapid.IntRange(0, n-1).Draw(rt, "target")
		a := newAdjacency(rt, edges)

		res := search.New(a).Search(context.Background(), a.at(0), reachGoal(target), search.HeuristicFunc(func(inventory.State) float64 { return 0 }), time.Minute)
		want := cheapest(edges, n, 0)[target]

		if math.IsInf(want, 1) {
			if res.Outcome != search.Exhausted {
				rt.Fatalf("expected exhausted, got %v", res.Outcome)
			}
			return
		}
		if !res.Found() {
			rt.Fatalf("expected a path of cost %v, got %v", want, res.Outcome)
		}
		if res.Cost != want {
			rt.Fatalf("cost %v, optimum %v", res.Cost, want)
		}
	})
}

func TestProperty_PathIsConnectedFromStart(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 7).Draw(rt, "n")
		edges := randomEdges(rt, n)
		target := rapid.IntRange(0, n-1).Draw(rt, "target")
		a := newAdjacency(rt, edges)

		res := search.New(a).Search(context.Background(), a.at(0), reachGoal(target), nil, time.Minute)
		if !res.Found() {
			return
		}
		if !res.Path[0].State.Equal(a.at(0)) || res.Path[0].Action != "" {
			rt.Fatalf("path must begin at the start with no action: %+v", res.Path[0])
		}
		total := 0.0
		for i := 1; i < len(res.Path); i++ {
			from, to := res.Path[i-1].State.At(0), res.Path[i].State.At(0)
			matched := false
			for _, e := range edges[from] {
				if e.to == to && e.name == res.Path[i].Action {
					matched = true
					total += e.cost
					break
				}
			}
			if !matched {
				rt.Fatalf("step %d (%d -> %d via %q) is not an edge", i, from, to, res.Path[i].Action)
			}
		}
		if total != res.Cost {
			rt.Fatalf("path costs %v but result reports %v", total, res.Cost)
		}
	})
}

func TestProperty_SearchIsDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 7).Draw(rt, "n")
		edges := randomEdges(rt, n)
		target := rapid.IntRange(0, n-1).Draw(rt, "target")
		a := newAdjacency(rt, edges)
		eng := search.New(a)

		first := eng.Search(context.Background(), a.at(0), reachGoal(target), nil, time.Minute)
		second := eng.Search(context.Background(), a.at(0), reachGoal(target), nil, time.Minute)

		if first.Outcome != second.Outcome || first.Cost != second.Cost || len(first.Path) != len(second.Path) {
			rt.Fatalf("runs differ: %v/%v vs %v/%v", first.Outcome, first.Cost, second.Outcome, second.Cost)
		}
		for i := range first.Path {
			if first.Path[i].Action != second.Path[i].Action || !first.Path[i].State.Equal(second.Path[i].State) {
				rt.Fatalf("paths differ at step %d", i)
			}
		}
	})
}

func TestProperty_PrunedStatesAreNeverExpanded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 7).Draw(rt, "n")
		edges := randomEdges(rt, n)
		banned := rapid.IntRange(1, n-1).Draw(rt, "banned")
		target := rapid.IntRange(0, n-1).Draw(rt, "target")
		a := newAdjacency(rt, edges)
		h := search.HeuristicFunc(func(s inventory.State) float64 {
			if s.At(0) == banned {
				return math.Inf(1)
			}
			return 0
		})

		res := search.New(a).Search(context.Background(), a.at(0), reachGoal(target), h, time.Minute)
		for _, step := range res.Path {
			if step.State.At(0) == banned {
				rt.Fatalf("path passes through pruned node %d", banned)
			}
		}
	})
}
