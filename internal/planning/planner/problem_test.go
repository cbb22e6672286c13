package planner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
	"github.com/cory-johannsen/craftplan/internal/planning/recipe"
)

func TestCompile_ResolvesCatalog(t *testing.T) {
	c := mustCatalog(t, stickCatalog)
	c.TimeLimit = 1.5
	p, err := planner.Compile(c)
	require.NoError(t, err)

	assert.Equal(t, "stick", p.ID)
	assert.Equal(t, 3, p.Vocab.Len())
	assert.Equal(t, 3, p.Rules.Len())
	assert.Nil(t, p.Caps)
	assert.Equal(t, 1500*time.Millisecond, p.TimeLimit)
	assert.Equal(t, map[string]int{"stick": 4}, p.Required)

	n, _ := p.Start.Quantity("wood")
	assert.Equal(t, 1, n)
	assert.False(t, p.Goal.Satisfied(p.Start))
}

func TestCompile_UnknownRecipeItem(t *testing.T) {
	c := mustCatalog(t, benchCatalog)
	c.Recipes[0].Spec.Produces = map[string]int{"diamond": 1}
	_, err := planner.Compile(c)
	assert.ErrorIs(t, err, recipe.ErrUnknownItem)
}

func TestCompile_UnknownCapItem(t *testing.T) {
	c := mustCatalog(t, benchCatalog)
	c.Caps = map[string]int{"diamond": 1}
	_, err := planner.Compile(c)
	assert.ErrorIs(t, err, inventory.ErrUnknownItem)
}

func TestCompile_MissingTime(t *testing.T) {
	c := mustCatalog(t, benchCatalog)
	c.Recipes[1].Spec.Time = nil
	_, err := planner.Compile(c)
	assert.ErrorIs(t, err, recipe.ErrMissingTime)
}

func TestWithOverrides(t *testing.T) {
	p := mustProblem(t, stickCatalog)

	q, err := p.WithOverrides(map[string]int{"plank": 2}, map[string]int{"plank": 6})
	require.NoError(t, err)

	wood, _ := q.Start.Quantity("wood")
	plank, _ := q.Start.Quantity("plank")
	assert.Equal(t, 1, wood)
	assert.Equal(t, 2, plank)
	assert.Equal(t, map[string]int{"plank": 6}, q.Required)

	// original untouched
	plank, _ = p.Start.Quantity("plank")
	assert.Equal(t, 0, plank)
	assert.Equal(t, map[string]int{"stick": 4}, p.Required)
}

func TestWithOverrides_NilKeepsProblem(t *testing.T) {
	p := mustProblem(t, stickCatalog)
	q, err := p.WithOverrides(nil, nil)
	require.NoError(t, err)
	assert.True(t, q.Start.Equal(p.Start))
	assert.Equal(t, p.Required, q.Required)
	assert.NotSame(t, p, q)
}

func TestWithOverrides_UnknownInitialItem(t *testing.T) {
	p := mustProblem(t, stickCatalog)
	_, err := p.WithOverrides(map[string]int{"diamond": 1}, nil)
	assert.ErrorIs(t, err, inventory.ErrUnknownItem)
}
