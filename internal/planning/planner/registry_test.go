package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

func TestRegistry_Register_And_ProblemFor(t *testing.T) {
	reg := planner.NewRegistry()
	require.NoError(t, reg.Register(mustCatalog(t, benchCatalog)))

	p, ok := reg.ProblemFor("bench")
	require.True(t, ok)
	assert.Equal(t, "bench", p.ID)
}

func TestRegistry_Register_CollisionError(t *testing.T) {
	reg := planner.NewRegistry()
	require.NoError(t, reg.Register(mustCatalog(t, benchCatalog)))
	assert.Error(t, reg.Register(mustCatalog(t, benchCatalog)))
}

func TestRegistry_Register_CompileError(t *testing.T) {
	reg := planner.NewRegistry()
	c := mustCatalog(t, benchCatalog)
	c.Recipes[0].Spec.Produces = nil
	assert.Error(t, reg.Register(c))
	assert.Empty(t, reg.IDs())
}

func TestRegistry_ProblemFor_NotFound(t *testing.T) {
	_, ok := planner.NewRegistry().ProblemFor("missing")
	assert.False(t, ok)
}

func TestRegistry_IDsSorted(t *testing.T) {
	reg := planner.NewRegistry()
	require.NoError(t, reg.Register(mustCatalog(t, stickCatalog)))
	require.NoError(t, reg.Register(mustCatalog(t, benchCatalog)))
	assert.Equal(t, []string{"bench", "stick"}, reg.IDs())
}

func TestRegistry_Replace(t *testing.T) {
	reg := planner.NewRegistry()
	require.NoError(t, reg.Register(mustCatalog(t, benchCatalog)))

	require.NoError(t, reg.Replace([]*catalog.Catalog{mustCatalog(t, stickCatalog)}))
	assert.Equal(t, []string{"stick"}, reg.IDs())
}

func TestRegistry_Replace_FailureKeepsIndex(t *testing.T) {
	reg := planner.NewRegistry()
	require.NoError(t, reg.Register(mustCatalog(t, benchCatalog)))

	bad := mustCatalog(t, stickCatalog)
	bad.Recipes[0].Spec.Time = nil
	assert.Error(t, reg.Replace([]*catalog.Catalog{mustCatalog(t, stickCatalog), bad}))
	assert.Equal(t, []string{"bench"}, reg.IDs())

	dup := []*catalog.Catalog{mustCatalog(t, stickCatalog), mustCatalog(t, stickCatalog)}
	assert.Error(t, reg.Replace(dup))
	assert.Equal(t, []string{"bench"}, reg.IDs())
}
