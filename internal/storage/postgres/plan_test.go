package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/heuristic"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
	"github.com/cory-johannsen/craftplan/internal/planning/search"
	"github.com/cory-johannsen/craftplan/internal/storage/postgres"
	"github.com/cory-johannsen/craftplan/internal/testutil"
)

const stickCatalog = `
ID: stick
Items: [plank, stick, wood]
Initial: {wood: 1}
Goal: {stick: 4}
Recipes:
  craft plank:
    Consumes: {wood: 1}
    Produces: {plank: 4}
    Time: 1
  craft stick:
    Consumes: {plank: 2}
    Produces: {stick: 4}
    Time: 1
`

func stickReport(t *testing.T) planner.Report {
	t.Helper()
	c, err := catalog.Parse([]byte(stickCatalog), "stick")
	require.NoError(t, err)
	p, err := planner.Compile(c)
	require.NoError(t, err)
	rep := planner.NewPlanner(p, heuristic.Zero, time.Second, zaptest.NewLogger(t)).Plan(context.Background())
	require.True(t, rep.Found())
	return rep
}

func TestRecordFromReport(t *testing.T) {
	rep := stickReport(t)
	rec := postgres.RecordFromReport(rep)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "stick", rec.CatalogID)
	assert.Equal(t, "succeeded", rec.Outcome)
	assert.Equal(t, 2.0, rec.Cost)
	require.Len(t, rec.Steps, 3)
	assert.Equal(t, "", rec.Steps[0].Action)
	assert.Equal(t, map[string]int{"wood": 1}, rec.Steps[0].State)
	assert.Equal(t, "craft stick", rec.Steps[2].Action)
	assert.Equal(t, map[string]int{"plank": 2, "stick": 4}, rec.Steps[2].State)
}

func TestRecordFromReport_Failure(t *testing.T) {
	rec := postgres.RecordFromReport(planner.Report{CatalogID: "x", Outcome: search.TimedOut})
	assert.Equal(t, "timed_out", rec.Outcome)
	assert.Empty(t, rec.Steps)
}

func TestPlanRepository_SaveAndGet(t *testing.T) {
	repo := postgres.NewPlanRepository(testutil.NewPool(t))
	ctx := context.Background()

	want := postgres.RecordFromReport(stickReport(t))
	saved, err := repo.Save(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want.ID, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := repo.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.CatalogID, got.CatalogID)
	assert.Equal(t, want.Outcome, got.Outcome)
	assert.Equal(t, want.Cost, got.Cost)
	assert.Equal(t, want.Steps, got.Steps)
	assert.Equal(t, want.Expanded, got.Expanded)
}

func TestPlanRepository_GetNotFound(t *testing.T) {
	repo := postgres.NewPlanRepository(testutil.NewPool(t))
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, postgres.ErrPlanNotFound)
}

func TestPlanRepository_RecordAndList(t *testing.T) {
	repo := postgres.NewPlanRepository(testutil.NewPool(t))
	ctx := context.Background()

	rep := stickReport(t)
	for range 3 {
		require.NoError(t, repo.Record(ctx, rep))
	}
	_, err := repo.Save(ctx, &postgres.PlanRecord{CatalogID: "other", Outcome: "exhausted"})
	require.NoError(t, err)

	got, err := repo.ListByCatalog(ctx, "stick", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "stick", r.CatalogID)
	}

	other, err := repo.ListByCatalog(ctx, "other", 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Empty(t, other[0].Steps)
}
