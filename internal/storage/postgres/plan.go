package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

// ErrPlanNotFound is returned when a plan lookup yields no results.
var ErrPlanNotFound = errors.New("plan not found")

// PlanStep is one archived step: the action taken (empty for the start) and
// the inventory it led to.
type PlanStep struct {
	Action string         `json:"action,omitempty"`
	State  map[string]int `json:"state"`
}

// PlanRecord is one archived search result.
type PlanRecord struct {
	ID        uuid.UUID
	CatalogID string
	Outcome   string
	Cost      float64
	Steps     []PlanStep
	Expanded  int
	Generated int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// RecordFromReport converts a planner report into an archive record with a
// fresh ID. Zero quantities are dropped from archived states.
func RecordFromReport(rep planner.Report) *PlanRecord {
	steps := make([]PlanStep, len(rep.Steps))
	for i, s := range rep.Steps {
		state := make(map[string]int)
		for k, v := range s.State.Map() {
			if v != 0 {
				state[k] = v
			}
		}
		steps[i] = PlanStep{Action: s.Action, State: state}
	}
	return &PlanRecord{
		ID:        uuid.New(),
		CatalogID: rep.CatalogID,
		Outcome:   rep.Outcome.String(),
		Cost:      rep.Cost,
		Steps:     steps,
		Expanded:  rep.Stats.Expanded,
		Generated: rep.Stats.Generated,
		Elapsed:   rep.Stats.Elapsed,
	}
}

// PlanRepository archives plan results. Search state is never stored.
type PlanRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a PlanRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, catalog_id, outcome, cost, steps, expanded, generated, elapsed_ms, created_at`

// Save inserts rec and returns it with CreatedAt set. A zero ID is replaced by
// a fresh one.
//
// Precondition: rec.CatalogID and rec.Outcome must be non-empty.
func (r *PlanRepository) Save(ctx context.Context, rec *PlanRecord) (*PlanRecord, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	steps := rec.Steps
	if steps == nil {
		steps = []PlanStep{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO plans (id, catalog_id, outcome, cost, steps, expanded, generated, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+planColumns,
		id, rec.CatalogID, rec.Outcome, rec.Cost, steps,
		rec.Expanded, rec.Generated, rec.Elapsed.Milliseconds(),
	)
	out, err := scanPlan(row)
	if err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}
	return out, nil
}

// Record archives rep, satisfying planner.Recorder.
func (r *PlanRepository) Record(ctx context.Context, rep planner.Report) error {
	_, err := r.Save(ctx, RecordFromReport(rep))
	return err
}

// Get returns the plan with the given ID.
//
// Postcondition: Returns ErrPlanNotFound if no such plan exists.
func (r *PlanRepository) Get(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	out, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting plan: %w", err)
	}
	return out, nil
}

// ListByCatalog returns up to limit plans for catalogID, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlanRepository) ListByCatalog(ctx context.Context, catalogID string, limit int) ([]*PlanRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans WHERE catalog_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`,
		catalogID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var out []*PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*PlanRecord, error) {
	var (
		out       PlanRecord
		elapsedMS int64
	)
	err := row.Scan(
		&out.ID, &out.CatalogID, &out.Outcome, &out.Cost, &out.Steps,
		&out.Expanded, &out.Generated, &elapsedMS, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	out.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &out, nil
}
