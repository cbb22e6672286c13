// Package bootstrap assembles a planner.Service from configuration for the
// craftplan binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/config"
	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/heuristic"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
	"github.com/cory-johannsen/craftplan/internal/scripting"
	"github.com/cory-johannsen/craftplan/internal/storage/postgres"
)

// Planning is a ready-to-use planning stack.
type Planning struct {
	Registry *planner.Registry
	Service  *planner.Service
	// Scripts is nil unless the lua heuristic is configured.
	Scripts *scripting.Manager
	// Pool is nil unless the plan archive is enabled.
	Pool *postgres.Pool
}

// LoadCatalogs reads every catalog in dir.
func LoadCatalogs(dir string, logger *zap.Logger) ([]*catalog.Catalog, error) {
	start := time.Now()
	cs, err := catalog.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("catalogs loaded",
		zap.String("dir", dir),
		zap.Int("count", len(cs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cs, nil
}

// NewPlanning registers catalogs, prepares the configured heuristic and,
// when the archive is enabled, connects to PostgreSQL and records every plan.
//
// Postcondition: on success the caller must Close the result.
func NewPlanning(ctx context.Context, cfg config.Config, catalogs []*catalog.Catalog, logger *zap.Logger, opts ...planner.ServiceOption) (*Planning, error) {
	p := &Planning{Registry: planner.NewRegistry()}
	for _, c := range catalogs {
		if err := p.Registry.Register(c); err != nil {
			return nil, err
		}
	}

	kind := heuristic.Kind(cfg.Search.Heuristic)
	var caller heuristic.ScriptCaller
	if kind == heuristic.KindLua {
		p.Scripts = scripting.NewManager(logger, cfg.Search.InstructionLimit)
		if _, err := p.Scripts.LoadTree(cfg.Search.ScriptDir); err != nil {
			p.Close()
			return nil, err
		}
		caller = p.Scripts
	}
	hf, err := planner.NewHeuristicFactory(kind, caller, cfg.Search.HeuristicHook)
	if err != nil {
		p.Close()
		return nil, err
	}

	svcOpts := []planner.ServiceOption{planner.WithWorkers(cfg.Search.Workers)}
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("connecting to plan archive: %w", err)
		}
		p.Pool = pool
		logger.Info("plan archive connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		svcOpts = append(svcOpts, planner.WithRecorder(postgres.NewPlanRepository(pool.DB())))
	}

	p.Service = planner.NewService(p.Registry, hf, cfg.Search.TimeLimit, logger, append(svcOpts, opts...)...)
	return p, nil
}

// Close releases scripts and database connections.
func (p *Planning) Close() {
	if p.Scripts != nil {
		p.Scripts.Close()
	}
	if p.Pool != nil {
		p.Pool.Close()
	}
}
