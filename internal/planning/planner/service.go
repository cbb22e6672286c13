package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/craftplan/internal/planning/heuristic"
	"github.com/cory-johannsen/craftplan/internal/planning/search"
)

// ErrUnknownCatalog is returned when a request names an unregistered catalog.
var ErrUnknownCatalog = errors.New("unknown catalog")

// HeuristicFactory builds the estimator for one Problem.
type HeuristicFactory func(p *Problem) (search.Heuristic, error)

// NewHeuristicFactory returns the factory for kind. Caps declared by a catalog
// are always folded into caps and lua estimators.
//
// Precondition: scripts must be non-nil when kind is heuristic.KindLua.
func NewHeuristicFactory(kind heuristic.Kind, scripts heuristic.ScriptCaller, hook string) (HeuristicFactory, error) {
	switch kind {
	case heuristic.KindZero:
		return func(*Problem) (search.Heuristic, error) { return heuristic.Zero, nil }, nil
	case heuristic.KindCaps:
		return func(p *Problem) (search.Heuristic, error) {
			if p.Caps == nil {
				return heuristic.Zero, nil
			}
			return p.Caps, nil
		}, nil
	case heuristic.KindLua:
		if scripts == nil {
			return nil, errors.New("planner.NewHeuristicFactory: lua heuristic needs a script caller")
		}
		return func(p *Problem) (search.Heuristic, error) {
			h := heuristic.NewLua(scripts, p.ID, hook)
			if p.Caps == nil {
				return h, nil
			}
			return heuristic.Max(p.Caps, h), nil
		}, nil
	default:
		return nil, fmt.Errorf("planner.NewHeuristicFactory: unknown heuristic %q", kind)
	}
}

// Recorder stores finished reports, e.g. in the plan archive.
type Recorder interface {
	Record(ctx context.Context, r Report) error
}

// Request selects a catalog and optionally overrides its start, goal and
// budget for one search.
type Request struct {
	CatalogID string
	Initial   map[string]int
	Goal      map[string]int
	TimeLimit time.Duration
}

// Service plans registered catalogs on demand.
//
// Service is safe for concurrent use: every Plan call builds its own search.
type Service struct {
	registry   *Registry
	heuristics HeuristicFactory
	limit      time.Duration
	workers    int
	logger     *zap.Logger
	searchOpts []search.Option
	recorder   Recorder
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder stores every report through rec.
func WithRecorder(rec Recorder) ServiceOption {
	return func(s *Service) { s.recorder = rec }
}

// WithWorkers bounds the parallelism of PlanAll.
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSearchOptions passes opts to every search engine.
func WithSearchOptions(opts ...search.Option) ServiceOption {
	return func(s *Service) { s.searchOpts = append(s.searchOpts, opts...) }
}

// NewService constructs a Service.
//
// Precondition: registry, heuristics and logger must not be nil; limit > 0.
func NewService(registry *Registry, heuristics HeuristicFactory, limit time.Duration, logger *zap.Logger, opts ...ServiceOption) *Service {
	if registry == nil || heuristics == nil || logger == nil {
		panic("planner.NewService: registry, heuristics and logger must not be nil")
	}
	s := &Service{
		registry:   registry,
		heuristics: heuristics,
		limit:      limit,
		workers:    1,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the catalog index served.
func (s *Service) Registry() *Registry { return s.registry }

// Plan runs one search for req.
//
// Postcondition: returns an error wrapping ErrUnknownCatalog for an
// unregistered catalog, or a configuration error for bad overrides. Search
// failure is reported through Report.Outcome, not as an error.
func (s *Service) Plan(ctx context.Context, req Request) (Report, error) {
	p, ok := s.registry.ProblemFor(req.CatalogID)
	if !ok {
		return Report{}, fmt.Errorf("planner.Service: %w %q", ErrUnknownCatalog, req.CatalogID)
	}
	p, err := p.WithOverrides(req.Initial, req.Goal)
	if err != nil {
		return Report{}, err
	}
	if req.TimeLimit > 0 {
		p.TimeLimit = req.TimeLimit
	}
	h, err := s.heuristics(p)
	if err != nil {
		return Report{}, fmt.Errorf("planner.Service: heuristic for %q: %w", p.ID, err)
	}

	rep := NewPlanner(p, h, s.limit, s.logger, s.searchOpts...).Plan(ctx)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, rep); err != nil {
			s.logger.Warn("recording plan failed",
				zap.String("catalog", rep.CatalogID),
				zap.Error(err),
			)
		}
	}
	return rep, nil
}

// PlanAll plans every catalog in ids (all registered catalogs when ids is
// empty) as independent searches, at most Workers at a time.
//
// Postcondition: reports are in the order of ids; the first request error
// cancels the remaining searches.
func (s *Service) PlanAll(ctx context.Context, ids []string) ([]Report, error) {
	if len(ids) == 0 {
		ids = s.registry.IDs()
	}
	reports := make([]Report, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			rep, err := s.Plan(gctx, Request{CatalogID: id})
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
