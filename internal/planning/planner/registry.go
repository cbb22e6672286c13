package planner

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
)

// Registry indexes compiled Problems by catalog ID.
//
// Invariant: each catalog ID is registered at most once.
// Registry is safe for concurrent use; Replace swaps the whole index at once.
type Registry struct {
	mu       sync.RWMutex
	problems map[string]*Problem
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{problems: make(map[string]*Problem)}
}

// Register compiles c and stores the resulting Problem.
//
// Precondition: c must not be nil.
// Postcondition: returns error on compile failure or catalog ID collision.
func (r *Registry) Register(c *catalog.Catalog) error {
	p, err := Compile(c)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.problems[p.ID]; exists {
		return fmt.Errorf("planner.Registry: catalog %q already registered", p.ID)
	}
	r.problems[p.ID] = p
	return nil
}

// Replace compiles every catalog and, only if all succeed, swaps them in as
// the complete index.
func (r *Registry) Replace(cs []*catalog.Catalog) error {
	next := make(map[string]*Problem, len(cs))
	for _, c := range cs {
		p, err := Compile(c)
		if err != nil {
			return err
		}
		if _, dup := next[p.ID]; dup {
			return fmt.Errorf("planner.Registry: catalog %q declared twice", p.ID)
		}
		next[p.ID] = p
	}
	r.mu.Lock()
	r.problems = next
	r.mu.Unlock()
	return nil
}

// ProblemFor returns the Problem for catalogID, or false if not registered.
func (r *Registry) ProblemFor(catalogID string) (*Problem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.problems[catalogID]
	return p, ok
}

// IDs returns the registered catalog IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.problems))
	for id := range r.problems {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
