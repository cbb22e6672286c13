package search

import (
	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
)

// entry is one frontier record. g is the accumulated cost at push time; an
// entry whose g no longer matches the recorded cost of its state is stale.
type entry struct {
	priority float64
	g        float64
	state    inventory.State
	seq      uint64
}

// frontier implements heap.Interface as a min-heap ordered by priority, then
// by state order, then by insertion sequence.
type frontier []*entry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if c := a.state.Compare(b.state); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*entry)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return e
}
