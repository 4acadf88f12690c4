package explorer

import "github.com/jonesrussell/siteatlas/internal/domain"

// Frontier is the ordered set of discovered-but-not-yet-processed
// candidates. BFS pops from the front (FIFO): every page at depth d drains
// before any page at depth d+1. DFS pops from the back (LIFO), with each
// page's children pushed as a reversed batch so the first link discovered
// on a page is explored first, exhausting that branch before backtracking.
//
// Frontier is not safe for concurrent use; the owning Engine serializes
// access.
type Frontier struct {
	strategy domain.Strategy
	items    []domain.Candidate
}

// NewFrontier creates a frontier for the given strategy.
func NewFrontier(strategy domain.Strategy) *Frontier {
	return &Frontier{strategy: strategy}
}

// Push appends a candidate to the frontier.
func (f *Frontier) Push(c domain.Candidate) {
	f.items = append(f.items, c)
}

// PushBatch appends one page's admitted children. Under DFS the batch is
// appended in reverse so its first candidate sits on top of the stack.
func (f *Frontier) PushBatch(cs []domain.Candidate) {
	if f.strategy == domain.StrategyDFS {
		for i := len(cs) - 1; i >= 0; i-- {
			f.items = append(f.items, cs[i])
		}
		return
	}
	f.items = append(f.items, cs...)
}

// Pop removes and returns the next candidate per the strategy.
func (f *Frontier) Pop() (domain.Candidate, bool) {
	if len(f.items) == 0 {
		return domain.Candidate{}, false
	}

	if f.strategy == domain.StrategyDFS {
		last := len(f.items) - 1
		c := f.items[last]
		f.items = f.items[:last]
		return c, true
	}

	c := f.items[0]
	f.items = f.items[1:]
	return c, true
}

// Len returns the number of pending candidates.
func (f *Frontier) Len() int {
	return len(f.items)
}

// Snapshot returns a copy of the pending candidates in frontier order.
// Used for job status reporting and checkpointing.
func (f *Frontier) Snapshot() []domain.Candidate {
	out := make([]domain.Candidate, len(f.items))
	copy(out, f.items)
	return out
}
