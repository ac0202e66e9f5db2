package queryrt

import (
	"sync"
	"sync/atomic"
)

// Kind is implemented by every query kind Q with result type R. Query
// values must be comparable: they are used as cache keys, so two equal
// query values are treated as the same request for memoization purposes.
//
// QueryName is called on the zero value of Q to resolve which per-kind
// cache a query belongs to, before any query value exists — this is why it
// takes no arguments and must return the same Name for every value of Q.
type Kind[R any] interface {
	comparable
	QueryName() Name
	Run(s *Scheduler) R
}

// erasedCache is the narrow interface every kindCache[Q, R] satisfies
// regardless of Q and R, recovered from the any stored in Scheduler.caches
// when code (stats rendering, collision diagnostics) needs to enumerate
// every registered kind without knowing its concrete types.
type erasedCache interface {
	cacheName() Name
	cacheStats() (hits, misses int64, size int)
}

// kindCache holds every in-flight or completed Cell for one query kind,
// plus the set of query values that have already been enqueued as a task
// (so a second Submit of an equal query attaches to the existing Cell
// instead of running the query again).
type kindCache[Q Kind[R], R any] struct {
	name Name

	cells    sync.Map // Q -> *Cell[R]
	enqueued sync.Map // Q -> struct{}

	hits   int64
	misses int64
}

func (c *kindCache[Q, R]) cacheName() Name {
	return c.name
}

func (c *kindCache[Q, R]) cacheStats() (hits, misses int64, size int) {
	hits = atomic.LoadInt64(&c.hits)
	misses = atomic.LoadInt64(&c.misses)
	c.cells.Range(func(_, _ any) bool {
		size++
		return true
	})
	return hits, misses, size
}

// cellFor returns the Cell for q, creating and registering a fresh one if
// this is the first time q has been seen, and reports whether q was
// already present (a cache hit).
func (c *kindCache[Q, R]) cellFor(q Q) (cell *Cell[R], hit bool) {
	actual, loaded := c.cells.LoadOrStore(q, newCell[R]())
	if loaded {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return actual.(*Cell[R]), loaded
}

// markEnqueued reports whether q was not already enqueued, atomically
// recording that it now is. Submit only schedules a task on the false ->
// true transition, which is what guarantees a query runs at most once per
// Scheduler regardless of how many times it is requested.
func (c *kindCache[Q, R]) markEnqueued(q Q) (firstTime bool) {
	_, alreadyEnqueued := c.enqueued.LoadOrStore(q, struct{}{})
	return !alreadyEnqueued
}
