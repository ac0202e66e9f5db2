package queryrt

import (
	"context"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/wbrown/janus-query/arena"
)

// Mode selects how a Trampoline drives pending tasks to completion.
type Mode int

const (
	// Serial runs one task at a time. Nested Await calls still make
	// progress because Await releases the scheduler's single slot before
	// blocking, letting a different pending task claim it.
	Serial Mode = iota
	// Parallel runs up to the Scheduler's configured parallelism worth of
	// tasks concurrently, relying on the Go runtime's own work-stealing
	// scheduler to multiplex goroutines across OS threads.
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// AnnotationSink receives trace events as the scheduler runs. Implementing
// this is how the annotations package observes a Scheduler without the
// scheduler needing to import it back.
type AnnotationSink interface {
	Emit(event string, data map[string]any)
}

// debugKind records which concrete query type first claimed a Name, so a
// later registration under the same hash from a different type can be
// reported as a collision instead of silently sharing a cache.
type debugKind struct {
	label string
	typ   reflect.Type
}

type task struct {
	name Name
	run  func()
}

type panicCapture struct {
	value any
}

// Scheduler owns the query caches, the pending-task queue, and the current
// Trampoline's concurrency slot pool. A Scheduler and the Arena backing its
// queries' allocations are created and torn down together: call New to get
// both, and Close to release both.
type Scheduler struct {
	arena *arena.Arena

	// Debug enables the Name-collision check in cacheFor. It costs one
	// extra sync.Map operation per Submit and is on by default; production
	// code that has already exercised every query kind under test can turn
	// it off to shave that cost.
	Debug bool

	caches    sync.Map // hash(uint64) -> any (erased *kindCache[Q, R])
	kindTypes sync.Map // hash(uint64) -> debugKind

	pendingMu sync.Mutex
	pending   []task

	active int64 // atomic count of goroutines currently running a task

	sem atomic.Pointer[semaphore.Weighted] // non-nil only during Trampoline

	parallelism int
	sink        AnnotationSink
	env         any

	panicked atomic.Pointer[panicCapture]
}

// Env returns the value passed to WithEnv, or nil if none was given.
func (s *Scheduler) Env() any {
	return s.env
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithParallelism sets how many tasks a Parallel-mode Trampoline will run
// concurrently. The default is runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithAnnotations attaches a sink that receives a trace event for every
// notable scheduler transition (enqueue, completion, collision, trampoline
// pass boundaries). A nil sink (the default) disables tracing entirely with
// no overhead beyond a nil check.
func WithAnnotations(sink AnnotationSink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithDebug overrides the default Debug setting.
func WithDebug(enabled bool) Option {
	return func(s *Scheduler) {
		s.Debug = enabled
	}
}

// WithEnv attaches an arbitrary environment value query kinds can recover
// via Scheduler.Env, e.g. a handle to external storage their Run methods
// need. The scheduler itself never inspects it.
func WithEnv(env any) Option {
	return func(s *Scheduler) {
		s.env = env
	}
}

// New creates a Scheduler together with the Arena its queries will
// allocate into.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		arena:       arena.New(),
		Debug:       true,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arena returns the Arena backing this Scheduler's queries.
func (s *Scheduler) Arena() *arena.Arena {
	return s.arena
}

// Close releases the Scheduler's Arena, running every Dropper registered
// against it. It does not wait for any in-flight Trampoline; callers must
// ensure no Trampoline is running first.
func (s *Scheduler) Close() {
	s.arena.Close()
}

func (s *Scheduler) emit(event string, data map[string]any) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(event, data)
}

// yieldSlot releases the calling goroutine's execution slot, if a
// Trampoline is currently running. Called by Await immediately before
// blocking so that a single-slot (Serial) trampoline can still make
// progress on a sibling task while this goroutine waits.
func (s *Scheduler) yieldSlot() {
	if sem := s.sem.Load(); sem != nil {
		sem.Release(1)
	}
}

// resumeSlot reacquires an execution slot, blocking until one is free.
// Called by Await immediately after the awaited cell fills, restoring the
// invariant that a running task always holds exactly one slot.
func (s *Scheduler) resumeSlot() {
	if sem := s.sem.Load(); sem != nil {
		_ = sem.Acquire(context.Background(), 1)
	}
}

func (s *Scheduler) pushPending(t task) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, t)
	s.pendingMu.Unlock()
}

func (s *Scheduler) drainPending() []task {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil
	return batch
}

func (s *Scheduler) pendingLen() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// checkCollision registers that name belongs to a query of type typ,
// panicking with a *NameCollisionError if a different type already claimed
// the same Name. It is a no-op beyond the registration itself once a kind
// has been seen before.
func (s *Scheduler) checkCollision(name Name, typ reflect.Type) {
	actual, loaded := s.kindTypes.LoadOrStore(name.hash, debugKind{label: name.str, typ: typ})
	if !loaded {
		return
	}
	seen := actual.(debugKind)
	if seen.typ != typ {
		s.emit("cache/collision", map[string]any{"name": name.String(), "first": seen.typ.String(), "second": typ.String()})
		panic(&NameCollisionError{Name: name, First: seen.typ, Second: typ})
	}
}

// cacheFor resolves (creating if necessary) the per-kind cache for Q. It is
// called once per Submit; the sync.Map lookup on the common path costs one
// atomic load.
func cacheFor[Q Kind[R], R any](s *Scheduler) *kindCache[Q, R] {
	var zero Q
	name := zero.QueryName()

	if s.Debug {
		s.checkCollision(name, reflect.TypeOf(zero))
	}

	if v, ok := s.caches.Load(name.hash); ok {
		return v.(*kindCache[Q, R])
	}
	kc := &kindCache[Q, R]{name: name}
	actual, _ := s.caches.LoadOrStore(name.hash, kc)
	return actual.(*kindCache[Q, R])
}

// Submit registers q for execution if it has not been seen before on this
// Scheduler, and returns an Ongoing handle to its eventual result. Calling
// Submit twice with equal query values returns handles to the same Cell;
// Run executes at most once per distinct query value.
func Submit[Q Kind[R], R any](s *Scheduler, q Q) Ongoing[R] {
	kc := cacheFor[Q, R](s)
	cell, hit := kc.cellFor(q)
	if hit {
		s.emit("cache/hit", map[string]any{"kind": kc.name.String()})
	} else {
		s.emit("cache/miss", map[string]any{"kind": kc.name.String()})
	}

	if kc.markEnqueued(q) {
		fp := Fingerprint(q)
		s.emit("query/enqueued", map[string]any{"kind": kc.name.String(), "fingerprint": fp})
		s.pushPending(task{
			name: kc.name,
			run: func() {
				result := q.Run(s)
				if !cell.trySet(result) {
					panic(&CellAlreadySetError{Name: kc.name})
				}
				s.emit("query/completed", map[string]any{"kind": kc.name.String(), "fingerprint": fp})
			},
		})
	}

	return Ongoing[R]{cell: cell}
}

// RequestAndTrampoline submits q, drives the Scheduler to quiescence under
// mode, and returns q's result. This is the usual entry point for code
// outside the query graph (tests, CLI commands) that wants a single answer
// rather than building a larger graph of Ongoing handles.
func RequestAndTrampoline[Q Kind[R], R any](s *Scheduler, q Q, mode Mode) R {
	o := Submit[Q, R](s, q)
	s.Trampoline(mode)
	v, ok := o.Peek()
	if !ok {
		var zero Q
		panic(&CycleSuspectedError{Name: zero.QueryName()})
	}
	return v
}

// Trampoline drains the pending queue, spawning one goroutine per task and
// bounding how many run concurrently according to mode, until both the
// queue and the set of live tasks are empty. It returns when the scheduler
// is quiescent: every task submitted before (and during) this call has
// finished running. A task blocked in Await still counts as live, so a
// query cycle keeps Trampoline looping forever rather than returning.
//
// There is no waker mechanism telling Trampoline when a slept task becomes
// runnable again; the poll loop below simply rechecks queue and live-count
// state in a tight-then-backing-off loop. That trades a small amount of
// wasted CPU for not having to build a readiness-notification path at all.
func (s *Scheduler) Trampoline(mode Mode) {
	weight := int64(1)
	if mode == Parallel {
		weight = int64(s.parallelism)
		if weight < 1 {
			weight = 1
		}
	}
	sem := semaphore.NewWeighted(weight)
	s.sem.Store(sem)
	defer s.sem.Store(nil)

	s.emit("trampoline/begin", map[string]any{"mode": mode.String()})
	defer s.emit("trampoline/end", map[string]any{"mode": mode.String()})

	var wg sync.WaitGroup
	backoff := time.Microsecond

	for {
		batch := s.drainPending()
		for _, t := range batch {
			atomic.AddInt64(&s.active, 1)
			wg.Add(1)
			go s.runTask(&wg, sem, t)
		}

		if len(batch) > 0 {
			backoff = time.Microsecond
			continue
		}

		if s.pendingLen() == 0 && atomic.LoadInt64(&s.active) == 0 {
			break
		}

		time.Sleep(backoff)
		if backoff < time.Millisecond {
			backoff *= 2
		}
	}

	wg.Wait()

	if p := s.panicked.Load(); p != nil {
		panic(p.value)
	}
}

func (s *Scheduler) runTask(wg *sync.WaitGroup, sem *semaphore.Weighted, t task) {
	defer wg.Done()
	defer atomic.AddInt64(&s.active, -1)
	defer func() {
		if r := recover(); r != nil {
			s.panicked.CompareAndSwap(nil, &panicCapture{value: r})
			s.emit("query/panicked", map[string]any{"kind": t.name.String(), "recovered": r})
		}
	}()

	_ = sem.Acquire(context.Background(), 1)
	defer sem.Release(1)

	t.run()
}

// Stat summarizes one registered query kind's cache, for diagnostics and
// the annotations stats table.
type Stat struct {
	Kind   string
	Hits   int64
	Misses int64
	Size   int
}

// Stats returns a snapshot of every query kind's cache statistics seen so
// far by this Scheduler, in no particular order.
func (s *Scheduler) Stats() []Stat {
	var out []Stat
	s.caches.Range(func(_, v any) bool {
		ec := v.(erasedCache)
		hits, misses, size := ec.cacheStats()
		out = append(out, Stat{Kind: ec.cacheName().String(), Hits: hits, Misses: misses, Size: size})
		return true
	})
	return out
}
