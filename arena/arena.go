// Package arena provides a bump-style allocation scope with dynamically
// tracked identity: every value placed in an Arena shares that Arena's
// lifetime, and every handle obtained from it remembers which Arena
// produced it. Resolving a handle against a different Arena is a checked
// error rather than undefined behavior.
//
// Unlike a classic bump allocator this implementation boxes each value
// individually with new(T) instead of packing them into a contiguous,
// growable buffer. That trades away the raw-allocator performance story in
// exchange for pointer stability: a pointer handed out by this package is
// never relocated, so there is nothing extra to do to make it safe for
// self-referential data such as a scheduler's pending task list.
package arena

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Index is the process-unique identity of an Arena. It is assigned from a
// monotonic counter at construction time and never reused.
type Index uint64

var arenaCounter uint64

// nextIndex returns the next process-unique arena index.
func nextIndex() Index {
	return Index(atomic.AddUint64(&arenaCounter, 1))
}

// Dropper is implemented by values that need to run cleanup when their
// owning Arena is closed. Drop is called at most once, in the order the
// value was allocated.
type Dropper interface {
	Drop()
}

// Arena is a set of heap allocations sharing one lifetime.
type Arena struct {
	index Index

	mu     sync.Mutex
	drops  []func()
	allocs int
	closed bool
}

// New creates an empty Arena with a fresh, process-unique Index.
func New() *Arena {
	return &Arena{index: nextIndex()}
}

// Index returns this Arena's process-unique identity.
func (a *Arena) Index() Index {
	return a.index
}

// Allocs returns the number of tracked (non-zero-sized) allocations made so
// far. Exposed for diagnostics/stats rendering, not for correctness.
func (a *Arena) Allocs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs
}

// isZeroSized reports whether a value of type T occupies no storage, e.g.
// struct{} or [0]byte. Zero-sized allocations are not tracked: they need no
// drop thunk and contribute nothing to free when the arena closes.
func isZeroSized[T any]() bool {
	var zero T
	return reflect.TypeOf(zero) == nil || reflect.TypeOf(zero).Size() == 0
}

func (a *Arena) track(dropper Dropper) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allocs++
	if dropper != nil {
		a.drops = append(a.drops, dropper.Drop)
	}
}

// Alloc places value in the arena and returns an ordinary pointer valid for
// the arena's lifetime. Use this when no dynamic identity check is needed,
// e.g. values owned exclusively by code that already holds *Arena.
func Alloc[T any](a *Arena, value T) *T {
	p := new(T)
	*p = value
	if !isZeroSized[T]() {
		// Check the boxed *T first: a type implementing Dropper with a
		// pointer receiver (the common case for a destructor that flips an
		// "already closed" flag) only has Drop in its method set once
		// boxed, not on the bare value. Fall back to the bare value for
		// callers where T is itself already a pointer or a value-receiver
		// Dropper, where *T would be one indirection too many.
		d, ok := any(p).(Dropper)
		if !ok {
			d, ok = any(value).(Dropper)
		}
		if ok {
			a.track(d)
		} else {
			a.track(nil)
		}
	}
	return p
}

// Shared is a freely copyable, identity-checked reference into an Arena's
// memory. Dereferencing it (via TryGet) requires presenting the owning
// Arena; presenting a different one is a DifferentArenaError.
type Shared[T any] struct {
	arenaIdx Index
	ptr      *T
}

// Arena returns the Index of the Arena this handle was allocated from.
func (h Shared[T]) Arena() Index {
	return h.arenaIdx
}

// IsZero reports whether h is the zero Shared value (no allocation).
func (h Shared[T]) IsZero() bool {
	return h.ptr == nil
}

// AllocShared places value in the arena and returns a Shared handle to it.
func AllocShared[T any](a *Arena, value T) Shared[T] {
	p := Alloc(a, value)
	return Shared[T]{arenaIdx: a.index, ptr: p}
}

// TryGet dereferences h, verifying that a is the Arena that produced it.
func TryGet[T any](a *Arena, h Shared[T]) (*T, error) {
	if h.ptr == nil {
		return nil, fmt.Errorf("arena: handle is zero-valued")
	}
	if h.arenaIdx != a.index {
		return nil, &DifferentArenaError{Want: a.index, Got: h.arenaIdx}
	}
	return h.ptr, nil
}

// Owning wraps a Shared handle with the expectation of unique ownership: by
// convention (Go has no move semantics to enforce this statically) callers
// should not retain an Owning after calling Share, and should only ever
// mutate through TryGetMut while holding the sole reference.
type Owning[T any] struct {
	Shared[T]
}

// AllocOwning places value in the arena and returns an Owning handle to it.
func AllocOwning[T any](a *Arena, value T) Owning[T] {
	return Owning[T]{AllocShared(a, value)}
}

// Share converts an Owning handle into a freely copyable Shared handle.
// By convention the Owning handle should not be used again afterwards.
func (o Owning[T]) Share() Shared[T] {
	return o.Shared
}

// TryGetMut dereferences h for mutation, verifying that a is the Arena that
// produced it. Takes h by pointer so only one mutable borrow can be live at
// a time through this call site, mirroring the exclusivity an Owning handle
// is supposed to provide.
func TryGetMut[T any](a *Arena, h *Owning[T]) (*T, error) {
	return TryGet(a, h.Shared)
}

// OwningPinned is an Owning handle that additionally promises the referent's
// address never changes for as long as the handle is live. Because this
// package boxes every allocation individually with new(T) and never
// relocates it, every Owning handle already satisfies that promise;
// OwningPinned exists so call sites can document the requirement (typically
// because they hold a self-referential future/task) without changing the
// underlying representation.
type OwningPinned[T any] struct {
	Owning[T]
}

// AllocOwningPinned places value in the arena and returns an OwningPinned
// handle to it.
func AllocOwningPinned[T any](a *Arena, value T) OwningPinned[T] {
	return OwningPinned[T]{AllocOwning(a, value)}
}

// TryGetMutPinned dereferences h for mutation, verifying arena identity.
func TryGetMutPinned[T any](a *Arena, h *OwningPinned[T]) (*T, error) {
	return TryGetMut(a, &h.Owning)
}

// Close runs every registered drop thunk in registration order, then
// discards them. Close is idempotent: calling it more than once is a no-op
// after the first call. It does not and cannot free the underlying Go
// memory directly (that is the garbage collector's job once nothing
// references it any longer); its contract is limited to running Drop
// exactly once per tracked allocation, in order.
func (a *Arena) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	drops := a.drops
	a.drops = nil
	a.mu.Unlock()

	for _, drop := range drops {
		drop()
	}
}

// DifferentArenaError is returned by TryGet/TryGetMut when a handle is
// presented to an Arena other than the one that produced it.
type DifferentArenaError struct {
	Want Index
	Got  Index
}

func (e *DifferentArenaError) Error() string {
	return fmt.Sprintf("arena: handle belongs to arena %d, not %d", e.Got, e.Want)
}
