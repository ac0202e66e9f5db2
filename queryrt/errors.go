package queryrt

import (
	"fmt"
	"reflect"
)

// CellAlreadySetError indicates a Cell received a second write. This can
// only happen if runtime bookkeeping is broken (e.g. a task descriptor ran
// twice for the same query) since Submit guarantees at most one task per
// query value.
type CellAlreadySetError struct {
	Name Name
}

func (e *CellAlreadySetError) Error() string {
	return fmt.Sprintf("queryrt: cell for query kind %q was already set", e.Name.String())
}

// NameCollisionError indicates two distinct query kinds registered the same
// Name. Rename one of the colliding kinds; the scheduler cannot recover
// from this automatically because it would mean sharing one cache between
// two unrelated Result types.
type NameCollisionError struct {
	Name          Name
	First, Second reflect.Type
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf(
		"queryrt: name %q (hash %#x) already registered by kind %s, cannot also register %s",
		e.Name.String(), e.Name.Hash(), e.First, e.Second,
	)
}

// CycleSuspectedError is panicked by RequestAndTrampoline if the trampoline
// ran to quiescence (no pending tasks, no live tasks) without ever filling
// the requested query's cell, e.g. because that query's Run panicked in an
// earlier Trampoline and no task is left to fill the cell. A query cycle
// (task A awaits task B which transitively awaits task A) does not reach
// this point: the blocked goroutines still count as live tasks, so
// Trampoline never returns.
type CycleSuspectedError struct {
	Name Name
}

func (e *CycleSuspectedError) Error() string {
	return fmt.Sprintf(
		"queryrt: trampoline quiesced without resolving query kind %q; suspect a query cycle",
		e.Name.String(),
	)
}
