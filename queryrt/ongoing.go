package queryrt

// Ongoing is a handle awaited by callers: a reference to the Cell that will
// eventually hold a query's Result. Polling it (Peek) never blocks;
// Await blocks the calling goroutine until the cell fills.
//
// Dropping an Ongoing is harmless. Queries are fire-on-request: the task
// that will fill the cell was already enqueued the moment Submit first saw
// this query, not when something awaits it. Letting every copy of an
// Ongoing go out of scope does not cancel that work.
type Ongoing[R any] struct {
	cell *Cell[R]
}

// Peek returns the result and true if the query has already completed,
// without suspending.
func (o Ongoing[R]) Peek() (R, bool) {
	return o.cell.Peek()
}

// Await suspends the calling goroutine until the awaited query's result is
// available, then returns it. This is the runtime's only suspension point:
// if o is not already resolved, Await releases the scheduler's execution
// slot for the duration of the wait (see Scheduler.Trampoline) so that a
// sibling task can make progress on a single-threaded trampoline, then
// reacquires the slot once resumed.
func Await[R any](s *Scheduler, o Ongoing[R]) R {
	if v, ok := o.cell.Peek(); ok {
		return v
	}
	s.yieldSlot()
	v := o.cell.wait()
	s.resumeSlot()
	return v
}
