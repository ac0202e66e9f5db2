// Package annotations provides a low-overhead event-tracing system for
// observing a running queryrt.Scheduler: every enqueue, completion,
// trampoline pass, cache hit/miss and collision can be recorded as an Event
// and handed to a Handler, without the scheduler itself depending on how
// (or whether) those events are displayed.
package annotations

import (
	"sync"
	"time"
)

// Event name constants, grouped by the part of the runtime they describe.
const (
	// Scheduler / query lifecycle
	QueryEnqueued  = "query/enqueued"
	QueryCompleted = "query/completed"
	QueryPanicked  = "query/panicked"

	// Trampoline passes
	TrampolinePassBegin = "trampoline/begin"
	TrampolinePassEnd   = "trampoline/end"

	// Cache bookkeeping
	CacheHit          = "cache/hit"
	CacheMiss         = "cache/miss"
	CollisionDetected = "cache/collision"

	// Arena
	ArenaAllocation = "arena/allocation"
	ArenaClosed     = "arena/closed"
)

// Event represents one notable occurrence during a Scheduler's run.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events and forwards each one to an optional
// Handler. It implements queryrt.AnnotationSink, so a *Collector can be
// passed directly to queryrt.WithAnnotations.
type Collector struct {
	enabled bool
	handler Handler

	mu     sync.Mutex
	events []Event
}

// NewCollector creates a Collector. A nil handler disables event storage
// entirely, so Emit becomes a single boolean check.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 128),
	}
}

// Emit implements queryrt.AnnotationSink.
func (c *Collector) Emit(event string, data map[string]interface{}) {
	if !c.enabled {
		return
	}
	now := time.Now()
	c.Add(Event{Name: event, Start: now, End: now, Data: data})
}

// Add records a fully-formed event.
func (c *Collector) Add(event Event) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event whose Latency is measured from start to now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.enabled {
		return
	}
	end := time.Now()
	c.Add(Event{Name: name, Start: start, End: end, Latency: end.Sub(start), Data: data})
}

// Events returns a copy of every event recorded so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset clears recorded events without disabling the collector.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
