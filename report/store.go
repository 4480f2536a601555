// Package report implements the append-only event log and its structural
// query matcher (§4.2). There is no indexing by design: queries are ad-hoc
// research tools, not a hot path, and a linear scan over the log is the
// specified (and testable) behaviour.
package report

import (
	"iter"
	"sync"

	"github.com/wardenjs/warden/event"
)

// Sink receives every event appended to a Store, in insertion order. Used
// to mirror the report into a durable backing (see SQLiteSink) or to fan
// out to a live WebSocket stream without the subscriber polling the store.
type Sink interface {
	Append(event.Event)
}

// Store is the in-memory report: an ordered, append-only sequence of
// events plus the three read operations from §4.2. It is owned exclusively
// by the orchestrator (§3.6); callers may read and Clear it but never
// mutate an individual event.
type Store struct {
	mu     sync.RWMutex
	events []event.Event
	sinks  []Sink
}

// New creates an empty report store.
func New() *Store {
	return &Store{}
}

// AddSink registers a Sink that receives every subsequently appended event.
// Sinks installed after events already exist do not receive a backfill -
// this matches §8.3 invariant 10's "no replay" rule for the WebSocket
// stream, generalised to any sink.
func (s *Store) AddSink(sink Sink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// Append adds an event to the log and fans it out to every registered sink.
// Only the orchestrator's bootstrap-event dispatch calls this.
func (s *Store) Append(e event.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(e)
	}
}

// Size returns the number of events currently in the log.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// All returns a copy of every event in insertion order.
func (s *Store) All() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Clear empties the log. Per §3.1, this does not reset the next-value-id
// counter - only a full orchestrator Dispose(clearReport=true) does.
func (s *Store) Clear() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// FindAll returns an iterator over every event matching q, in insertion
// order. The snapshot is taken up front under the read lock so the caller
// can range over it without holding the store locked for the duration.
func (s *Store) FindAll(q Query) iter.Seq[event.Event] {
	s.mu.RLock()
	snapshot := make([]event.Event, len(s.events))
	copy(snapshot, s.events)
	s.mu.RUnlock()

	return func(yield func(event.Event) bool) {
		for _, e := range snapshot {
			if !q.Matches(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Find returns the first event matching q, or (zero, false).
func (s *Store) Find(q Query) (event.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if q.Matches(e) {
			return e, true
		}
	}
	return event.Event{}, false
}

// Has reports whether any event matches q. By construction this always
// agrees with Find per invariant 5 in §8.1: Has(q) iff Find(q) succeeds.
func (s *Store) Has(q Query) bool {
	_, ok := s.Find(q)
	return ok
}
