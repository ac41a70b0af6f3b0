package telemetry

import (
	"context"
	"sync"

	"github.com/aretw0/orichalcum/pkg/schema"
)

// MemorySink keeps events and issues in memory for later inspection.
// It is safe for concurrent use.
type MemorySink struct {
	mu      sync.RWMutex
	events  []Event
	issues  []schema.ValidationIssue
	flushes int
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *MemorySink) RecordIssue(_ context.Context, issue schema.ValidationIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, issue)
	return nil
}

// Flush only counts calls; events stay in memory until Reset.
func (s *MemorySink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// Events returns a copy of the recorded events in arrival order.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// EventsFor filters events by task id.
func (s *MemorySink) EventsFor(taskID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// Issues returns a copy of the recorded issues.
func (s *MemorySink) Issues() []schema.ValidationIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.ValidationIssue(nil), s.issues...)
}

func (s *MemorySink) Flushes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

// Reset drops everything recorded so far.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.issues = nil
	s.flushes = 0
}
