/*

This file contains the event sink implementations: a zerolog sink that logs
every committed event, a bounded in-memory ring sink backing the web API's
recent-events view, and a fan-out combinator.

*/

package ledger

import (
	"encoding/json"
	"sync"

	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/types"
)

var sinkLogger = logger.GetForComponent("event_sink")

// LogSink writes every event to the component logger.
type LogSink struct{}

// Emit logs the event payload as structured JSON.
func (LogSink) Emit(event types.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		sinkLogger.Error().Err(err).Str("kind", event.EventKind()).Msg("Failed to marshal event")
		return
	}
	sinkLogger.Info().
		Str("kind", event.EventKind()).
		RawJSON("event", payload).
		Msg("Pool event")
}

// RecordedEvent pairs an event with its kind for JSON serving.
type RecordedEvent struct {
	Kind  string      `json:"kind"`
	Event types.Event `json:"event"`
}

// RingSink keeps the most recent events in a fixed-size ring buffer.
type RingSink struct {
	mu     sync.Mutex
	events []RecordedEvent
	limit  int
}

// NewRingSink creates a ring sink retaining up to limit events.
func NewRingSink(limit int) *RingSink {
	if limit <= 0 {
		limit = 256
	}
	return &RingSink{limit: limit}
}

// Emit appends the event, evicting the oldest entry once full.
func (s *RingSink) Emit(event types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, RecordedEvent{Kind: event.EventKind(), Event: event})
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
}

// Recent returns up to n of the most recent events, newest last.
func (s *RingSink) Recent(n int) []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]RecordedEvent, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// MultiSink fans out every event to each wrapped sink in order.
type MultiSink []EventSink

// Emit forwards the event to every sink.
func (m MultiSink) Emit(event types.Event) {
	for _, sink := range m {
		sink.Emit(event)
	}
}
