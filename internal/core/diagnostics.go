package core

import (
	"context"
	"log/slog"
	"sync"
)

// Tracer receives optional diagnostic events from the reconciler.
// Implementations must not change reconciliation results.
type Tracer interface {
	Trace(event string, attrs ...any)
}

// NopTracer discards all events. It is the default.
type NopTracer struct{}

// Trace implements Tracer.
func (NopTracer) Trace(string, ...any) {}

// SlogTracer writes events as debug records to a slog.Logger.
type SlogTracer struct {
	Logger *slog.Logger
}

// Trace implements Tracer.
func (t SlogTracer) Trace(event string, attrs ...any) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), slog.LevelDebug, event, attrs...)
}

// TraceEvent is one event captured by a RecordingTracer.
type TraceEvent struct {
	Name  string
	Attrs []any
}

// RecordingTracer keeps events in memory. Safe for concurrent use.
type RecordingTracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

// Trace implements Tracer.
func (t *RecordingTracer) Trace(event string, attrs ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, TraceEvent{Name: event, Attrs: append([]any(nil), attrs...)})
}

// Events returns a copy of the recorded events.
func (t *RecordingTracer) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEvent(nil), t.events...)
}

// Names returns the recorded event names in order.
func (t *RecordingTracer) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.events))
	for i, e := range t.events {
		names[i] = e.Name
	}
	return names
}
