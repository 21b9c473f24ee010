package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks -source=sink.go Sink

// Sink receives audit events. Implementations must be safe for concurrent use
// and must not fail the caller; delivery problems are logged.
type Sink interface {
	Record(ctx context.Context, event Event)
}

type discardSink struct{}

func (discardSink) Record(context.Context, Event) {}

// Discard is a Sink that drops every event
var Discard Sink = discardSink{}

// slogSink writes events through a slog.Logger
type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a Sink that logs each event. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogSink{logger: logger}
}

func (s *slogSink) Record(ctx context.Context, event Event) {
	s.logger.Log(ctx, levelFor(event.Severity), event.Message,
		"audit_id", event.ID,
		"audit_code", string(event.Code),
		"connector", event.Connector)
}

func levelFor(severity Severity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError, SeverityException:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fanOutSink struct {
	sinks []Sink
}

// FanOut returns a Sink delivering every event to each of sinks in order
func FanOut(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &fanOutSink{sinks: filtered}
}

func (f *fanOutSink) Record(ctx context.Context, event Event) {
	for _, s := range f.sinks {
		s.Record(ctx, event)
	}
}

// MemorySink keeps events in memory. It is used by tests and by the status API.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends event
func (m *MemorySink) Record(_ context.Context, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Codes returns the recorded codes in order
func (m *MemorySink) Codes() []Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]Code, len(m.events))
	for i, e := range m.events {
		codes[i] = e.Code
	}
	return codes
}

// Count returns how many events carry code
func (m *MemorySink) Count(code Code) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Code == code {
			n++
		}
	}
	return n
}

// Reset discards all recorded events
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
