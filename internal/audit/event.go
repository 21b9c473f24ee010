// Package audit records the operational audit trail of catalog connectors.
//
// Every significant connector decision (types acquired, resources retrieved,
// element created or archived, cycle completed) is described by a Code from a
// fixed message catalog. Events are handed to a Sink, which may log them,
// append them to a JSON-lines file, fan them out or keep them in memory.
package audit

import (
	"context"
	"time"
)

// Event is one rendered audit record
type Event struct {
	Time      time.Time `json:"time"`
	Connector string    `json:"connector"`
	ID        string    `json:"id"`
	Code      Code      `json:"code"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Params    []string  `json:"params,omitempty"`
}

// NewEvent renders the catalog entry for code. The connector name is always
// the first template parameter, followed by params.
func NewEvent(connector string, code Code, params ...any) Event {
	rendered := append([]string{connector}, stringify(params)...)
	event := Event{
		Time:      time.Now().UTC(),
		Connector: connector,
		Code:      code,
		Params:    rendered[1:],
	}
	def, ok := Definition(code)
	if !ok {
		event.Severity = SeverityInfo
		event.Message = string(code)
		return event
	}
	event.ID = def.ID
	event.Severity = def.Severity
	event.Message = def.Render(rendered...)
	return event
}

// Log binds a sink to a single connector
type Log struct {
	sink      Sink
	connector string
}

// NewLog returns a Log recording events for connector. A nil sink discards events.
func NewLog(sink Sink, connector string) *Log {
	if sink == nil {
		sink = Discard
	}
	return &Log{sink: sink, connector: connector}
}

// Record renders and records an event for code
func (l *Log) Record(ctx context.Context, code Code, params ...any) {
	if l == nil {
		return
	}
	l.sink.Record(ctx, NewEvent(l.connector, code, params...))
}

// Connector returns the connector the log is bound to
func (l *Log) Connector() string {
	if l == nil {
		return ""
	}
	return l.connector
}
