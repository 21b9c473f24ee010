package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileSink appends events as JSON lines. Appends are serialized within the
// process by a mutex and across processes by a lock file next to the log.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	lock *flock.Flock
}

// NewFileSink opens (or creates) the JSON-lines audit file at path
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	// #nosec G304 -- path comes from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file %s: %w", path, err)
	}
	return &FileSink{file: f, lock: flock.New(path + ".lock")}, nil
}

// Record appends event to the file. Failures are logged and otherwise ignored.
func (s *FileSink) Record(ctx context.Context, event Event) {
	if err := s.write(event); err != nil {
		slog.WarnContext(ctx, "Failed to write audit event",
			"audit_code", string(event.Code),
			"connector", event.Connector,
			"error", err)
	}
}

func (s *FileSink) write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit file is closed")
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock audit file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ReadFile loads every event from a JSON-lines audit file
func ReadFile(path string) ([]Event, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit file %s: %w", path, err)
	}
	var events []Event
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e Event
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}
