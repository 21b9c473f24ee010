package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	schemaErr := &SchemaUnavailableError{Connector: "orders", MissingTypes: []string{"Dataset"}, Attempts: 3}

	tests := []struct {
		name      string
		err       *Error
		wantFatal bool
		wantIs    []error
	}{
		{
			name:      "schema unavailable",
			err:       newError(ErrorKindSchemaUnavailable, schemaErr, "connector orders stopped: %v", schemaErr),
			wantFatal: true,
			wantIs:    []error{ErrSchemaUnavailable},
		},
		{
			name:   "enumeration",
			err:    newError(ErrorKindEnumeration, errors.Join(ErrEnumeration, errors.New("timeout")), "enumerate"),
			wantIs: []error{ErrEnumeration},
		},
		{
			name: "aborted",
			err: newError(ErrorKindAborted,
				fmt.Errorf("%w: waiting for metadata types: %w", ErrAborted, context.Canceled), "aborted"),
			wantIs: []error{ErrAborted, context.Canceled},
		},
		{
			name:   "index",
			err:    newError(ErrorKindIndex, errors.Join(ErrIndex, errors.New("conn refused")), "index"),
			wantIs: []error{ErrIndex},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantFatal, tt.err.Fatal())
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, tt.err, target)
			}
		})
	}

	var nilErr *Error
	assert.False(t, nilErr.Fatal())

	cause := errors.New("boom")
	err := newError(ErrorKindIndex, cause, "connector %s failed", "topics")
	assert.Equal(t, "connector topics failed", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestSchemaUnavailableError(t *testing.T) {
	t.Parallel()

	err := &SchemaUnavailableError{Connector: "orders", MissingTypes: []string{"Dataset", "Topic"}, Attempts: 4}
	assert.Equal(t, "connector orders: metadata types [Dataset Topic] still missing after 4 checks", err.Error())
	assert.ErrorIs(t, err, ErrSchemaUnavailable)

	var target *SchemaUnavailableError
	wrapped := newError(ErrorKindSchemaUnavailable, err, "stopped")
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 4, target.Attempts)
}
