package db

import (
	"context"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
)

const (
	// StoreTracerName is the name used for the database store tracer
	StoreTracerName = "github.com/stacklok/toolhive-catalog-sync/store/db"
)

// startSpan starts a new span for database operations.
// All database spans include the db.system attribute per OTEL semantic conventions.
func (s *dbStore) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithAttributes(semconv.DBSystemPostgreSQL)}, opts...)
	return otel.StartSpan(ctx, s.tracer, name, opts...)
}
