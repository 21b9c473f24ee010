// Package otel holds the span helpers and attribute keys shared by the
// sync engine and the store backends.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on catalog sync spans
const (
	AttrConnectorName       = attribute.Key("catalog.connector.name")
	AttrResourceType        = attribute.Key("catalog.resource_type")
	AttrSourceType          = attribute.Key("catalog.source.type")
	AttrQualifiedName       = attribute.Key("catalog.qualified_name")
	AttrQualifiedNamePrefix = attribute.Key("catalog.qualified_name_prefix")
	AttrElementGUID         = attribute.Key("catalog.element_guid")
	AttrAction              = attribute.Key("catalog.sync.action")
	AttrResultCount         = attribute.Key("catalog.result.count")
)

// errorStatus replaces the error text in span status. Store errors may quote
// SQL or DSNs; the recorded exception event keeps the detail.
const errorStatus = "operation failed"

// StartSpan starts a span on tracer. A nil tracer yields the span already in
// ctx, which is a no-op span when none was started.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// CycleAttributes describes one connector cycle
func CycleAttributes(connector, resourceType, sourceType string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrConnectorName.String(connector),
		AttrResourceType.String(resourceType),
		AttrSourceType.String(sourceType),
	)
}

// ActionAttributes describes one catalog mutation
func ActionAttributes(connector, action, qualifiedName string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrConnectorName.String(connector),
		AttrAction.String(action),
		AttrQualifiedName.String(qualifiedName),
	)
}

// RecordError marks span as failed. Nil spans and nil errors are ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, errorStatus)
}
