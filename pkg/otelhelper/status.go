package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err on span and marks the span as failed.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetExitCode attaches a runnable status code to span. Non-zero codes mark the span as failed.
func SetExitCode(span trace.Span, code int) {
	span.SetAttributes(attribute.Int(ExitCodeKey, code))

	if code != 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("exited with status %d", code))
	}
}
