// Package tracing configures the OpenTelemetry tracer provider (OTLP over
// HTTP or gRPC) and offers a small span helper used around analytics
// operations.
package tracing
