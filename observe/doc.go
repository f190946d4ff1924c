// Package observe provides the telemetry primitives used across the
// cache: a structured logging interface with a JSON implementation, and
// an Observer that wires OpenTelemetry tracer and meter providers with
// pluggable exporters (otlp, prometheus, stdout).
package observe
