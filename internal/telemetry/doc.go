// Package telemetry wraps OpenTelemetry SDK initialization, providing the
// TracerProvider and MeterProvider setup for voicebench. When telemetry is
// disabled it stays noop and connects to nothing.
package telemetry
