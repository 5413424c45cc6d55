// Package telemetry groups the gateway's observability layers: slog
// configuration with secret redaction under logging, and Prometheus
// collectors under metrics.
package telemetry
