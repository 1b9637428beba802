// Package metrics defines the Prometheus instruments exported by the SDK:
// HTTP request counters and latency, stream lifecycle gauges, result
// delivery counters, and keepalive outcomes.
package metrics
