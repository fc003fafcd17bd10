// Package metrics exposes expvar-published counters and gauges used by the
// chatflow store and its persistence adapters. It avoids external
// dependencies and is served by the HTTP shell at /debug/vars and /metrics.
package metrics
