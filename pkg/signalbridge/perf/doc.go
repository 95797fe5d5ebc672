// Package perf aggregates latency metrics for high-frequency envelope
// traffic: a fixed-capacity sample buffer, mean/max/jitter aggregation, and
// offline report generation from contract log streams.
package perf
