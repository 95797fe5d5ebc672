// Package signalbridge assembles the Signal Bus bridge from configuration:
// an observed router fanning validated envelopes out to UDP, OSC, gRPC, and
// in-memory sinks, with health accounting, optional contract logging, replay
// capture, and a telemetry performance monitor.
//
// The subpackages are usable on their own; this package only wires them:
//
//   - envelope: kinds, schema validation, minimal parameters, derived metrics
//   - bridge: router, sinks, rate limiting
//   - observability: contract log, health, OTel metrics and tracing
//   - replay: deterministic capture, export, SQLite archive
//   - perf: latency aggregation and reports
//   - pipeline: telemetry service, emitters, normalizer
//   - effects: deterministic effect simulation
//   - config: typed configuration schema and file loading
package signalbridge
