// Package observability layers contract logging, health accounting, OTel
// metrics, and tracing over the bridge router.
//
// The contract log is the Signal Bus wire format consumed by downstream
// tooling: one JSON object per dispatched envelope (or per rate-limited
// attempt) with fixed field names. Ambient diagnostics use log/slog and are
// separate from the contract stream.
package observability
