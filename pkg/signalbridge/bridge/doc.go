// Package bridge routes validated Signal Bus envelopes to downstream sinks
// (engine adapters, design-tool overlays, holographic clients) while keeping
// the minimal parameter set and derived metrics intact.
//
// The building blocks:
//   - Context: immutable per-dispatch identity shared by all sinks
//   - Sink: a named delivery target; transport sinks compose a bare send
//     primitive with rate limiting, error capture, and status reporting
//   - RateLimiter: per-sink token bucket
//   - Router: validates, derives metrics, assembles the outgoing envelope,
//     and fans out to every registered sink concurrently
//
// A sink's failure never prevents sibling sinks from receiving an envelope;
// there is no retry and no cross-sink transaction.
package bridge
