// Package replay captures dispatched envelopes and re-exports them as a
// deterministic, time-ordered stream for offline analysis and test fixtures.
//
// Recording order is whatever the concurrent fan-out produced; export sorts
// stably by receipt time so interleaved recordings still replay
// deterministically. An optional SQLite archive persists exported frames for
// later analysis sessions.
package replay
