// Package envelope defines the Signal Bus envelope schema: the closed set of
// envelope kinds, the minimal parameter surface shared by every kind, the
// derived metrics computed from it, and the structural validators that guard
// the bus.
//
// Validation is intentionally strict and side-effect-free:
//   - numbers must be numeric (never coerced from strings)
//   - trigger flags must be booleans
//   - spatial frames must carry exactly 4 quaternion and 3 translation entries
//
// Validators are looked up through an explicit Registry constructed once and
// injected into routers and monitors, rather than an ambient global table.
package envelope
