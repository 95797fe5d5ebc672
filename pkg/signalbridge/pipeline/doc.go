// Package pipeline provides the in-process telemetry stage that feeds the
// bridge: a validated publish/subscribe service, baseline input emitters
// (IMU, gamepad, OSC/MIDI), and a normalizer that turns raw telemetry events
// into processed frames with derived metrics.
package pipeline
