// Package effects is a deterministic effect simulator layered on top of the
// minimal parameter surface: feature-flagged energy layers, tile-oriented
// frames, and volumetric slices for holographic playback.
package effects
