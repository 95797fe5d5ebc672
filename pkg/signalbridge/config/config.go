package config

import (
	"fmt"
	"strings"
)

// Sink types accepted by SinkConfig.Type.
const (
	SinkUDP    = "udp"
	SinkOSC    = "osc"
	SinkGRPC   = "grpc"
	SinkMemory = "memory"
)

// DefaultPerfBufferCapacity is the telemetry buffer size used when the perf
// section omits one.
const DefaultPerfBufferCapacity = 256

// SinkConfig declares one delivery target.
type SinkConfig struct {
	Name    string  `json:"name" yaml:"name"`
	Type    string  `json:"type" yaml:"type"`
	Address string  `json:"address,omitempty" yaml:"address,omitempty"`
	Pattern string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Method  string  `json:"method,omitempty" yaml:"method,omitempty"`
	Rate    float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Burst   int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// ReplayConfig controls replay capture and the optional SQLite archive.
type ReplayConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ArchivePath string `json:"archive_path,omitempty" yaml:"archive_path,omitempty"`
}

// PerfConfig controls the telemetry performance monitor.
type PerfConfig struct {
	BufferCapacity int `json:"buffer_capacity,omitempty" yaml:"buffer_capacity,omitempty"`
}

// Config is the top-level bridge configuration.
type Config struct {
	SessionID    string         `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	SDKSurface   string         `json:"sdk_surface" yaml:"sdk_surface"`
	Capabilities map[string]any `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Sinks        []SinkConfig   `json:"sinks" yaml:"sinks"`
	Replay       ReplayConfig   `json:"replay,omitempty" yaml:"replay,omitempty"`
	Perf         PerfConfig     `json:"perf,omitempty" yaml:"perf,omitempty"`
}

// Default returns a configuration with the standard defaults applied.
func Default() Config {
	return Config{
		SDKSurface: "unknown",
		Perf:       PerfConfig{BufferCapacity: DefaultPerfBufferCapacity},
	}
}

// applyDefaults fills omitted fields with their defaults.
func (c *Config) applyDefaults() {
	if c.SDKSurface == "" {
		c.SDKSurface = "unknown"
	}
	if c.Perf.BufferCapacity == 0 {
		c.Perf.BufferCapacity = DefaultPerfBufferCapacity
	}
}

// Validate checks the configuration for structural errors: unique non-empty
// sink names, known sink types with their required fields, non-negative
// rate limits, and a positive perf buffer.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SDKSurface) == "" {
		return fmt.Errorf("sdk_surface must not be empty")
	}

	names := make(map[string]struct{}, len(c.Sinks))
	for i, sink := range c.Sinks {
		if strings.TrimSpace(sink.Name) == "" {
			return fmt.Errorf("sinks[%d]: name must not be empty", i)
		}
		if _, dup := names[sink.Name]; dup {
			return fmt.Errorf("sinks[%d]: duplicate sink name %q", i, sink.Name)
		}
		names[sink.Name] = struct{}{}

		switch sink.Type {
		case SinkUDP:
			if sink.Address == "" {
				return fmt.Errorf("sinks[%d] (%s): udp sinks require an address", i, sink.Name)
			}
		case SinkOSC:
			if sink.Address == "" {
				return fmt.Errorf("sinks[%d] (%s): osc sinks require an address", i, sink.Name)
			}
			if !strings.HasPrefix(sink.Pattern, "/") {
				return fmt.Errorf("sinks[%d] (%s): osc sinks require an address pattern starting with /", i, sink.Name)
			}
		case SinkGRPC:
			if sink.Address == "" {
				return fmt.Errorf("sinks[%d] (%s): grpc sinks require a target address", i, sink.Name)
			}
			if sink.Method == "" {
				return fmt.Errorf("sinks[%d] (%s): grpc sinks require a full method name", i, sink.Name)
			}
		case SinkMemory:
		default:
			return fmt.Errorf("sinks[%d] (%s): unknown sink type %q", i, sink.Name, sink.Type)
		}

		if sink.Rate < 0 {
			return fmt.Errorf("sinks[%d] (%s): rate must not be negative", i, sink.Name)
		}
		if sink.Burst < 0 {
			return fmt.Errorf("sinks[%d] (%s): burst must not be negative", i, sink.Name)
		}
	}

	if c.Replay.Enabled && c.Replay.ArchivePath == "" {
		return fmt.Errorf("replay: archive_path is required when replay is enabled")
	}
	if c.Perf.BufferCapacity < 1 {
		return fmt.Errorf("perf: buffer_capacity must be positive")
	}
	return nil
}
