// Package config defines the typed bridge configuration schema and loads it
// from YAML or JSON files, auto-detecting the format by extension.
package config
