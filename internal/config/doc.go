// Package config provides configuration loading and validation for the
// narration engine. It handles YAML-based configuration with per-section
// struct validation and duration helpers.
package config
