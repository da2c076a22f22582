// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every field is optional; LoadWithDefaults fills in a local development setup
// that connects to ws://localhost:9223.
package config
