// Package config provides the ssess server configuration.
//
// This package defines the configuration structure and its validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation of enums, durations, addresses and the secret
//   - sanitize.go: Secret masking for display and logs
//   - convert.go: Mapping into storage, crypt and session settings
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
