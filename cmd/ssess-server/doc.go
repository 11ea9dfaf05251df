// Package main provides the entry point for ssess-server, a demo HTTP
// service whose sessions are encrypted and stored through the configured
// backend.
//
// Usage:
//
//	ssess-server --config /path/to/ssess.yaml
//
// Changes to log.level in the configuration file apply without a restart.
package main
