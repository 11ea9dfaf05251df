// Package main provides the entry point for ssess-cli.
//
// ssess-cli works directly on the storage backend described by a server
// configuration file:
//
//	ssess-cli keygen
//	ssess-cli --config ssess.yaml inspect ssid-01hq...
//	ssess-cli --config ssess.yaml -o json gc --max-life 1440
//	ssess-cli --config ssess.yaml config validate
package main
