// Package command defines the ssess-cli commands on urfave/cli/v2.
//
// The commands work directly against the configured storage backend and
// crypt provider; they do not talk to a running server.
package command
