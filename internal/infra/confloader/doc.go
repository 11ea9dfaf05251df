// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already present in the target struct
//  2. A YAML configuration file
//  3. Environment variables (SSESS_ prefix)
//  4. An override map, typically built from command-line flags
//
// Environment names use a double underscore between nesting levels so that
// keys containing underscores survive: SSESS_SESSION__MAX_LIFE maps to
// session.max_life.
//
// Watcher reports changes to a configuration file through fsnotify so the
// server can apply the settings that support hot reload. Bursts of events
// for one file are coalesced into a single callback.
package confloader
