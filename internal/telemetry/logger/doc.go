// Package logger provides structured logging for ssess.
//
// Loggers write JSON (default) or text through log/slog. Every handler built
// here runs attributes through the redaction hook, so application secrets,
// passwords and raw session ids never reach the output even when a caller
// logs them by mistake. Storage identifiers are derived values and are
// logged as-is.
//
// All loggers share one level, which SetLevel changes at runtime; the server
// uses this to apply log.level from a reloaded config file.
//
// Components take either a Logger (orchestrator, HTTP layer) or a plain
// *slog.Logger (storage backends); Slog bridges the two.
package logger
