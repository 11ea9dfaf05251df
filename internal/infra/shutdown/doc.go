// Package shutdown coordinates graceful process termination.
//
// A Handler collects named hooks, waits for SIGINT, SIGTERM, a cancelled
// context or an explicit Trigger, then runs the hooks in reverse order of
// registration under a shared timeout. The server registers the HTTP
// listener first and storage last, so storage closes after the last
// request has finished.
package shutdown
