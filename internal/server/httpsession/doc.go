// Package httpsession adapts the session orchestrator to net/http.
//
// Manager.Middleware plays the part of the host runtime for each request.
// It reads the presented id from the session cookie, builds a
// session.Handler (which runs the fixation guard), locks and reads the
// session, exposes it to handlers through FromContext and writes it back
// after the handler returns.
//
// New ids come from pkg/token and are rate limited per client IP with
// golang.org/x/time/rate. Expired sessions are collected both inline with
// probability session.gc_probability and by a background Sweeper.
package httpsession
