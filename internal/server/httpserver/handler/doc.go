// Package handler provides the HTTP request handlers of the demo server.
//
// The session endpoints read and modify the session opened by
// httpsession.Manager; they must run behind its middleware.
package handler
