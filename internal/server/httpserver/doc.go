// Package httpserver provides the HTTP/HTTPS server of the demo session
// service.
//
// Routes:
//
//   - GET /healthz
//   - GET /metrics (Prometheus text format)
//   - GET /session, GET|PUT|DELETE /session/values/{key}
//   - POST /session/regenerate, POST /session/destroy
//
// Every route runs behind Recover, RequestID and AccessLog. The /session
// routes additionally run behind httpsession.Manager.Middleware, which holds
// the session lock for the duration of the request.
package httpserver
