package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Time    string `json:"time"`
}

// SessionResponse is the body of GET /session. The session id is not
// included; it only travels in the HttpOnly cookie.
type SessionResponse struct {
	New    bool              `json:"new"`
	Values map[string]string `json:"values"`
}

// PutValueRequest is the body of PUT /session/values/{key}.
type PutValueRequest struct {
	Value string `json:"value"`
}

// ValueResponse is the body of GET and PUT /session/values/{key}.
type ValueResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
