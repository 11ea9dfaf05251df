package httpsession

import (
	"context"
	"maps"
	"net/http"
	"sync"
)

type sessionKey struct{}

// Session is the decoded session of the current request. Changes are
// written back when the handler returns.
type Session struct {
	mu        sync.Mutex
	id        string
	openedID  string // id whose lock was taken before the handler ran
	values    map[string]string
	existing  bool
	modified  bool
	destroyed bool
	replaced  []string

	w       http.ResponseWriter
	manager *Manager
	mint    func() (string, error)
}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session opened by Manager.Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// ID returns the session id in effect.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// IsNew reports whether no stored data was found for the session.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.existing
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.modified = true
	s.destroyed = false
}

// Delete removes key and reports whether it was present.
func (s *Session) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	s.modified = true
	return true
}

// Values returns a copy of all stored values.
func (s *Session) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Destroy drops the stored session and expires the cookie. It must be
// called before the response body is written.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	s.destroyed = true
	s.modified = false
	s.manager.expireCookie(s.w)
}

// Regenerate moves the session data to a freshly minted id and removes the
// old record at commit. The new id is locked at commit before it is written.
// It must be called before the response body is written.
func (s *Session) Regenerate() (string, error) {
	id, err := s.mint()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existing {
		s.replaced = append(s.replaced, s.id)
	}
	s.id = id
	s.existing = false
	s.modified = true
	s.destroyed = false
	s.manager.setCookie(s.w, id)
	return id, nil
}
