// engforum/session/session.go
package session

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "forum_session"

	FlashSuccess = "success"
	FlashError   = "error"
)

// Manager wraps the cookie session store. It carries the acting user's
// username and the one-shot flash messages shown after a redirect.
type Manager struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewManager builds a cookie store from a single secret. Separate
// signing and encryption keys are derived so the cookie is both
// authenticated and opaque.
func NewManager(secret string, logger *slog.Logger) *Manager {
	h := sha256.Sum256([]byte("auth:" + secret))
	e := sha256.Sum256([]byte("enc:" + secret))

	store := sessions.NewCookieStore(h[:], e[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, logger: logger}
}

func (m *Manager) get(r *http.Request) *sessions.Session {
	// An undecodable cookie yields a fresh session alongside the error,
	// which is the right fallback for a rotated secret.
	s, err := m.store.Get(r, sessionName)
	if err != nil {
		m.logger.Warn("Could not decode session cookie, starting fresh", "error", err)
	}
	return s
}

// CurrentUsername returns the logged-in username, if any.
func (m *Manager) CurrentUsername(r *http.Request) (string, bool) {
	s := m.get(r)
	username, ok := s.Values["username"].(string)
	return username, ok && username != ""
}

// SetUser records a successful login on the session.
func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, username string) error {
	s := m.get(r)
	s.Values["username"] = username
	return s.Save(r, w)
}

// ClearUser logs the user out.
func (m *Manager) ClearUser(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, "username")
	return s.Save(r, w)
}

// AddFlash queues a one-shot message under the given kind
// (FlashSuccess or FlashError) for the next page render.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := m.get(r)
	s.AddFlash(message, kind)
	if err := s.Save(r, w); err != nil {
		m.logger.Error("Failed to save flash message", "error", err)
	}
}

// PopFlashes consumes and clears all queued flash messages.
func (m *Manager) PopFlashes(w http.ResponseWriter, r *http.Request) (success, errors []string) {
	s := m.get(r)
	for _, f := range s.Flashes(FlashSuccess) {
		if msg, ok := f.(string); ok {
			success = append(success, msg)
		}
	}
	for _, f := range s.Flashes(FlashError) {
		if msg, ok := f.(string); ok {
			errors = append(errors, msg)
		}
	}
	if err := s.Save(r, w); err != nil {
		m.logger.Error("Failed to clear flash messages", "error", err)
	}
	return success, errors
}
