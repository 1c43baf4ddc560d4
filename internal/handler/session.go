package handler

import (
	"net/http"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

const sessionCookieName = "tokenlogin_session"

// SessionManager owns the cookie half of session handling: Establish
// creates the session row and sets the cookie, Clear removes both.
type SessionManager struct {
	store *store.SessionStore
	ttl   time.Duration
}

func NewSessionManager(ss *store.SessionStore, ttl time.Duration) *SessionManager {
	return &SessionManager{store: ss, ttl: ttl}
}

func (m *SessionManager) Establish(w http.ResponseWriter, r *http.Request, memberID int64) (*model.Session, error) {
	sess, err := m.store.Create(memberID, m.ttl)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return sess, nil
}

// Clear deletes the session row and expires the cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, sessionID int64) error {
	if err := m.store.Delete(sessionID); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}
