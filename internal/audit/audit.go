// Package audit delivers interactive-login notifications to the
// listeners that need to run synchronously with a successful login:
// bookkeeping (last-login timestamps) and the live event feed. A sink
// failure aborts the login response, so listeners double as a last line
// of security-relevant checks.
package audit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/events"
	"github.com/vonheldenundgestalten/tokenlogin/internal/middleware"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

// Sink receives the notification for a just-established login.
type Sink interface {
	Notify(r *http.Request, cred auth.Credential) error
}

// Fanout notifies each sink in order and stops at the first failure.
type Fanout []Sink

func (f Fanout) Notify(r *http.Request, cred auth.Credential) error {
	for _, s := range f {
		if err := s.Notify(r, cred); err != nil {
			return err
		}
	}
	return nil
}

// LastLogin stamps the member's last-login time.
type LastLogin struct {
	members *store.MemberStore
	now     func() time.Time
}

func NewLastLogin(members *store.MemberStore) *LastLogin {
	return &LastLogin{members: members, now: time.Now}
}

func (l *LastLogin) Notify(r *http.Request, cred auth.Credential) error {
	if err := l.members.UpdateLastLogin(cred.MemberID, l.now()); err != nil {
		return fmt.Errorf("record last login: %w", err)
	}
	return nil
}

// Feed broadcasts the login on the websocket event feed. Delivery is
// best-effort per client; broadcasting itself never fails.
type Feed struct {
	hub *events.Hub
}

func NewFeed(hub *events.Hub) *Feed {
	return &Feed{hub: hub}
}

func (f *Feed) Notify(r *http.Request, cred auth.Credential) error {
	f.hub.Broadcast(events.NewLoginEvent(cred.MemberID, cred.Username, middleware.RealIP(r)))
	return nil
}
