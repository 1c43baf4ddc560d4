package auth

import (
	"fmt"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
)

// AccountChecker validates that a resolved member is currently allowed to
// authenticate. Every failure wraps ErrAccessDenied; the specific reason
// stays out of user-facing responses.
type AccountChecker struct {
	now func() time.Time
}

func NewAccountChecker() *AccountChecker {
	return &AccountChecker{now: time.Now}
}

// CheckPreAuth runs the checks that gate authentication before any
// credential is considered: the account must allow logins, must not be
// disabled, and must not be locked out.
func (c *AccountChecker) CheckPreAuth(m *model.Member) error {
	if !m.LoginAllowed {
		return fmt.Errorf("login not allowed for %q: %w", m.Username, ErrAccessDenied)
	}
	if m.Disabled {
		return fmt.Errorf("account %q disabled: %w", m.Username, ErrAccessDenied)
	}
	if m.LockedUntil != nil && m.LockedUntil.After(c.now()) {
		return fmt.Errorf("account %q locked until %s: %w", m.Username, m.LockedUntil.Format(time.RFC3339), ErrAccessDenied)
	}
	return nil
}

// CheckPostAuth runs the checks applied after the credential is accepted:
// the account's activation window must include the current instant.
func (c *AccountChecker) CheckPostAuth(m *model.Member) error {
	now := c.now()
	if m.ActiveFrom != nil && m.ActiveFrom.After(now) {
		return fmt.Errorf("account %q not yet active: %w", m.Username, ErrAccessDenied)
	}
	if m.ActiveUntil != nil && m.ActiveUntil.Before(now) {
		return fmt.Errorf("account %q no longer active: %w", m.Username, ErrAccessDenied)
	}
	return nil
}
