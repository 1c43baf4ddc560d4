package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
)

func checkerAt(now time.Time) *AccountChecker {
	c := NewAccountChecker()
	c.now = func() time.Time { return now }
	return c
}

func enabledMember() *model.Member {
	return &model.Member{
		Username:     "jdoe",
		Kind:         model.KindFrontend,
		LoginAllowed: true,
	}
}

func TestCheckPreAuthOK(t *testing.T) {
	c := checkerAt(time.Now())
	if err := c.CheckPreAuth(enabledMember()); err != nil {
		t.Errorf("expected enabled member to pass, got %v", err)
	}
}

func TestCheckPreAuthDenies(t *testing.T) {
	now := time.Now()
	lockedUntil := now.Add(time.Hour)
	lockExpired := now.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*model.Member)
		denied bool
	}{
		{"disabled", func(m *model.Member) { m.Disabled = true }, true},
		{"login not allowed", func(m *model.Member) { m.LoginAllowed = false }, true},
		{"locked", func(m *model.Member) { m.LockedUntil = &lockedUntil }, true},
		{"lock expired", func(m *model.Member) { m.LockedUntil = &lockExpired }, false},
	}

	c := checkerAt(now)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := enabledMember()
			tt.mutate(m)
			err := c.CheckPreAuth(m)
			if tt.denied && !errors.Is(err, ErrAccessDenied) {
				t.Errorf("expected ErrAccessDenied, got %v", err)
			}
			if !tt.denied && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
		})
	}
}

func TestCheckPostAuthActivationWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		from   *time.Time
		until  *time.Time
		denied bool
	}{
		{"no window", nil, nil, false},
		{"inside window", &past, &future, false},
		{"not yet active", &future, nil, true},
		{"no longer active", nil, &past, true},
	}

	c := checkerAt(now)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := enabledMember()
			m.ActiveFrom = tt.from
			m.ActiveUntil = tt.until
			err := c.CheckPostAuth(m)
			if tt.denied && !errors.Is(err, ErrAccessDenied) {
				t.Errorf("expected ErrAccessDenied, got %v", err)
			}
			if !tt.denied && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
		})
	}
}

func TestCredentialContextRoundTrip(t *testing.T) {
	ctx := WithCredential(t.Context(), Credential{
		MemberID:  42,
		Username:  "jdoe",
		SessionID: 7,
		Realm:     RealmFrontend,
	})

	c, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected credential in context")
	}
	if c.MemberID != 42 || c.Username != "jdoe" || c.Realm != RealmFrontend {
		t.Errorf("unexpected credential: %+v", c)
	}
	if MemberID(ctx) != 42 {
		t.Errorf("MemberID = %d, want 42", MemberID(ctx))
	}
	if Username(ctx) != "jdoe" {
		t.Errorf("Username = %q, want %q", Username(ctx), "jdoe")
	}
}

func TestCredentialContextMissing(t *testing.T) {
	if _, ok := FromContext(t.Context()); ok {
		t.Error("expected no credential in empty context")
	}
	if MemberID(t.Context()) != 0 {
		t.Error("expected zero member id")
	}
}
