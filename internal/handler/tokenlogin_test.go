package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/audit"
	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/database"
	"github.com/vonheldenundgestalten/tokenlogin/internal/events"
	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

type fixture struct {
	db      *sql.DB
	tokens  *store.TokenStore
	members *store.MemberStore
	session *store.SessionStore
	mux     *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		tokens:  store.NewTokenStore(db),
		members: store.NewMemberStore(db),
		session: store.NewSessionStore(db),
	}

	logger := slog.Default()
	sm := NewSessionManager(f.session, time.Hour)
	sink := audit.Fanout{
		audit.NewLastLogin(f.members),
		audit.NewFeed(events.NewHub(logger)),
	}
	h := NewTokenLoginHandler(f.tokens, f.members, auth.NewAccountChecker(), sm, sink, "Log in", logger)

	f.mux = http.NewServeMux()
	f.mux.HandleFunc("GET /login/{token}", h.Handle)
	f.mux.HandleFunc("POST /login/{token}", h.Handle)
	return f
}

// insertToken places a token row with a chosen value and expiry offset,
// bypassing the store's random generation.
func (f *fixture) insertToken(t *testing.T, token string, memberID int64, jumpTo string, ttl time.Duration) {
	t.Helper()
	expiresAt := time.Now().UTC().Add(ttl)
	_, err := f.db.Exec(
		`INSERT INTO login_tokens (token, member_id, jump_to, expires_at) VALUES (?, ?, ?, ?)`,
		token, memberID, jumpTo, expiresAt,
	)
	if err != nil {
		t.Fatalf("insert token: %v", err)
	}
}

func (f *fixture) tokenRowCount(t *testing.T, token string) int {
	t.Helper()
	var count int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM login_tokens WHERE token = ?`, token).Scan(&count); err != nil {
		t.Fatalf("count token rows: %v", err)
	}
	return count
}

func (f *fixture) sessionCount(t *testing.T) int {
	t.Helper()
	var count int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return count
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestUnknownTokenDenied(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{"GET", "POST"} {
		rec := f.do(method, "/login/ffffffff")
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusForbidden)
		}
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestExpiredTokenDeniedRowKept(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "dead00", m.ID, "", -10*time.Second)

	for _, method := range []string{"GET", "POST"} {
		rec := f.do(method, "/login/dead00")
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusForbidden)
		}
	}

	// Expired rows are never removed by the handler; the purge job owns them.
	if got := f.tokenRowCount(t, "dead00"); got != 1 {
		t.Errorf("token rows = %d, want 1", got)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestGetShowsConfirmationForm(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "abc123def", m.ID, "/welcome", time.Hour)

	rec := f.do("GET", "/login/abc123def")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `action="/login/abc123def"`) {
		t.Errorf("form action missing from body:\n%s", body)
	}
	if !strings.Contains(body, `id="loginabc1"`) {
		t.Errorf("form id missing from body:\n%s", body)
	}
	if !strings.Contains(body, `method="post"`) {
		t.Errorf("form method missing from body:\n%s", body)
	}

	// GET has no side effects: token intact, no session.
	if got := f.tokenRowCount(t, "abc123def"); got != 1 {
		t.Errorf("token rows = %d, want 1", got)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestPostLogsInAndConsumesToken(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "abc123", m.ID, "/members/home", time.Hour)

	rec := f.do("POST", "/login/abc123")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/members/home" {
		t.Errorf("redirect = %q, want %q", loc, "/members/home")
	}

	// Session established and bound to the member.
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	sess, err := f.session.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session for cookie: %v, %v", sess, err)
	}
	if sess.MemberID != m.ID {
		t.Errorf("session member = %d, want %d", sess.MemberID, m.ID)
	}

	// Token consumed, last login stamped.
	if got := f.tokenRowCount(t, "abc123"); got != 0 {
		t.Errorf("token rows = %d, want 0", got)
	}
	updated, _ := f.members.GetByID(m.ID)
	if updated.LastLogin == nil {
		t.Error("expected last login to be stamped")
	}

	// Replay must fail: consumption is monotonic.
	rec = f.do("POST", "/login/abc123")
	if rec.Code != http.StatusForbidden {
		t.Errorf("replay status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := f.sessionCount(t); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
}

func TestPostDefaultRedirect(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "nojump", m.ID, "", time.Hour)

	rec := f.do("POST", "/login/nojump")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect = %q, want %q", loc, "/")
	}
}

func TestDeletedMemberConsumesToken(t *testing.T) {
	f := newFixture(t)

	f.insertToken(t, "orphan", 9999, "", time.Hour)

	rec := f.do("POST", "/login/orphan")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// An orphaned token can never succeed, so it is cleaned up eagerly.
	if got := f.tokenRowCount(t, "orphan"); got != 0 {
		t.Errorf("token rows = %d, want 0", got)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestDisabledMemberDenied(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.members.SetDisabled(m.ID, true)
	f.insertToken(t, "blocked", m.ID, "", time.Hour)

	rec := f.do("POST", "/login/blocked")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// The token was consumed before the account checks ran; no session.
	if got := f.tokenRowCount(t, "blocked"); got != 0 {
		t.Errorf("token rows = %d, want 0", got)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestBackendMemberDenied(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("admin", "admin@example.com", "", model.KindBackend)
	f.insertToken(t, "backend", m.ID, "", time.Hour)

	rec := f.do("POST", "/login/backend")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestLockedMemberDenied(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.members.SetLockedUntil(m.ID, time.Now().Add(time.Hour))
	f.insertToken(t, "locked", m.ID, "", time.Hour)

	rec := f.do("POST", "/login/locked")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestConcurrentPostsSingleWinner(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "raceme", m.ID, "/home", time.Hour)

	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	const racers = 8
	var wg sync.WaitGroup
	codes := make(chan int, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Post(srv.URL+"/login/raceme", "application/x-www-form-urlencoded", nil)
			if err != nil {
				t.Errorf("post: %v", err)
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	won, denied := 0, 0
	for code := range codes {
		switch code {
		case http.StatusSeeOther:
			won++
		case http.StatusForbidden:
			denied++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
	if denied != racers-1 {
		t.Errorf("denied = %d, want %d", denied, racers-1)
	}
	if got := f.sessionCount(t); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)

	m, err := f.members.Create("jdoe", "jdoe@example.com", "", "")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	f.insertToken(t, "abc123", m.ID, "/jump/target", time.Hour)

	rec := f.do("POST", "/login/abc123")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/jump/target" {
		t.Errorf("redirect = %q, want %q", loc, "/jump/target")
	}

	var memberID int64
	row := f.db.QueryRow(`SELECT member_id FROM sessions`)
	if err := row.Scan(&memberID); err != nil {
		t.Fatalf("scan session: %v", err)
	}
	if memberID != m.ID {
		t.Errorf("session principal = %d, want %d (jdoe)", memberID, m.ID)
	}
	if got := f.tokenRowCount(t, "abc123"); got != 0 {
		t.Errorf("token rows = %d, want 0", got)
	}
}

type refusingSink struct{}

func (refusingSink) Notify(*http.Request, auth.Credential) error {
	return errors.New("listener refused the login")
}

func TestNotifyFailureTearsDownSession(t *testing.T) {
	f := newFixture(t)

	// Same wiring as the fixture, but with a sink that always refuses.
	sm := NewSessionManager(f.session, time.Hour)
	h := NewTokenLoginHandler(f.tokens, f.members, auth.NewAccountChecker(), sm, refusingSink{}, "Log in", slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/{token}", h.Handle)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, "refused", m.ID, "/home", time.Hour)

	req := httptest.NewRequest("POST", "/login/refused", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// A failed notification aborts the login for real: no session row
	// survives and the cookie set during establishment is expired again.
	if got := f.sessionCount(t); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("expected the session cookie to be expired")
	}

	// The token stays consumed; single use is not negotiable.
	if got := f.tokenRowCount(t, "refused"); got != 0 {
		t.Errorf("token rows = %d, want 0", got)
	}
}

func TestMethodGateNonPostVariants(t *testing.T) {
	f := newFixture(t)

	m, _ := f.members.Create("jdoe", "jdoe@example.com", "", "")
	f.insertToken(t, fmt.Sprintf("%08x", 0xbeef), m.ID, "", time.Hour)

	// The route accepts only GET and POST; anything else is rejected by
	// the mux itself and can never reach the token flow.
	req := httptest.NewRequest("DELETE", "/login/0000beef", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := f.tokenRowCount(t, "0000beef"); got != 1 {
		t.Errorf("token rows = %d, want 1", got)
	}
}
