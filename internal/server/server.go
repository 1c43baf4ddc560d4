package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/audit"
	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/config"
	"github.com/vonheldenundgestalten/tokenlogin/internal/events"
	"github.com/vonheldenundgestalten/tokenlogin/internal/handler"
	"github.com/vonheldenundgestalten/tokenlogin/internal/middleware"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

type Server struct {
	db           *sql.DB
	hub          *events.Hub
	tokenLoginH  *handler.TokenLoginHandler
	accountH     *handler.AccountHandler
	tokenStore   *store.TokenStore
	memberStore  *store.MemberStore
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	rateLimit    int
	logger       *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := events.NewHub(logger.With("component", "events"))

	tokenStore := store.NewTokenStore(db)
	memberStore := store.NewMemberStore(db)
	sessionStore := store.NewSessionStore(db)

	sessionMgr := handler.NewSessionManager(sessionStore, cfg.SessionTTL())
	sink := audit.Fanout{
		audit.NewLastLogin(memberStore),
		audit.NewFeed(hub),
	}

	tokenLoginH := handler.NewTokenLoginHandler(
		tokenStore,
		memberStore,
		auth.NewAccountChecker(),
		sessionMgr,
		sink,
		cfg.SubmitLabel,
		logger.With("component", "token_login"),
	)

	return &Server{
		db:           db,
		hub:          hub,
		tokenLoginH:  tokenLoginH,
		accountH:     handler.NewAccountHandler(memberStore, sessionMgr, logger.With("component", "account")),
		tokenStore:   tokenStore,
		memberStore:  memberStore,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		rateLimit:    cfg.RateLimitPerMinute,
		logger:       logger,
	}
}

// TokenStore returns the token store for cleanup tasks.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// Hub returns the login event hub.
func (s *Server) Hub() *events.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// The login route accepts only GET (confirmation form, side-effect
	// free) and POST (consume and log in). POST is rate limited by
	// client IP on top of token unguessability.
	mux.HandleFunc("GET /login/{token}", s.tokenLoginH.Handle)
	mux.HandleFunc("POST /login/{token}", s.rateLimitedHandler(s.tokenLoginH.Handle))

	mux.HandleFunc("GET /events/ws", events.Handler(s.hub, s.logger.With("component", "events")))
	mux.HandleFunc("GET /health", s.healthHandler)

	// Authenticated surface behind the session middleware.
	protected := http.NewServeMux()
	protected.HandleFunc("GET /me", s.accountH.Me)
	protected.HandleFunc("POST /logout", s.accountH.Logout)

	sessionMiddleware := middleware.RequireSession(s.sessionStore, s.memberStore)
	mux.Handle("GET /me", sessionMiddleware(protected))
	mux.Handle("POST /logout", sessionMiddleware(protected))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.rateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
