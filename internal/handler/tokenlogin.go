package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// TokenStore is the slice of the token store the handler needs: validate
// and consume, nothing else.
type TokenStore interface {
	GetValid(token string) (*model.LoginToken, error)
	Consume(id int64) (bool, error)
}

// Directory resolves members by id and by canonical username.
type Directory interface {
	GetByID(id int64) (*model.Member, error)
	GetByUsername(username string) (*model.Member, error)
}

// Checker runs the account-status gates around authentication.
type Checker interface {
	CheckPreAuth(*model.Member) error
	CheckPostAuth(*model.Member) error
}

// SessionContext installs the authenticated state for the response cycle
// and tears it down again when a later stage aborts the login.
type SessionContext interface {
	Establish(w http.ResponseWriter, r *http.Request, memberID int64) (*model.Session, error)
	Clear(w http.ResponseWriter, sessionID int64) error
}

// AuditSink is notified synchronously after a session is established;
// an error here aborts the login response.
type AuditSink interface {
	Notify(r *http.Request, cred auth.Credential) error
}

// TokenLoginHandler serves the single-use email-token login endpoint:
// GET shows a confirmation form, POST consumes the token and logs the
// owning member in.
type TokenLoginHandler struct {
	tokens      TokenStore
	directory   Directory
	checker     Checker
	sessions    SessionContext
	audit       AuditSink
	submitLabel string
	templates   *template.Template
	logger      *slog.Logger
}

func NewTokenLoginHandler(
	tokens TokenStore,
	directory Directory,
	checker Checker,
	sessions SessionContext,
	audit AuditSink,
	submitLabel string,
	logger *slog.Logger,
) *TokenLoginHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	if submitLabel == "" {
		submitLabel = "Log in"
	}
	return &TokenLoginHandler{
		tokens:      tokens,
		directory:   directory,
		checker:     checker,
		sessions:    sessions,
		audit:       audit,
		submitLabel: submitLabel,
		templates:   tmpl,
		logger:      logger,
	}
}

// Handle validates the token from the path, gates on the HTTP method, and
// on POST consumes the token exactly once before logging the member in.
func (h *TokenLoginHandler) Handle(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.PathValue("token")

	t, err := h.tokens.GetValid(tokenValue)
	if err != nil {
		h.logger.Error("token lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if t == nil {
		// Absent and expired are deliberately indistinguishable to the
		// visitor; the raw token goes to the log for operators only.
		h.logger.Error("token not found or expired", "token", tokenValue)
		h.renderError(w, auth.ErrTokenInvalid)
		return
	}

	member, err := h.directory.GetByID(t.MemberID)
	if err != nil {
		h.logger.Error("member lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if member == nil {
		// The member was deleted after issuance. The token can never
		// succeed, so consume it here rather than leave it to linger.
		if _, err := h.tokens.Consume(t.ID); err != nil {
			h.logger.Error("consume orphaned token", "error", err)
		}
		h.logger.Warn("token references missing member", "member_id", t.MemberID)
		h.renderError(w, auth.ErrMemberNotFound)
		return
	}

	// Only proceed on POST. On GET, show a form to gather a POST, so a
	// link-prefetching mail client or crawler cannot burn the token.
	if r.Method != http.MethodPost {
		prefix := tokenValue
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		h.templates.ExecuteTemplate(w, "login_confirm.html", map[string]any{
			"SubmitLabel": h.submitLabel,
			"FormID":      "login" + prefix,
			"FormAction":  r.URL.RequestURI(),
		})
		return
	}

	consumed, err := h.tokens.Consume(t.ID)
	if err != nil {
		h.logger.Error("consume token", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !consumed {
		// A concurrent request with the same token won the delete.
		h.logger.Error("token already consumed", "token", tokenValue)
		h.renderError(w, auth.ErrTokenInvalid)
		return
	}

	h.loginMember(w, r, member.Username, t.JumpTo)
}

// loginMember resolves the username through the directory, runs the
// account checks, establishes the session, and notifies listeners.
func (h *TokenLoginHandler) loginMember(w http.ResponseWriter, r *http.Request, username, jumpTo string) {
	member, err := h.directory.GetByUsername(username)
	if err != nil {
		h.logger.Error("directory lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if member == nil {
		h.logger.Warn("username not found in directory", "username", username)
		h.renderError(w, auth.ErrMemberNotFound)
		return
	}

	if member.Kind != model.KindFrontend {
		h.logger.Warn("not a front-end member", "username", username, "kind", member.Kind)
		h.renderError(w, auth.ErrAccessDenied)
		return
	}

	if err := h.checker.CheckPreAuth(member); err != nil {
		h.logger.Warn("pre-auth check failed", "username", username, "error", err)
		h.renderError(w, auth.ErrAccessDenied)
		return
	}
	if err := h.checker.CheckPostAuth(member); err != nil {
		h.logger.Warn("post-auth check failed", "username", username, "error", err)
		h.renderError(w, auth.ErrAccessDenied)
		return
	}

	sess, err := h.sessions.Establish(w, r, member.ID)
	if err != nil {
		h.logger.Error("establish session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	cred := auth.Credential{
		MemberID:  member.ID,
		Username:  member.Username,
		SessionID: sess.ID,
		Realm:     auth.RealmFrontend,
	}
	if err := h.audit.Notify(r, cred); err != nil {
		// The abort must be real: the session established above may not
		// outlive a refused notification, or the visitor ends up logged
		// in behind a 500.
		h.logger.Error("login notification", "username", username, "error", err)
		if cerr := h.sessions.Clear(w, sess.ID); cerr != nil {
			h.logger.Error("tear down session", "error", cerr)
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in automatically via token", "username", username)

	target := jumpTo
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// renderError maps the failure kind to its status and generic page. The
// pages stay vague on purpose so the response cannot be used as an
// oracle for which check failed.
func (h *TokenLoginHandler) renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMemberNotFound):
		w.WriteHeader(http.StatusNotFound)
		h.templates.ExecuteTemplate(w, "not_found.html", nil)
	default:
		w.WriteHeader(http.StatusForbidden)
		h.templates.ExecuteTemplate(w, "denied.html", nil)
	}
}
