package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

// AccountHandler serves the minimal authenticated surface: whoami and
// logout. Both sit behind the session middleware.
type AccountHandler struct {
	members  *store.MemberStore
	sessions *SessionManager
	logger   *slog.Logger
}

func NewAccountHandler(ms *store.MemberStore, sm *SessionManager, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{members: ms, sessions: sm, logger: logger}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	cred, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	member, err := h.members.GetByID(cred.MemberID)
	if err != nil || member == nil {
		h.logger.Error("me lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"username":   member.Username,
		"email":      member.Email,
		"last_login": member.LastLogin,
	})
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cred, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Clear(w, cred.SessionID); err != nil {
		h.logger.Error("clear session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
