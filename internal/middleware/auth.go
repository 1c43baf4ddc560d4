package middleware

import (
	"net/http"

	"github.com/vonheldenundgestalten/tokenlogin/internal/auth"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

const sessionCookieName = "tokenlogin_session"

// RequireSession validates the session cookie and installs the
// authenticated Credential for downstream handlers. Requests without a
// live session get a plain 401.
func RequireSession(sessions *store.SessionStore, members *store.MemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			member, err := members.GetByID(sess.MemberID)
			if err != nil || member == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			cred := auth.Credential{
				MemberID:  member.ID,
				Username:  member.Username,
				SessionID: sess.ID,
				Realm:     auth.RealmFrontend,
			}

			ctx := auth.WithCredential(r.Context(), cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
