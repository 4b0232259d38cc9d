package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const sessionCookie = "session"

type userIDKey struct{}

// userIDFrom returns the id stored by requireLogin.
func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}

func (s *Server) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireLogin redirects to /login unless the request carries a valid
// session token for a user that still exists. The user id is added to the
// context and the request logger.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, err := s.sessions.Verify(c.Value)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected session token", log.FieldError, err)
			s.clearSession(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if _, err := s.auth.User(r.Context(), userID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.serverError(w, r, "Session user lookup failed", err, log.OpRead)
				return
			}
			log.FromContext(r.Context()).InfoContext(r.Context(), "Session for unknown user", log.FieldUserID, userID)
			s.clearSession(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next(w, r.WithContext(ctx))
	}
}
