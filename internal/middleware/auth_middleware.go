package middleware

import (
	"errors"
	"net/http"

	"blog/internal/auth"

	log "github.com/sirupsen/logrus"
)

// Auth resolves the session cookie and stores the user in the request context.
// Requests without a valid session continue anonymously; a storage failure
// answers 500 and leaves the cookie in place.
func Auth(m *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionCookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := m.GetUserBySession(r.Context(), sessionCookie.Value)
			switch {
			case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrUserNotFound):
				m.ClearSessionCookie(w)
				log.WithError(err).Debug("Ignoring invalid session cookie")
				next.ServeHTTP(w, r)
				return
			case err != nil:
				// Keep the cookie: the session may still be valid once storage recovers.
				log.WithError(err).Error("Failed to resolve session")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
