package handlers

import (
	"errors"
	"net/http"
	"strings"

	"blog/internal/auth"

	log "github.com/sirupsen/logrus"
)

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", TemplateData{})
}

// Register processes the registration form.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	_, err := h.auth.RegisterUser(r.Context(), username, password)
	if err != nil {
		var errMsg string
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			errMsg = "Username already taken."
		case errors.Is(err, auth.ErrInvalidInput):
			errMsg = err.Error()
		default:
			log.WithError(err).Error("Registration failed")
			h.Render500(w, r)
			return
		}
		h.render(w, r, http.StatusOK, "register.html", TemplateData{Error: errMsg, Username: username})
		return
	}

	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", TemplateData{})
}

// Login processes the login form and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, session, err := h.auth.LoginUser(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.WithError(err).Error("Login failed")
			h.Render500(w, r)
			return
		}
		h.render(w, r, http.StatusOK, "login.html", TemplateData{Error: "Incorrect username or password.", Username: username})
		return
	}

	h.auth.SetSessionCookie(w, session)
	log.WithField("user_id", user.ID).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout deletes the session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		err = h.auth.LogoutUser(r.Context(), sessionCookie.Value)
		if err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			log.WithError(err).Error("Error deleting session")
		}
	}

	h.auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
