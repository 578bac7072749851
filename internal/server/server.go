package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"blog/config"
	"blog/internal/auth"
	"blog/internal/handlers"
	"blog/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func applyMiddleware(h http.Handler, m ...func(http.Handler) http.Handler) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// NewRouter registers every route and wraps the mux in the global middleware chain.
func NewRouter(h *handlers.Handler, authManager *auth.Manager) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, fn http.HandlerFunc, m ...func(http.Handler) http.Handler) {
		m = append([]func(http.Handler) http.Handler{middleware.Metrics(pattern)}, m...)
		mux.Handle(pattern, applyMiddleware(fn, m...))
	}
	loginRequired := middleware.RequireAuth

	handle("GET /{$}", h.Index)
	handle("GET /{id}", h.Detail)

	handle("GET /create", h.CreateForm, loginRequired)
	handle("POST /create", h.CreatePost, loginRequired)
	handle("GET /{id}/update", h.UpdateForm, loginRequired)
	handle("POST /{id}/update", h.UpdatePost, loginRequired)
	handle("POST /{id}/delete", h.DeletePost, loginRequired)
	handle("POST /{id}/react", h.React, loginRequired)
	handle("POST /{id}/create_comment", h.CreateComment, loginRequired)
	handle("POST /{id}/delete_comment", h.DeleteComment, loginRequired)

	handle("GET /auth/register", h.RegisterForm)
	handle("POST /auth/register", h.Register)
	handle("GET /auth/login", h.LoginForm)
	handle("POST /auth/login", h.Login)
	handle("GET /auth/logout", h.Logout)

	mux.Handle("GET /metrics", promhttp.Handler())
	handle("/", h.NotFound)

	return applyMiddleware(mux,
		middleware.Logger,
		middleware.SecureHeaders,
		middleware.Auth(authManager),
	)
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
