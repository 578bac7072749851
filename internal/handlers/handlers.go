package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/models"
	"blog/internal/store"

	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"index.html",
	"create.html",
	"update.html",
	"detail.html",
	"login.html",
	"register.html",
	"error.html",
}

// TemplateData holds data passed to HTML templates.
type TemplateData struct {
	User      *models.User
	Error     string
	Posts     []models.Post
	Post      models.Post
	Comments  []models.Comment
	Reactions []models.Reaction
	Reacted   bool
	CanEdit   bool
	// Submitted form values, echoed back when validation fails.
	Title    string
	Body     string
	Comment  string
	Username string
}

type Handler struct {
	blog      *blog.Service
	auth      *auth.Manager
	templates map[string]*template.Template
}

func New(b *blog.Service, a *auth.Manager) (*Handler, error) {
	funcs := template.FuncMap{
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("error parsing template %s: %w", page, err)
		}
		templates[page] = t
	}

	return &Handler{blog: b, auth: a, templates: templates}, nil
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data TemplateData) {
	data.User = auth.GetUserFromContext(r.Context())

	t, ok := h.templates[page]
	if !ok {
		log.Errorf("Unknown template %s", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.WithError(err).Errorf("Error rendering template %s", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) Render403(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "error.html", TemplateData{Error: "403 Forbidden"})
}

func (h *Handler) Render404(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error.html", TemplateData{Error: "404 Not Found"})
}

func (h *Handler) Render500(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "error.html", TemplateData{Error: "500 Internal Server Error"})
}

// NotFound serves unknown paths with the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Render404(w, r)
}

// handleError maps blog and store errors to responses.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var storageErr *store.StorageError
	switch {
	case errors.Is(err, store.ErrUnauthenticated):
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	case errors.Is(err, store.ErrNotFound):
		h.Render404(w, r)
	case errors.Is(err, store.ErrForbidden):
		h.Render403(w, r)
	case errors.As(err, &storageErr):
		log.WithError(storageErr.Err).WithField("op", storageErr.Op).Error("Storage failure")
		h.Render500(w, r)
	default:
		log.WithError(err).Error("Unexpected error")
		h.Render500(w, r)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
