package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"blog/internal/auth"
	"blog/internal/store"
)

// Index lists every post, newest first.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.Index(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index.html", TemplateData{Posts: posts})
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "create.html", TemplateData{})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	title := r.FormValue("title")
	body := r.FormValue("body")

	_, err := h.blog.CreatePost(r.Context(), user, title, body)
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		h.render(w, r, http.StatusOK, "create.html", TemplateData{Error: verr.Message, Title: title, Body: body})
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}

	post, err := h.blog.EditablePost(r.Context(), auth.GetUserFromContext(r.Context()), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "update.html", TemplateData{Post: post, Title: post.Title, Body: post.Body})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}
	user := auth.GetUserFromContext(r.Context())
	title := r.FormValue("title")
	body := r.FormValue("body")

	err := h.blog.UpdatePost(r.Context(), user, id, title, body)
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		post, err := h.blog.EditablePost(r.Context(), user, id)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "update.html", TemplateData{Error: verr.Message, Post: post, Title: title, Body: body})
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}

	if err := h.blog.DeletePost(r.Context(), auth.GetUserFromContext(r.Context()), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Detail shows a post with its comments and reactions.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}
	h.renderDetail(w, r, id, "", "")
}

func (h *Handler) renderDetail(w http.ResponseWriter, r *http.Request, id int64, errMsg, comment string) {
	detail, err := h.blog.Detail(r.Context(), auth.GetUserFromContext(r.Context()), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "detail.html", TemplateData{
		Error:     errMsg,
		Comment:   comment,
		Post:      detail.Post,
		Comments:  detail.Comments,
		Reactions: detail.Reactions,
		Reacted:   detail.Reacted,
		CanEdit:   detail.CanEdit,
	})
}

func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}

	if _, err := h.blog.ToggleReaction(r.Context(), auth.GetUserFromContext(r.Context()), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/%d", id), http.StatusSeeOther)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}
	comment := r.FormValue("comment")

	_, err := h.blog.CreateComment(r.Context(), auth.GetUserFromContext(r.Context()), id, comment)
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		h.renderDetail(w, r, id, verr.Message, comment)
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/%d", id), http.StatusSeeOther)
}

// DeleteComment removes a comment; the path id is the comment's id.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.Render404(w, r)
		return
	}

	postID, err := h.blog.DeleteComment(r.Context(), auth.GetUserFromContext(r.Context()), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/%d", postID), http.StatusSeeOther)
}
