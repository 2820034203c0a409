package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

type createTagRequest struct {
	Name string `json:"name"`
}

type sourceRequest struct {
	URL  string    `json:"url"`
	Icon uuid.UUID `json:"icon,omitempty"`
}

func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req createTagRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tag, err := user.CreateTag(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, tag)
}

func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	user, err := h.optional(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tag, err := user.Tag(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, tag)
}

func (h *Handler) tagUpdate(w http.ResponseWriter, r *http.Request,
	fn func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error) {

	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := fn(user, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) SetTagName(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.SetTagName(r.Context(), id, req.Text)
	})
}

func (h *Handler) AddTagAlias(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.AddTagAlias(r.Context(), id, req.Text)
	})
}

func (h *Handler) RemoveTagAlias(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.RemoveTagAlias(r.Context(), id, alias)
	})
}

func (h *Handler) SetTagDescription(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.SetTagDescription(r.Context(), id, req.Text)
	})
}

func (h *Handler) AddTagSource(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req sourceRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	source, err := user.AddTagSource(r.Context(), id, req.URL, req.Icon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, source)
}

func (h *Handler) RemoveTagSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "source"), 10, 64)
	if err != nil {
		h.writeError(w, r, taggedcontent.InvalidInput("invalid source"))
		return
	}
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.RemoveTagSource(r.Context(), id, sourceID)
	})
}

func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	h.tagUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.DeleteTag(r.Context(), id)
	})
}
