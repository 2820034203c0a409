package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
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

	account, err := user.User(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, account)
}

// CurrentUser returns the caller's own account.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	account := user.Current().Value()
	render.JSON(w, r, account)
}

func (h *Handler) selfUpdate(w http.ResponseWriter, r *http.Request,
	fn func(user *taggedcontent.AuthenticatedUser) error) {

	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := fn(user); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) SetName(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.SetName(r.Context(), req.Text)
	})
}

func (h *Handler) AddAlias(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.AddAlias(r.Context(), req.Text)
	})
}

func (h *Handler) RemoveAlias(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.RemoveAlias(r.Context(), alias)
	})
}

func (h *Handler) SetDescription(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.SetDescription(r.Context(), req.Text)
	})
}

func (h *Handler) SetEmail(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.SetEmail(r.Context(), req.Text)
	})
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.SetPassword(r.Context(), req.Text)
	})
}

func (h *Handler) AddSource(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req sourceRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	source, err := user.AddSource(r.Context(), req.URL, req.Icon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, source)
}

func (h *Handler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "source"), 10, 64)
	if err != nil {
		h.writeError(w, r, taggedcontent.InvalidInput("invalid source"))
		return
	}
	h.selfUpdate(w, r, func(user *taggedcontent.AuthenticatedUser) error {
		return user.RemoveSource(r.Context(), sourceID)
	})
}
