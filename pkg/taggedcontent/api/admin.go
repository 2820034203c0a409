package api

import (
	"net/http"

	"github.com/go-chi/render"
)

func (h *Handler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admin(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := admin.GrantAdmin(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Prune reclaims unreferenced objects and stale drafts.
func (h *Handler) Prune(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admin(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := admin.Prune(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// RebuildIndices drops and repopulates the search index from the database.
func (h *Handler) RebuildIndices(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admin(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := admin.RebuildIndices(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Export returns the full data graph without object contents.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admin(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := admin.Export(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}
