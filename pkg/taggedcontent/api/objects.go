package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// UploadObject stores the request body as a new object. The object is
// addressed by its content, so repeated uploads of the same bytes return
// the same object.
func (h *Handler) UploadObject(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	object, err := user.UploadObject(r.Context(), r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, object)
}

func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
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

	object, err := user.Object(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, object)
}

// GetObjectData streams the object's bytes.
func (h *Handler) GetObjectData(w http.ResponseWriter, r *http.Request) {
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

	object, data, err := user.ObjectData(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer data.Close()

	w.Header().Set("Content-Type", object.MediaType)
	if object.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(object.Size, 10))
	}
	if _, err := io.Copy(w, data); err != nil {
		h.log.Error("failed to stream object", "object_id", id, "error", err)
	}
}
