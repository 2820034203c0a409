package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

type textRequest struct {
	Text string `json:"text"`
}

type objectsRequest struct {
	Objects []uuid.UUID `json:"objects"`
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req taggedcontent.CreatePostRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	post, err := user.CreatePost(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
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

	post, err := user.Post(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, post)
}

// postUpdate runs an authenticated mutation against the post in the path.
func (h *Handler) postUpdate(w http.ResponseWriter, r *http.Request,
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

func (h *Handler) SetPostTitle(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.SetPostTitle(r.Context(), id, req.Text)
	})
}

func (h *Handler) SetPostDescription(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.SetPostDescription(r.Context(), id, req.Text)
	})
}

func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.PublishPost(r.Context(), id)
	})
}

func (h *Handler) AppendPostObjects(w http.ResponseWriter, r *http.Request) {
	var req objectsRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.AppendPostObjects(r.Context(), id, req.Objects)
	})
}

func (h *Handler) RemovePostObjects(w http.ResponseWriter, r *http.Request) {
	var req objectsRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.RemovePostObjects(r.Context(), id, req.Objects)
	})
}

func (h *Handler) AddRelatedPost(w http.ResponseWriter, r *http.Request) {
	related, err := pathID(r, "related")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.AddRelatedPost(r.Context(), id, related)
	})
}

func (h *Handler) RemoveRelatedPost(w http.ResponseWriter, r *http.Request) {
	related, err := pathID(r, "related")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.RemoveRelatedPost(r.Context(), id, related)
	})
}

func (h *Handler) AddPostTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := pathID(r, "tag")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.AddPostTag(r.Context(), id, tagID)
	})
}

func (h *Handler) RemovePostTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := pathID(r, "tag")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.RemovePostTag(r.Context(), id, tagID)
	})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.postUpdate(w, r, func(user *taggedcontent.AuthenticatedUser, id uuid.UUID) error {
		return user.DeletePost(r.Context(), id)
	})
}
