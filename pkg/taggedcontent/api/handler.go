// Package api exposes the repository over HTTP. Handlers are thin: they
// parse the request, obtain a capability for the bearer token, call the
// corresponding operation, and translate errors to status codes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// Handler serves the HTTP API.
type Handler struct {
	repo *taggedcontent.Repo
	log  *slog.Logger
}

func NewHandler(repo *taggedcontent.Repo, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// Routes returns the full API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/auth/login", h.Login)
	r.Delete("/auth/session", h.TerminateSession)
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/invite", h.Invite)

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.CreatePost)
		r.Get("/{id}", h.GetPost)
		r.Delete("/{id}", h.DeletePost)
		r.Put("/{id}/title", h.SetPostTitle)
		r.Put("/{id}/description", h.SetPostDescription)
		r.Post("/{id}/publish", h.PublishPost)
		r.Post("/{id}/objects", h.AppendPostObjects)
		r.Delete("/{id}/objects", h.RemovePostObjects)
		r.Put("/{id}/related/{related}", h.AddRelatedPost)
		r.Delete("/{id}/related/{related}", h.RemoveRelatedPost)
		r.Put("/{id}/tags/{tag}", h.AddPostTag)
		r.Delete("/{id}/tags/{tag}", h.RemovePostTag)
	})

	r.Route("/tags", func(r chi.Router) {
		r.Post("/", h.CreateTag)
		r.Get("/{id}", h.GetTag)
		r.Delete("/{id}", h.DeleteTag)
		r.Put("/{id}/name", h.SetTagName)
		r.Post("/{id}/aliases", h.AddTagAlias)
		r.Delete("/{id}/aliases/{alias}", h.RemoveTagAlias)
		r.Put("/{id}/description", h.SetTagDescription)
		r.Post("/{id}/sources", h.AddTagSource)
		r.Delete("/{id}/sources/{source}", h.RemoveTagSource)
	})

	r.Route("/objects", func(r chi.Router) {
		r.Post("/", h.UploadObject)
		r.Get("/{id}", h.GetObject)
		r.Get("/{id}/data", h.GetObjectData)
	})

	r.Get("/users/{id}", h.GetUser)
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.CurrentUser)
		r.Put("/name", h.SetName)
		r.Post("/aliases", h.AddAlias)
		r.Delete("/aliases/{alias}", h.RemoveAlias)
		r.Put("/description", h.SetDescription)
		r.Put("/email", h.SetEmail)
		r.Put("/password", h.SetPassword)
		r.Post("/sources", h.AddSource)
		r.Delete("/sources/{source}", h.RemoveSource)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/grant/{id}", h.GrantAdmin)
		r.Post("/prune", h.Prune)
		r.Post("/indices", h.RebuildIndices)
		r.Get("/export", h.Export)
	})

	return r
}

// bearerToken extracts the token from the Authorization header. An absent
// header yields the empty token, which the repository treats as anonymous.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func (h *Handler) optional(r *http.Request) (*taggedcontent.OptionalUser, error) {
	return h.repo.Optional(r.Context(), bearerToken(r))
}

func (h *Handler) authenticated(r *http.Request) (*taggedcontent.AuthenticatedUser, error) {
	return h.repo.Authenticated(r.Context(), bearerToken(r))
}

func (h *Handler) admin(r *http.Request) (*taggedcontent.Admin, error) {
	return h.repo.Admin(r.Context(), bearerToken(r))
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return taggedcontent.InvalidInput("invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, taggedcontent.InvalidInput("invalid " + name)
	}
	return id, nil
}

// writeError maps repository errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case taggedcontent.IsInvalidInput(err):
		status = http.StatusBadRequest
	case taggedcontent.IsUnauthenticated(err):
		status = http.StatusUnauthorized
	case taggedcontent.IsNotFound(err):
		status = http.StatusNotFound
	case taggedcontent.IsAlreadyExists(err):
		status = http.StatusConflict
	default:
		h.log.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": statusMessage(status, err)})
}

func statusMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		return "internal server error"
	}
	return err.Error()
}
