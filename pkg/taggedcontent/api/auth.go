package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

type signUpRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Invitation string `json:"invitation,omitempty"`
}

type invitationResponse struct {
	Token string `json:"token"`
}

// Login authenticates with email and password and returns a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req taggedcontent.Login
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.repo.Authenticate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, session)
}

// SignUp creates an account and returns a session for it.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.repo.SignUp(r.Context(), taggedcontent.SignUp{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, req.Invitation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session)
}

// TerminateSession revokes the caller's session token. The token is refused
// from then on; other sessions for the same user are unaffected.
func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user.TerminateSession()
	render.NoContent(w, r)
}

// Invite issues an invitation token on behalf of the caller.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticated(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := user.Invite()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, invitationResponse{Token: token})
}
