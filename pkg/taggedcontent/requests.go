package taggedcontent

import "github.com/google/uuid"

// Login carries the credentials for Repo.Authenticate.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp carries the fields for a new account.
type SignUp struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreatePostRequest describes a new post. Every referenced object must
// already exist in the object store; tags and related posts must exist in
// the database.
type CreatePostRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Objects     []uuid.UUID `json:"objects,omitempty"`
	Tags        []uuid.UUID `json:"tags,omitempty"`
	Related     []uuid.UUID `json:"related,omitempty"`
	Draft       bool        `json:"draft,omitempty"`
}
