package taggedcontent

import (
	"time"

	"github.com/google/uuid"
)

// Post is a user-authored unit referencing tagged media and related posts.
// The object list is ordered; tags and related posts are sets.
type Post struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Objects     []uuid.UUID `json:"objects,omitempty"`
	Related     []uuid.UUID `json:"related,omitempty"`
	Tags        []uuid.UUID `json:"tags,omitempty"`
	Draft       bool        `json:"draft,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	ModifiedAt  time.Time   `json:"modified_at"`
}

// Profile carries the name, aliases, description, and link sources shared by
// tags and users. The primary name is unique among primary names; aliases
// must not collide with any primary name.
type Profile struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Sources     []Source `json:"sources,omitempty"`
}

// Tag classifies posts. PostCount is derived by the database and ignored on
// writes.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Profile   Profile   `json:"profile"`
	Creator   uuid.UUID `json:"creator"`
	PostCount int64     `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account holder. The password hash never leaves the database
// layer; see Password.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Profile   Profile   `json:"profile"`
	Admin     bool      `json:"admin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Password pairs a user identity with its stored password hash. It is only
// produced by Database.GetUserPassword during authentication.
type Password struct {
	UserID uuid.UUID
	Hash   string
}

// Object is a content-addressed media blob reference. The blob itself is
// owned by the object store; posts reference objects and may share them.
// PreviewID is uuid.Nil until the preview pipeline derives one.
type Object struct {
	ID        uuid.UUID `json:"id"`
	MediaType string    `json:"media_type"`
	Size      int64     `json:"size"`
	PreviewID uuid.UUID `json:"preview_id,omitempty"`
}

// Source is a link hung off a user or tag profile. Links are deduplicated at
// the (scheme, host) site granularity by the database.
type Source struct {
	ID   int64     `json:"id"`
	URL  string    `json:"url"`
	Icon uuid.UUID `json:"icon,omitempty"`
}

// SessionInfo is returned after a successful authentication or sign-up.
type SessionInfo struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RemoveResult reports the outcome of a batch removal from the object store.
type RemoveResult struct {
	Removed    []uuid.UUID `json:"removed"`
	SpaceFreed int64       `json:"space_freed"`
}

// ExportVersion identifies the layout of an ExportData payload.
const ExportVersion = 1

// ExportData is a consistent snapshot of the full data graph. Object bytes
// are not embedded; importers fetch them from the source object store.
type ExportData struct {
	Version int          `json:"version"`
	Posts   []Post       `json:"posts,omitempty"`
	Tags    []Tag        `json:"tags,omitempty"`
	Users   []ExportUser `json:"users,omitempty"`
}

// ExportUser is a User plus the stored password hash, so an import can
// reproduce working credentials.
type ExportUser struct {
	User
	PasswordHash string `json:"password_hash"`
}
