package taggedcontent

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent/auth"
)

// OptionalUser is the read-only capability. It carries an optional
// authenticated identity and is constructed by Repo.Optional; holding one
// proves the caller passed the deployment's access policy.
type OptionalUser struct {
	repo    *Repo
	user    *UserSnapshot
	session auth.TokenInfo
}

// Current returns the authenticated user behind this capability, or nil for
// anonymous access.
func (u *OptionalUser) Current() *UserSnapshot { return u.user }

// Post returns a post by identity.
func (u *OptionalUser) Post(ctx context.Context, id uuid.UUID) (*Post, error) {
	return u.repo.db.GetPost(ctx, id)
}

// Tag returns a tag by identity.
func (u *OptionalUser) Tag(ctx context.Context, id uuid.UUID) (*Tag, error) {
	return u.repo.db.GetTag(ctx, id)
}

// User returns a user by identity, served from the cache when hot.
func (u *OptionalUser) User(ctx context.Context, id uuid.UUID) (*User, error) {
	snapshot, err := u.repo.cachedUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user := snapshot.Value()
	return &user, nil
}

// Object returns object metadata, including the derived preview identity
// once the pipeline has produced one.
func (u *OptionalUser) Object(ctx context.Context, id uuid.UUID) (*Object, error) {
	return u.repo.db.GetObject(ctx, id)
}

// ObjectData streams an object's bytes from the store. The caller owns the
// returned reader.
func (u *OptionalUser) ObjectData(ctx context.Context, id uuid.UUID) (*Object, io.ReadCloser, error) {
	return u.repo.store.GetStream(ctx, id)
}
