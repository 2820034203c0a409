package taggedcontent

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// AuthenticatedUser is the mutation capability, constructed by
// Repo.Authenticated from a verified session. It extends the read-only
// capability with every entity mutation.
type AuthenticatedUser struct {
	OptionalUser
}

// Admin upgrades this capability to the privileged level. It fails with an
// authorization error unless the cached user snapshot carries the admin
// flag.
func (u *AuthenticatedUser) Admin() (*Admin, error) {
	if !u.user.Value().Admin {
		return nil, Unauthenticated("administrator access required")
	}
	return &Admin{repo: u.repo, user: u.user}, nil
}

func (u *AuthenticatedUser) userID() uuid.UUID { return u.user.Value().ID }

// withTx runs fn inside one transaction scoped to a single logical
// operation. Rollback after a successful commit is a no-op.
func (r *Repo) withTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Sessions

// CreateSession issues a fresh session token for this user.
func (u *AuthenticatedUser) CreateSession() (*SessionInfo, error) {
	return u.repo.session(u.userID())
}

// TerminateSession revokes the session this capability was constructed
// from. The token is refused from then on, even though its signature and
// expiry would still validate; other sessions for the same user stay valid.
func (u *AuthenticatedUser) TerminateSession() {
	u.repo.revoked.Revoke(u.session.TokenID, u.session.ExpiresAt)
}

// Invite issues an invitation token embedding this user as the inviter.
func (u *AuthenticatedUser) Invite() (string, error) {
	token, _, err := u.repo.auth.IssueInvitation(u.userID())
	return token, err
}

// Posts

// CreatePost creates a post. Every attached object must already be present
// in the object store; the database row referencing an object is only ever
// committed after the store holds its bytes.
func (u *AuthenticatedUser) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := u.repo.verifyObjectsStored(ctx, req.Objects); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &Post{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Objects:     req.Objects,
		Related:     req.Related,
		Tags:        req.Tags,
		Draft:       req.Draft,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.CreatePost(ctx, post)
	}); err != nil {
		return nil, err
	}
	return post, nil
}

// SetPostTitle updates a post's title.
func (u *AuthenticatedUser) SetPostTitle(ctx context.Context, id uuid.UUID, title string) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetPostTitle(ctx, id, title)
	})
}

// SetPostDescription updates a post's description.
func (u *AuthenticatedUser) SetPostDescription(ctx context.Context, id uuid.UUID, description string) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetPostDescription(ctx, id, description)
	})
}

// PublishPost clears a post's draft flag.
func (u *AuthenticatedUser) PublishPost(ctx context.Context, id uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.PublishPost(ctx, id)
	})
}

// AppendPostObjects attaches objects to the end of a post's object list.
// The objects must already exist in the object store.
func (u *AuthenticatedUser) AppendPostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	if err := u.repo.verifyObjectsStored(ctx, objects); err != nil {
		return err
	}
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.AddPostObjects(ctx, postID, objects)
	})
}

// RemovePostObjects detaches objects from a post. The blobs stay in the
// object store; an unreferenced blob becomes eligible for the next prune.
func (u *AuthenticatedUser) RemovePostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.RemovePostObjects(ctx, postID, objects)
	})
}

// AddRelatedPost links a related post.
func (u *AuthenticatedUser) AddRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.AddRelatedPost(ctx, postID, related)
	})
}

// RemoveRelatedPost unlinks a related post.
func (u *AuthenticatedUser) RemoveRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.RemoveRelatedPost(ctx, postID, related)
	})
}

// AddPostTag attaches a tag to a post.
func (u *AuthenticatedUser) AddPostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.AddPostTag(ctx, postID, tagID)
	})
}

// RemovePostTag detaches a tag from a post.
func (u *AuthenticatedUser) RemovePostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.RemovePostTag(ctx, postID, tagID)
	})
}

// DeletePost removes a post, detaching its object, tag, and related-post
// references. Shared objects are never deleted here; prune reclaims them
// once nothing references them.
func (u *AuthenticatedUser) DeletePost(ctx context.Context, id uuid.UUID) error {
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.DeletePost(ctx, id)
	})
}

// Objects

// UploadObject stores a media blob and records it in the database. The
// store is written first; only after it acknowledges is the database row
// committed, so a failure leaves at worst an orphan blob for prune to
// reclaim. Preview derivation is dispatched out of band, so the returned
// object may transiently have no preview.
func (u *AuthenticatedUser) UploadObject(ctx context.Context, r io.Reader) (*Object, error) {
	stored, err := u.repo.store.AddStream(ctx, r)
	if err != nil {
		return nil, err
	}

	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.EnsureObject(ctx, stored)
	}); err != nil {
		return nil, err
	}

	object, err := u.repo.db.GetObject(ctx, stored.ID)
	if err != nil {
		return nil, err
	}

	u.repo.previews.Dispatch(*object)
	return object, nil
}

// Tags

// CreateTag creates a tag owned by this user and registers its name with
// the search index post-commit.
func (u *AuthenticatedUser) CreateTag(ctx context.Context, name string) (*Tag, error) {
	var tag *Tag
	err := u.repo.withTx(ctx, func(tx Tx) (err error) {
		tag, err = tx.CreateTag(ctx, name, u.userID())
		return err
	})
	if err != nil {
		return nil, err
	}

	u.repo.propagateTagAlias(ctx, tag.ID, name)
	return tag, nil
}

// ownTag verifies the acting user created the tag. Admins may modify any
// tag.
func (u *AuthenticatedUser) ownTag(ctx context.Context, id uuid.UUID) error {
	tag, err := u.repo.db.GetTag(ctx, id)
	if err != nil {
		return err
	}
	if tag.Creator != u.userID() && !u.user.Value().Admin {
		return Unauthenticated("tag can only be modified by its creator")
	}
	return nil
}

// SetTagName replaces a tag's primary name.
func (u *AuthenticatedUser) SetTagName(ctx context.Context, id uuid.UUID, name string) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetTagName(ctx, id, name)
	}); err != nil {
		return err
	}

	u.repo.propagateTagAlias(ctx, id, name)
	return nil
}

// AddTagAlias adds an alias to a tag.
func (u *AuthenticatedUser) AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.AddTagAlias(ctx, id, alias)
	}); err != nil {
		return err
	}

	u.repo.propagateTagAlias(ctx, id, alias)
	return nil
}

// RemoveTagAlias removes an alias from a tag.
func (u *AuthenticatedUser) RemoveTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.RemoveTagAlias(ctx, id, alias)
	})
}

// SetTagDescription updates a tag's description.
func (u *AuthenticatedUser) SetTagDescription(ctx context.Context, id uuid.UUID, description string) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetTagDescription(ctx, id, description)
	})
}

// AddTagSource attaches a profile link to a tag, deduplicated at the
// (scheme, host) site granularity.
func (u *AuthenticatedUser) AddTagSource(ctx context.Context, id uuid.UUID, rawURL string, icon uuid.UUID) (*Source, error) {
	if err := u.ownTag(ctx, id); err != nil {
		return nil, err
	}
	return u.repo.addSource(ctx, rawURL, icon, func(tx Tx, source int64) error {
		return tx.LinkTagSource(ctx, id, source)
	})
}

// RemoveTagSource detaches a profile link from a tag.
func (u *AuthenticatedUser) RemoveTagSource(ctx context.Context, id uuid.UUID, sourceID int64) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.UnlinkTagSource(ctx, id, sourceID)
	})
}

// DeleteTag removes a tag along with its aliases and profile links.
func (u *AuthenticatedUser) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if err := u.ownTag(ctx, id); err != nil {
		return err
	}
	return u.repo.withTx(ctx, func(tx Tx) error {
		return tx.DeleteTag(ctx, id)
	})
}

// Profile

// SetName replaces this user's display name.
func (u *AuthenticatedUser) SetName(ctx context.Context, name string) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetUserName(ctx, id, name)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	u.repo.propagateUserAlias(ctx, id, name)
	return nil
}

// AddAlias adds an alias to this user's profile.
func (u *AuthenticatedUser) AddAlias(ctx context.Context, alias string) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.AddUserAlias(ctx, id, alias)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	u.repo.propagateUserAlias(ctx, id, alias)
	return nil
}

// RemoveAlias removes an alias from this user's profile.
func (u *AuthenticatedUser) RemoveAlias(ctx context.Context, alias string) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.RemoveUserAlias(ctx, id, alias)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	return nil
}

// SetDescription updates this user's profile description.
func (u *AuthenticatedUser) SetDescription(ctx context.Context, description string) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetUserDescription(ctx, id, description)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	return nil
}

// SetEmail changes this user's email address.
func (u *AuthenticatedUser) SetEmail(ctx context.Context, email string) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetUserEmail(ctx, id, email)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	return nil
}

// SetPassword replaces this user's password. Hashing happens before the
// transaction opens.
func (u *AuthenticatedUser) SetPassword(ctx context.Context, password string) error {
	hash, err := u.repo.auth.HashPassword(password)
	if err != nil {
		return err
	}

	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.SetUserPassword(ctx, id, hash)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	return nil
}

// AddSource attaches a profile link to this user.
func (u *AuthenticatedUser) AddSource(ctx context.Context, rawURL string, icon uuid.UUID) (*Source, error) {
	id := u.userID()
	source, err := u.repo.addSource(ctx, rawURL, icon, func(tx Tx, src int64) error {
		return tx.LinkUserSource(ctx, id, src)
	})
	if err != nil {
		return nil, err
	}

	u.repo.users.Invalidate(id)
	return source, nil
}

// RemoveSource detaches a profile link from this user.
func (u *AuthenticatedUser) RemoveSource(ctx context.Context, sourceID int64) error {
	id := u.userID()
	if err := u.repo.withTx(ctx, func(tx Tx) error {
		return tx.UnlinkUserSource(ctx, id, sourceID)
	}); err != nil {
		return err
	}

	u.repo.users.Invalidate(id)
	return nil
}

// verifyObjectsStored enforces the store-before-reference invariant: every
// object a post is about to reference must already exist in the object
// store.
func (r *Repo) verifyObjectsStored(ctx context.Context, objects []uuid.UUID) error {
	if len(objects) == 0 {
		return nil
	}
	if _, err := r.store.GetObjects(ctx, objects); err != nil {
		return err
	}
	return nil
}

// addSource resolves or creates the owning site for a profile link, then
// creates the source and attaches it via link.
func (r *Repo) addSource(ctx context.Context, rawURL string, icon uuid.UUID, link func(tx Tx, source int64) error) (*Source, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || parsed.Scheme == "" {
		return nil, InvalidInput(fmt.Sprintf("source URL %q is not valid", rawURL))
	}

	var source *Source
	err = r.withTx(ctx, func(tx Tx) error {
		site, err := tx.GetSite(ctx, parsed.Scheme, parsed.Host, icon)
		if err != nil {
			return err
		}

		source, err = tx.CreateSource(ctx, site, parsed.RequestURI(), icon)
		if err != nil {
			return err
		}
		return link(tx, source.ID)
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}
