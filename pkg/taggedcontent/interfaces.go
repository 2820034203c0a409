package taggedcontent

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Database is the transactional gateway to the relational store, the only
// backing store with atomicity. Reads run outside transactions; every
// mutating operation opens one Tx scoped to that operation.
type Database interface {
	Begin(ctx context.Context) (Tx, error)

	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// GetUserPassword looks up the credential row by email. It returns
	// NotFoundError when no account uses the address.
	GetUserPassword(ctx context.Context, email string) (*Password, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	GetTag(ctx context.Context, id uuid.UUID) (*Tag, error)
	GetObject(ctx context.Context, id uuid.UUID) (*Object, error)

	// SetObjectPreview records the derived preview for an object. It is a
	// single-statement write used by the preview pipeline.
	SetObjectPreview(ctx context.Context, objectID, previewID uuid.UUID) error

	// PruneStale deletes rows the retention policy marks collectible. The
	// policy itself lives database-side.
	PruneStale(ctx context.Context) error

	// Export produces a consistent snapshot of the full data graph.
	Export(ctx context.Context) (*ExportData, error)

	Close()
}

// Tx is a database transaction. Implementations translate unique-constraint
// violations into AlreadyExistsError and report missing rows as
// NotFoundError. Import rejects a non-empty target with InvalidInputError;
// it is not a merge operation.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)
	SetUserName(ctx context.Context, id uuid.UUID, name string) error
	AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error
	RemoveUserAlias(ctx context.Context, id uuid.UUID, alias string) error
	SetUserDescription(ctx context.Context, id uuid.UUID, description string) error
	SetUserEmail(ctx context.Context, id uuid.UUID, email string) error
	SetUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetUserAdmin(ctx context.Context, id uuid.UUID, admin bool) error

	// GetSite resolves a (scheme, host) pair to its site record, creating
	// it when absent.
	GetSite(ctx context.Context, scheme, host string, icon uuid.UUID) (int64, error)
	CreateSource(ctx context.Context, site int64, resource string, icon uuid.UUID) (*Source, error)
	LinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error
	UnlinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error
	LinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error
	UnlinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error

	CreatePost(ctx context.Context, post *Post) error
	SetPostTitle(ctx context.Context, id uuid.UUID, title string) error
	SetPostDescription(ctx context.Context, id uuid.UUID, description string) error
	PublishPost(ctx context.Context, id uuid.UUID) error
	AddPostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error
	RemovePostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error
	AddRelatedPost(ctx context.Context, postID, related uuid.UUID) error
	RemoveRelatedPost(ctx context.Context, postID, related uuid.UUID) error
	AddPostTag(ctx context.Context, postID, tagID uuid.UUID) error
	RemovePostTag(ctx context.Context, postID, tagID uuid.UUID) error
	DeletePost(ctx context.Context, id uuid.UUID) error

	CreateTag(ctx context.Context, name string, creator uuid.UUID) (*Tag, error)
	SetTagName(ctx context.Context, id uuid.UUID, name string) error
	AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error
	RemoveTagAlias(ctx context.Context, id uuid.UUID, alias string) error
	SetTagDescription(ctx context.Context, id uuid.UUID, description string) error
	DeleteTag(ctx context.Context, id uuid.UUID) error

	// EnsureObject inserts the object row if it does not already exist.
	// Objects are content-addressed, so re-adding the same blob is a no-op.
	EnsureObject(ctx context.Context, object *Object) error

	// PruneObjects deletes object rows no longer referenced by any post and
	// returns their identities for removal from the object store.
	PruneObjects(ctx context.Context) ([]uuid.UUID, error)

	Import(ctx context.Context, data *ExportData) error
}

// ObjectStore is the gateway to the blob store. Identities are derived from
// content, so adding the same bytes twice yields the same object.
type ObjectStore interface {
	AddBytes(ctx context.Context, data []byte) (*Object, error)
	AddStream(ctx context.Context, r io.Reader) (*Object, error)

	// GetObject returns blob metadata, or NotFoundError.
	GetObject(ctx context.Context, id uuid.UUID) (*Object, error)
	GetObjects(ctx context.Context, ids []uuid.UUID) ([]*Object, error)

	GetBytes(ctx context.Context, id uuid.UUID) (*Object, []byte, error)
	GetStream(ctx context.Context, id uuid.UUID) (*Object, io.ReadCloser, error)

	// RemoveBatch deletes the given blobs, reporting which were actually
	// removed. Missing identities are skipped, not errors.
	RemoveBatch(ctx context.Context, ids []uuid.UUID) (*RemoveResult, error)
}

// SearchIndex is the gateway to the full-text index, an eventually
// consistent projection that is never the system of record. Propagation
// failures are logged by the caller and never fail a mutation.
type SearchIndex interface {
	AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error
	AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error
	DeleteIndices(ctx context.Context) error
	CreateIndices(ctx context.Context) error
}

// PreviewGenerator receives newly stored objects for out-of-band preview
// derivation. Dispatch must not block the request path beyond bounded
// queueing.
type PreviewGenerator interface {
	Dispatch(object Object)
	Close()
}

// Maintenance covers the administrative database operations: schema
// lifecycle plus dump and restore. Implementations are database-specific.
type Maintenance interface {
	InitSchema(ctx context.Context) error
	Migrate(ctx context.Context) error
	Reset(ctx context.Context) error
	Dump(ctx context.Context, path string) error
	Restore(ctx context.Context, path string) error
}
