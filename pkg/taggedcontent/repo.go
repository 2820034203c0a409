package taggedcontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent/auth"
	"github.com/tendant/tagged-content/pkg/taggedcontent/cache"
)

// UserSnapshot is a shared, immutable view of a cached user record.
type UserSnapshot = cache.Snapshot[User]

// Repo is the repository orchestrator: the facade composing the database,
// object store, search index, cache, credential service, and preview
// pipeline. It owns the consistency policy for every operation touching
// more than one backing store.
//
// Entity mutations are not exposed on Repo itself; callers construct a
// capability handle first (see Optional, Authenticated, and Admin).
type Repo struct {
	db       Database
	store    ObjectStore
	search   SearchIndex
	auth     *auth.Auth
	users    *cache.Store[User]
	revoked  *auth.Revocations
	previews PreviewGenerator
	maint    Maintenance
	log      *slog.Logger

	requireAccount    bool
	requireInvitation bool
}

// Option configures a Repo.
type Option func(*Repo)

// WithDatabase sets the relational database client. Required.
func WithDatabase(db Database) Option {
	return func(r *Repo) { r.db = db }
}

// WithObjectStore sets the blob store client. Required.
func WithObjectStore(store ObjectStore) Option {
	return func(r *Repo) { r.store = store }
}

// WithSearchIndex sets the search index client. Defaults to a no-op index.
func WithSearchIndex(search SearchIndex) Option {
	return func(r *Repo) { r.search = search }
}

// WithAuth sets the credential and token service. Required.
func WithAuth(a *auth.Auth) Option {
	return func(r *Repo) { r.auth = a }
}

// WithPreviewGenerator sets the preview pipeline. Defaults to no previews.
func WithPreviewGenerator(p PreviewGenerator) Option {
	return func(r *Repo) { r.previews = p }
}

// WithMaintenance sets the database maintenance support used by admin
// operations. Optional.
func WithMaintenance(m Maintenance) Option {
	return func(r *Repo) { r.maint = m }
}

// WithLogger sets the logger for best-effort failure reporting.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repo) { r.log = log }
}

// RequireAccount makes every access, including reads, require a signed-in
// user.
func RequireAccount() Option {
	return func(r *Repo) { r.requireAccount = true }
}

// RequireInvitation makes sign-up require a valid invitation token.
func RequireInvitation() Option {
	return func(r *Repo) { r.requireInvitation = true }
}

// New creates a Repo from the given options. The user cache is owned by the
// returned instance, so separate Repos never share cache state.
func New(options ...Option) (*Repo, error) {
	r := &Repo{
		users:   cache.New[User](),
		revoked: auth.NewRevocations(),
	}

	for _, option := range options {
		option(r)
	}

	if r.db == nil {
		return nil, errors.New("database is required")
	}
	if r.store == nil {
		return nil, errors.New("object store is required")
	}
	if r.auth == nil {
		return nil, errors.New("auth service is required")
	}
	if r.search == nil {
		r.search = NewNoopSearchIndex()
	}
	if r.previews == nil {
		r.previews = NewNoopPreviewGenerator()
	}
	if r.log == nil {
		r.log = slog.Default()
	}

	return r, nil
}

// Shutdown drains the preview pipeline and closes the database.
func (r *Repo) Shutdown() {
	r.previews.Close()
	r.db.Close()
}

// cachedUser returns the shared snapshot for id, loading it from the
// database on a miss. Concurrent misses collapse into one read.
func (r *Repo) cachedUser(ctx context.Context, id uuid.UUID) (*UserSnapshot, error) {
	return r.users.Fetch(ctx, id, func(ctx context.Context) (User, error) {
		user, err := r.db.GetUser(ctx, id)
		if err != nil {
			return User{}, err
		}
		return *user, nil
	})
}

func (r *Repo) session(userID uuid.UUID) (*SessionInfo, error) {
	token, expires, err := r.auth.IssueSession(userID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{UserID: userID, Token: token, ExpiresAt: expires}, nil
}

// Authenticate verifies the given credentials and issues a session. An
// unknown email and a wrong password produce the identical error, so the
// response never reveals which factor failed.
func (r *Repo) Authenticate(ctx context.Context, login Login) (*SessionInfo, error) {
	const invalidCredentials = "invalid credentials"

	password, err := r.db.GetUserPassword(ctx, login.Email)
	if err != nil {
		if IsNotFound(err) {
			return nil, Unauthenticated(invalidCredentials)
		}
		return nil, err
	}

	if !r.auth.VerifyPassword(login.Password, password.Hash) {
		return nil, Unauthenticated(invalidCredentials)
	}

	return r.session(password.UserID)
}

// Inviter resolves an invitation token to the user who issued it. Expired
// and malformed tokens are reported as distinguishable InvalidInput errors.
func (r *Repo) Inviter(ctx context.Context, token string) (*User, error) {
	info, err := r.auth.ValidateToken(token, auth.TokenInvitation)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, InvalidInput("invitation expired")
		}
		return nil, InvalidInput("invitation invalid")
	}

	snapshot, err := r.cachedUser(ctx, info.UserID)
	if err != nil {
		if IsNotFound(err) {
			return nil, InvalidInput("invitation invalid: creator of invitation not found")
		}
		return nil, err
	}

	user := snapshot.Value()
	return &user, nil
}

// SignUp creates a new account and issues its first session. When the Repo
// requires invitations, a valid invitation token must be supplied.
func (r *Repo) SignUp(ctx context.Context, info SignUp, invitation string) (*SessionInfo, error) {
	if r.requireInvitation {
		if invitation == "" {
			return nil, InvalidInput("invitation required")
		}
		if _, err := r.Inviter(ctx, invitation); err != nil {
			return nil, err
		}
	}

	// Hashing is CPU-bound; do it before the transaction opens.
	hash, err := r.auth.HashPassword(info.Password)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user, err := tx.CreateUser(ctx, info.Username, info.Email, hash)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.propagateUserAlias(ctx, user.ID, info.Username)

	r.users.Insert(user.ID, *user)
	return r.session(user.ID)
}

// propagateUserAlias registers a user name with the search index. The index
// is an eventually consistent projection; failures are logged, never
// returned.
func (r *Repo) propagateUserAlias(ctx context.Context, id uuid.UUID, alias string) {
	if err := r.search.AddUserAlias(ctx, id, alias); err != nil {
		r.log.Warn("search index update failed",
			"entity", "user", "id", id, "alias", alias, "error", err)
	}
}

func (r *Repo) propagateTagAlias(ctx context.Context, id uuid.UUID, alias string) {
	if err := r.search.AddTagAlias(ctx, id, alias); err != nil {
		r.log.Warn("search index update failed",
			"entity", "tag", "id", id, "alias", alias, "error", err)
	}
}

// Optional constructs the read-only capability. The session token may be
// empty for anonymous access unless the Repo requires an account.
func (r *Repo) Optional(ctx context.Context, token string) (*OptionalUser, error) {
	if token == "" {
		if r.requireAccount {
			return nil, Unauthenticated("login required")
		}
		return &OptionalUser{repo: r}, nil
	}

	user, session, err := r.sessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &OptionalUser{repo: r, user: user, session: session}, nil
}

// Authenticated constructs the mutation capability from a session token.
func (r *Repo) Authenticated(ctx context.Context, token string) (*AuthenticatedUser, error) {
	user, session, err := r.sessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &AuthenticatedUser{OptionalUser{repo: r, user: user, session: session}}, nil
}

// Admin constructs the privileged capability. Construction fails unless the
// session user's cached snapshot carries the admin flag.
func (r *Repo) Admin(ctx context.Context, token string) (*Admin, error) {
	authenticated, err := r.Authenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	return authenticated.Admin()
}

// sessionUser validates a session token against signature, expiry, and the
// revocation set, and resolves its user snapshot.
func (r *Repo) sessionUser(ctx context.Context, token string) (*UserSnapshot, auth.TokenInfo, error) {
	info, err := r.auth.ValidateToken(token, auth.TokenSession)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return nil, auth.TokenInfo{}, Unauthenticated("session expired")
		default:
			return nil, auth.TokenInfo{}, Unauthenticated("session invalid")
		}
	}
	if r.revoked.Revoked(info.TokenID) {
		return nil, auth.TokenInfo{}, Unauthenticated("session terminated")
	}

	user, err := r.cachedUser(ctx, info.UserID)
	if err != nil {
		if IsNotFound(err) {
			return nil, auth.TokenInfo{}, Unauthenticated("session invalid")
		}
		return nil, auth.TokenInfo{}, err
	}
	return user, info, nil
}

// grantAdmin flips the admin flag for a user. Exposed through the Admin
// capability and through the bootstrap CLI.
func (r *Repo) grantAdmin(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SetUserAdmin(ctx, userID, true); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.users.Invalidate(userID)
	return nil
}

// GrantAdmin promotes a user without requiring an existing admin. It exists
// for bootstrapping the first administrator from the command line; all
// other promotions go through the Admin capability.
func (r *Repo) GrantAdmin(ctx context.Context, userID uuid.UUID) error {
	return r.grantAdmin(ctx, userID)
}

// Prune runs garbage collection without an admin session. It exists for
// scheduled maintenance from the command line; the API exposes the same
// operation through the Admin capability.
func (r *Repo) Prune(ctx context.Context) (*RemoveResult, error) {
	return r.prune(ctx)
}

// Import loads an export payload into this repository, copying referenced
// blobs from the source object store. The target must be empty, so no
// admin account can exist in it yet; like GrantAdmin this is a bootstrap
// entry point for the command line.
func (r *Repo) Import(ctx context.Context, data *ExportData, source ObjectStore) error {
	return r.importData(ctx, data, source)
}

// prune reclaims collectible database rows, then removes blobs that no
// surviving post references. The identifying transaction commits before any
// store removal, so a failed removal leaves a retryable orphan and never
// damages database consistency.
func (r *Repo) prune(ctx context.Context) (*RemoveResult, error) {
	if err := r.db.PruneStale(ctx); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	objects, err := tx.PruneObjects(ctx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if len(objects) == 0 {
		return &RemoveResult{}, nil
	}

	result, err := r.store.RemoveBatch(ctx, objects)
	if err != nil {
		// The rows are gone; the blobs will be retried by the next prune.
		r.log.Error("object store removal failed", "objects", len(objects), "error", err)
		return &RemoveResult{}, nil
	}
	return result, nil
}

func (r *Repo) rebuildIndices(ctx context.Context) error {
	if err := r.search.DeleteIndices(ctx); err != nil {
		return err
	}
	if err := r.search.CreateIndices(ctx); err != nil {
		return err
	}

	data, err := r.db.Export(ctx)
	if err != nil {
		return err
	}

	for _, user := range data.Users {
		for _, alias := range append([]string{user.Profile.Name}, user.Profile.Aliases...) {
			if err := r.search.AddUserAlias(ctx, user.ID, alias); err != nil {
				return err
			}
		}
	}
	for _, tag := range data.Tags {
		for _, alias := range append([]string{tag.Profile.Name}, tag.Profile.Aliases...) {
			if err := r.search.AddTagAlias(ctx, tag.ID, alias); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repo) export(ctx context.Context) (*ExportData, error) {
	return r.db.Export(ctx)
}

// importData loads an export payload into this repository. Referenced blobs
// are copied from the source object store before the relational import
// runs, preserving the store-before-reference invariant. The target must be
// empty; the database rejects a merge.
func (r *Repo) importData(ctx context.Context, data *ExportData, source ObjectStore) error {
	objects := collectPostObjects(data.Posts)

	for _, id := range objects {
		meta, stream, err := source.GetStream(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch object %s from source store: %w", id, err)
		}

		stored, err := r.store.AddStream(ctx, stream)
		stream.Close()
		if err != nil {
			return fmt.Errorf("failed to store object %s: %w", id, err)
		}
		if stored.ID != meta.ID {
			return fmt.Errorf("object %s changed identity during import (got %s)", meta.ID, stored.ID)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stored, err := r.store.GetObjects(ctx, objects)
	if err != nil {
		return err
	}
	for _, object := range stored {
		if err := tx.EnsureObject(ctx, object); err != nil {
			return err
		}
	}

	if err := tx.Import(ctx, data); err != nil {
		return err
	}

	for _, tag := range data.Tags {
		if err := importSources(ctx, tx, tag.Profile.Sources, func(source int64) error {
			return tx.LinkTagSource(ctx, tag.ID, source)
		}); err != nil {
			return err
		}
	}
	for _, user := range data.Users {
		if err := importSources(ctx, tx, user.Profile.Sources, func(source int64) error {
			return tx.LinkUserSource(ctx, user.ID, source)
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, object := range stored {
		r.previews.Dispatch(*object)
	}
	return nil
}

// importSources re-materializes profile links by resolving or creating the
// owning site record, then attaching each source to the owning entity.
func importSources(ctx context.Context, tx Tx, sources []Source, link func(source int64) error) error {
	for _, source := range sources {
		parsed, err := url.Parse(source.URL)
		if err != nil || parsed.Host == "" {
			return InvalidInput(fmt.Sprintf("source URL %q is not valid", source.URL))
		}

		site, err := tx.GetSite(ctx, parsed.Scheme, parsed.Host, source.Icon)
		if err != nil {
			return err
		}

		resource := parsed.RequestURI()
		created, err := tx.CreateSource(ctx, site, resource, source.Icon)
		if err != nil {
			return err
		}

		if err := link(created.ID); err != nil {
			return err
		}
	}
	return nil
}

func collectPostObjects(posts []Post) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var objects []uuid.UUID
	for _, post := range posts {
		for _, id := range post.Objects {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			objects = append(objects, id)
		}
	}
	return objects
}
