package taggedcontent_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
	"github.com/tendant/tagged-content/pkg/taggedcontent/auth"
	repomemory "github.com/tendant/tagged-content/pkg/taggedcontent/repo/memory"
	searchmemory "github.com/tendant/tagged-content/pkg/taggedcontent/search/memory"
	memorystorage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/memory"
)

type testEnv struct {
	repo   *taggedcontent.Repo
	db     *repomemory.Database
	store  *memorystorage.Store
	search *searchmemory.Index
	auth   *auth.Auth
}

func newTestEnv(t *testing.T, extra ...taggedcontent.Option) *testEnv {
	t.Helper()

	signer, err := auth.New([]byte("test-secret"))
	require.NoError(t, err)

	env := &testEnv{
		db:     repomemory.New(),
		store:  memorystorage.New(),
		search: searchmemory.New(),
		auth:   signer,
	}

	options := []taggedcontent.Option{
		taggedcontent.WithDatabase(env.db),
		taggedcontent.WithObjectStore(env.store),
		taggedcontent.WithSearchIndex(env.search),
		taggedcontent.WithAuth(signer),
		taggedcontent.WithMaintenance(env.db),
	}
	options = append(options, extra...)

	env.repo, err = taggedcontent.New(options...)
	require.NoError(t, err)
	t.Cleanup(env.repo.Shutdown)
	return env
}

func signUp(t *testing.T, repo *taggedcontent.Repo, name string) *taggedcontent.SessionInfo {
	t.Helper()

	session, err := repo.SignUp(context.Background(), taggedcontent.SignUp{
		Username: name,
		Email:    name + "@example.com",
		Password: "password-" + name,
	}, "")
	require.NoError(t, err)
	return session
}

func authenticated(t *testing.T, repo *taggedcontent.Repo, session *taggedcontent.SessionInfo) *taggedcontent.AuthenticatedUser {
	t.Helper()

	user, err := repo.Authenticated(context.Background(), session.Token)
	require.NoError(t, err)
	return user
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := taggedcontent.New()
	assert.Error(t, err)
}

func TestSignUpAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	assert.NotEmpty(t, session.Token)

	user := authenticated(t, env.repo, session)
	account := user.Current().Value()
	assert.Equal(t, "walter", account.Profile.Name)
	assert.Equal(t, "walter@example.com", account.Email)
	assert.False(t, account.Admin)

	again, err := env.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "walter@example.com",
		Password: "password-walter",
	})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, again.UserID)
}

func TestTerminateSessionRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	other, err := env.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "walter@example.com",
		Password: "password-walter",
	})
	require.NoError(t, err)

	user := authenticated(t, env.repo, session)
	user.TerminateSession()

	_, err = env.repo.Authenticated(ctx, session.Token)
	require.Error(t, err)
	assert.True(t, taggedcontent.IsUnauthenticated(err))
	_, err = env.repo.Optional(ctx, session.Token)
	assert.Error(t, err)

	// Only the terminated session is revoked; the user's other session and
	// a fresh login keep working.
	_, err = env.repo.Authenticated(ctx, other.Token)
	assert.NoError(t, err)

	fresh, err := env.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "walter@example.com",
		Password: "password-walter",
	})
	require.NoError(t, err)
	_, err = env.repo.Authenticated(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestInvalidCredentialsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	signUp(t, env.repo, "walter")

	_, errWrongPassword := env.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "walter@example.com",
		Password: "wrong",
	})
	_, errUnknownEmail := env.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "nobody@example.com",
		Password: "whatever",
	})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)
	assert.True(t, taggedcontent.IsUnauthenticated(errWrongPassword))
	assert.True(t, taggedcontent.IsUnauthenticated(errUnknownEmail))
	// Callers must not be able to probe which accounts exist.
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestDuplicateEmailRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	signUp(t, env.repo, "walter")

	_, err := env.repo.SignUp(ctx, taggedcontent.SignUp{
		Username: "other",
		Email:    "walter@example.com",
		Password: "password",
	}, "")
	assert.True(t, taggedcontent.IsAlreadyExists(err))
}

func TestSignUpRequiresInvitation(t *testing.T) {
	env := newTestEnv(t, taggedcontent.RequireInvitation())
	ctx := context.Background()

	// Bootstrap problem: the very first account needs an invitation too,
	// so seed one directly.
	tx, err := env.db.Begin(ctx)
	require.NoError(t, err)
	seeded, err := tx.CreateUser(ctx, "founder", "founder@example.com", "x")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	_, err = env.repo.SignUp(ctx, taggedcontent.SignUp{
		Username: "walter",
		Email:    "walter@example.com",
		Password: "password",
	}, "")
	assert.True(t, taggedcontent.IsInvalidInput(err))

	_, err = env.repo.SignUp(ctx, taggedcontent.SignUp{
		Username: "walter",
		Email:    "walter@example.com",
		Password: "password",
	}, "garbage-token")
	assert.True(t, taggedcontent.IsInvalidInput(err))

	// A valid invitation from an existing user opens the door.
	founderToken, _, err := env.auth.IssueSession(seeded.ID)
	require.NoError(t, err)
	founder, err := env.repo.Authenticated(ctx, founderToken)
	require.NoError(t, err)
	invitation, err := founder.Invite()
	require.NoError(t, err)

	session, err := env.repo.SignUp(ctx, taggedcontent.SignUp{
		Username: "walter",
		Email:    "walter@example.com",
		Password: "password",
	}, invitation)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestOptionalCapability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Anonymous access is allowed by default.
	guest, err := env.repo.Optional(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, guest.Current())

	_, err = env.repo.Authenticated(ctx, "")
	assert.True(t, taggedcontent.IsUnauthenticated(err))
}

func TestRequireAccountClosesAnonymousAccess(t *testing.T) {
	env := newTestEnv(t, taggedcontent.RequireAccount())
	ctx := context.Background()

	_, err := env.repo.Optional(ctx, "")
	assert.True(t, taggedcontent.IsUnauthenticated(err))

	session := signUp(t, env.repo, "walter")
	user, err := env.repo.Optional(ctx, session.Token)
	require.NoError(t, err)
	assert.NotNil(t, user.Current())
}

func TestAdminCapability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")

	_, err := env.repo.Admin(ctx, session.Token)
	assert.True(t, taggedcontent.IsUnauthenticated(err))

	require.NoError(t, env.repo.GrantAdmin(ctx, session.UserID))

	// The grant invalidates the cached user; the same token now carries
	// admin rights.
	admin, err := env.repo.Admin(ctx, session.Token)
	require.NoError(t, err)
	assert.NotNil(t, admin)
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	object, err := user.UploadObject(ctx, bytesReader("object data"))
	require.NoError(t, err)

	tag, err := user.CreateTag(ctx, "landscapes")
	require.NoError(t, err)

	post, err := user.CreatePost(ctx, taggedcontent.CreatePostRequest{
		Title:   "first post",
		Objects: []uuid.UUID{object.ID},
		Tags:    []uuid.UUID{tag.ID},
		Draft:   true,
	})
	require.NoError(t, err)

	require.NoError(t, user.SetPostDescription(ctx, post.ID, "about mountains"))
	require.NoError(t, user.PublishPost(ctx, post.ID))

	got, err := user.Post(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "first post", got.Title)
	assert.Equal(t, "about mountains", got.Description)
	assert.False(t, got.Draft)
	assert.Equal(t, []uuid.UUID{object.ID}, got.Objects)
	assert.Equal(t, []uuid.UUID{tag.ID}, got.Tags)

	counted, err := user.Tag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counted.PostCount)

	second, err := user.CreatePost(ctx, taggedcontent.CreatePostRequest{Title: "second"})
	require.NoError(t, err)
	require.NoError(t, user.AddRelatedPost(ctx, post.ID, second.ID))

	got, err = user.Post(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID}, got.Related)

	require.NoError(t, user.DeletePost(ctx, second.ID))
	got, err = user.Post(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Related)
}

func TestCreatePostRejectsUnstoredObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	// Objects must exist in the store before anything may reference them.
	_, err := user.CreatePost(ctx, taggedcontent.CreatePostRequest{
		Objects: []uuid.UUID{uuid.New()},
	})
	assert.True(t, taggedcontent.IsNotFound(err))
}

func TestUploadObjectIsContentAddressed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	first, err := user.UploadObject(ctx, bytesReader("same"))
	require.NoError(t, err)
	second, err := user.UploadObject(ctx, bytesReader("same"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPruneReclaimsUnreferencedObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	orphan, err := user.UploadObject(ctx, bytesReader("orphaned"))
	require.NoError(t, err)
	kept, err := user.UploadObject(ctx, bytesReader("referenced"))
	require.NoError(t, err)

	post, err := user.CreatePost(ctx, taggedcontent.CreatePostRequest{
		Objects: []uuid.UUID{kept.ID},
	})
	require.NoError(t, err)

	require.NoError(t, env.repo.GrantAdmin(ctx, session.UserID))
	admin, err := env.repo.Admin(ctx, session.Token)
	require.NoError(t, err)

	result, err := admin.Prune(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Removed, orphan.ID)
	assert.NotContains(t, result.Removed, kept.ID)

	// The referenced object survives in both database and store.
	_, err = env.db.GetObject(ctx, kept.ID)
	assert.NoError(t, err)
	_, err = env.store.GetObject(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = env.store.GetObject(ctx, orphan.ID)
	assert.True(t, taggedcontent.IsNotFound(err))

	// Detaching the object makes it collectible on the next prune.
	require.NoError(t, user.RemovePostObjects(ctx, post.ID, []uuid.UUID{kept.ID}))
	result, err = admin.Prune(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Removed, kept.ID)
}

func TestProfileUpdatesInvalidateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	require.NoError(t, user.SetName(ctx, "walter white"))

	// A capability derived after the write sees the new state.
	fresh := authenticated(t, env.repo, session)
	assert.Equal(t, "walter white", fresh.Current().Value().Profile.Name)
}

func TestTagOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	creatorSession := signUp(t, env.repo, "creator")
	creator := authenticated(t, env.repo, creatorSession)

	tag, err := creator.CreateTag(ctx, "private")
	require.NoError(t, err)

	otherSession := signUp(t, env.repo, "other")
	other := authenticated(t, env.repo, otherSession)

	err = other.SetTagName(ctx, tag.ID, "hijacked")
	assert.True(t, taggedcontent.IsUnauthenticated(err))

	// Admins may modify any tag.
	require.NoError(t, env.repo.GrantAdmin(ctx, otherSession.UserID))
	elevated := authenticated(t, env.repo, otherSession)
	assert.NoError(t, elevated.SetTagDescription(ctx, tag.ID, "moderated"))
}

func TestSearchPropagation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	tag, err := user.CreateTag(ctx, "mountains")
	require.NoError(t, err)
	require.NoError(t, user.AddTagAlias(ctx, tag.ID, "peaks"))

	assert.Contains(t, env.search.FindTags("mount"), tag.ID)
	assert.Contains(t, env.search.FindTags("peaks"), tag.ID)
	assert.Contains(t, env.search.FindUsers("walter"), session.UserID)
}

// failingIndex rejects every call; mutations must still succeed.
type failingIndex struct{}

func (failingIndex) AddUserAlias(context.Context, uuid.UUID, string) error {
	return errors.New("index unavailable")
}
func (failingIndex) AddTagAlias(context.Context, uuid.UUID, string) error {
	return errors.New("index unavailable")
}
func (failingIndex) DeleteIndices(context.Context) error { return errors.New("index unavailable") }
func (failingIndex) CreateIndices(context.Context) error { return errors.New("index unavailable") }

func TestSearchFailureDoesNotFailMutations(t *testing.T) {
	env := newTestEnv(t, taggedcontent.WithSearchIndex(failingIndex{}))
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	tag, err := user.CreateTag(ctx, "resilient")
	require.NoError(t, err)
	assert.NoError(t, user.AddTagAlias(ctx, tag.ID, "sturdy"))
	assert.NoError(t, user.SetName(ctx, "renamed"))
}

func TestRebuildIndices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	tag, err := user.CreateTag(ctx, "mountains")
	require.NoError(t, err)
	require.NoError(t, user.AddTagAlias(ctx, tag.ID, "peaks"))

	require.NoError(t, env.repo.GrantAdmin(ctx, session.UserID))
	admin, err := env.repo.Admin(ctx, session.Token)
	require.NoError(t, err)

	// Wipe the index behind the repository's back, then rebuild it from
	// the database.
	require.NoError(t, env.search.DeleteIndices(ctx))
	require.NoError(t, env.search.CreateIndices(ctx))
	assert.Empty(t, env.search.FindTags("peaks"))

	require.NoError(t, admin.RebuildIndices(ctx))
	assert.Contains(t, env.search.FindTags("mountains"), tag.ID)
	assert.Contains(t, env.search.FindTags("peaks"), tag.ID)
	assert.Contains(t, env.search.FindUsers("walter"), session.UserID)
}

func TestProfileSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, env.repo, "walter")
	user := authenticated(t, env.repo, session)

	source, err := user.AddSource(ctx, "https://example.com/walter", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/walter", source.URL)

	// The same link resolves to the same source record.
	again, err := user.AddSource(ctx, "https://example.com/walter", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, source.ID, again.ID)

	// A different resource on the same host is a distinct source under the
	// shared site.
	tag, err := user.CreateTag(ctx, "archive")
	require.NoError(t, err)
	tagSource, err := user.AddTagSource(ctx, tag.ID, "https://example.com/archive", uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, tagSource.ID)

	_, err = user.AddSource(ctx, "not a url", uuid.Nil)
	assert.True(t, taggedcontent.IsInvalidInput(err))

	account, err := env.db.GetUser(ctx, session.UserID)
	require.NoError(t, err)
	require.Len(t, account.Profile.Sources, 1)
	assert.Equal(t, "https://example.com/walter", account.Profile.Sources[0].URL)

	stored, err := env.db.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	require.Len(t, stored.Profile.Sources, 1)
	assert.Equal(t, "https://example.com/archive", stored.Profile.Sources[0].URL)

	require.NoError(t, user.RemoveSource(ctx, source.ID))
	account, err = env.db.GetUser(ctx, session.UserID)
	require.NoError(t, err)
	assert.Empty(t, account.Profile.Sources)

	require.NoError(t, user.RemoveTagSource(ctx, tag.ID, tagSource.ID))
	stored, err = env.db.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Profile.Sources)
}

func TestExportImportRoundTrip(t *testing.T) {
	source := newTestEnv(t)
	ctx := context.Background()

	session := signUp(t, source.repo, "walter")
	user := authenticated(t, source.repo, session)

	object, err := user.UploadObject(ctx, bytesReader("exported media"))
	require.NoError(t, err)
	tag, err := user.CreateTag(ctx, "archive")
	require.NoError(t, err)
	post, err := user.CreatePost(ctx, taggedcontent.CreatePostRequest{
		Title:   "exported post",
		Objects: []uuid.UUID{object.ID},
		Tags:    []uuid.UUID{tag.ID},
	})
	require.NoError(t, err)

	// Profile links on the user and the tag share one (scheme, host) site.
	_, err = user.AddSource(ctx, "https://example.com/walter", uuid.Nil)
	require.NoError(t, err)
	_, err = user.AddTagSource(ctx, tag.ID, "https://example.com/archive", uuid.Nil)
	require.NoError(t, err)

	require.NoError(t, source.repo.GrantAdmin(ctx, session.UserID))
	sourceAdmin, err := source.repo.Admin(ctx, session.Token)
	require.NoError(t, err)

	data, err := sourceAdmin.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, taggedcontent.ExportVersion, data.Version)
	require.Len(t, data.Users, 1)
	assert.NotEmpty(t, data.Users[0].PasswordHash)

	// A repository that already holds an account refuses the import.
	occupied := newTestEnv(t)
	signUp(t, occupied.repo, "resident")
	err = occupied.repo.Import(ctx, data, source.store)
	assert.True(t, taggedcontent.IsInvalidInput(err))

	// A fresh repository accepts it, pulling object data from the source
	// object store.
	target := newTestEnv(t)
	require.NoError(t, target.repo.Import(ctx, data, source.store))

	imported, err := target.db.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "exported post", imported.Title)
	assert.Equal(t, []uuid.UUID{object.ID}, imported.Objects)

	importedTag, err := target.db.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "archive", importedTag.Profile.Name)

	// Profile sources are re-materialized through their owning site;
	// identities are reassigned but the links survive.
	importedUser, err := target.db.GetUser(ctx, session.UserID)
	require.NoError(t, err)
	require.Len(t, importedUser.Profile.Sources, 1)
	assert.Equal(t, "https://example.com/walter", importedUser.Profile.Sources[0].URL)
	require.Len(t, importedTag.Profile.Sources, 1)
	assert.Equal(t, "https://example.com/archive", importedTag.Profile.Sources[0].URL)

	_, blob, err := target.store.GetBytes(ctx, object.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("exported media"), blob)

	// The imported account can log in with its original password.
	imported2, err := target.repo.Authenticate(ctx, taggedcontent.Login{
		Email:    "walter@example.com",
		Password: "password-walter",
	})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, imported2.UserID)
}

func bytesReader(s string) io.Reader { return strings.NewReader(s) }
