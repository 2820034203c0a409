package memory_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
	"github.com/tendant/tagged-content/pkg/taggedcontent/repo/memory"
)

func createUser(t *testing.T, db *memory.Database, name string) *taggedcontent.User {
	t.Helper()
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	user, err := tx.CreateUser(ctx, name, name+"@example.com", "hash-"+name)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return user
}

func TestCreateUserUniqueness(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	createUser(t, db, "walter")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.CreateUser(ctx, "other", "walter@example.com", "hash")
	assert.True(t, taggedcontent.IsAlreadyExists(err))

	_, err = tx.CreateUser(ctx, "walter", "fresh@example.com", "hash")
	assert.True(t, taggedcontent.IsAlreadyExists(err))
}

func TestAliasCollidesWithPrimaryName(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	createUser(t, db, "walter")
	second := createUser(t, db, "jesse")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	// An alias must not shadow anyone's primary name, including the
	// holder's own.
	err = tx.AddUserAlias(ctx, second.ID, "walter")
	assert.True(t, taggedcontent.IsAlreadyExists(err))

	assert.NoError(t, tx.AddUserAlias(ctx, second.ID, "cap'n cook"))
}

func TestGetUserPassword(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	user := createUser(t, db, "walter")

	password, err := db.GetUserPassword(ctx, "walter@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, password.UserID)
	assert.Equal(t, "hash-walter", password.Hash)

	_, err = db.GetUserPassword(ctx, "nobody@example.com")
	assert.True(t, taggedcontent.IsNotFound(err))
}

func TestTagNameUniqueness(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	creator := createUser(t, db, "walter")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.CreateTag(ctx, "chemistry", creator.ID)
	require.NoError(t, err)
	_, err = tx.CreateTag(ctx, "chemistry", creator.ID)
	assert.True(t, taggedcontent.IsAlreadyExists(err))
	require.NoError(t, tx.Commit(ctx))
}

func TestPostReferencesValidated(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = tx.CreatePost(ctx, &taggedcontent.Post{
		ID:      uuid.New(),
		Objects: []uuid.UUID{uuid.New()},
	})
	assert.True(t, taggedcontent.IsNotFound(err))

	err = tx.CreatePost(ctx, &taggedcontent.Post{
		ID:   uuid.New(),
		Tags: []uuid.UUID{uuid.New()},
	})
	assert.True(t, taggedcontent.IsNotFound(err))
}

func TestDeleteTagDetachesPosts(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	creator := createUser(t, db, "walter")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	tag, err := tx.CreateTag(ctx, "ephemeral", creator.ID)
	require.NoError(t, err)
	postID := uuid.New()
	require.NoError(t, tx.CreatePost(ctx, &taggedcontent.Post{
		ID:   postID,
		Tags: []uuid.UUID{tag.ID},
	}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteTag(ctx, tag.ID))
	require.NoError(t, tx.Commit(ctx))

	post, err := db.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Empty(t, post.Tags)
}

func TestPruneObjectsReclaimsPreviews(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	objectID := uuid.New()
	previewID := uuid.New()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureObject(ctx, &taggedcontent.Object{ID: objectID}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, db.SetObjectPreview(ctx, objectID, previewID))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	pruned, err := tx.PruneObjects(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	// The unreferenced object goes, and its preview blob goes with it.
	assert.Contains(t, pruned, objectID)
	assert.Contains(t, pruned, previewID)
}

func TestPruneObjectsKeepsSharedPreviews(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	keptID := uuid.New()
	orphanID := uuid.New()
	previewID := uuid.New()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureObject(ctx, &taggedcontent.Object{ID: keptID}))
	require.NoError(t, tx.EnsureObject(ctx, &taggedcontent.Object{ID: orphanID}))
	require.NoError(t, tx.CreatePost(ctx, &taggedcontent.Post{
		ID: uuid.New(), Objects: []uuid.UUID{keptID},
	}))
	require.NoError(t, tx.Commit(ctx))

	// Content addressing can hand two parents the same preview blob.
	require.NoError(t, db.SetObjectPreview(ctx, keptID, previewID))
	require.NoError(t, db.SetObjectPreview(ctx, orphanID, previewID))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	pruned, err := tx.PruneObjects(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Contains(t, pruned, orphanID)
	assert.NotContains(t, pruned, keptID)
	// The surviving parent still needs the shared preview blob.
	assert.NotContains(t, pruned, previewID)
}

func TestPruneStaleDrafts(t *testing.T) {
	db := memory.New()
	db.DraftRetention = time.Hour
	ctx := context.Background()

	staleID := uuid.New()
	freshID := uuid.New()
	liveID := uuid.New()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, tx.CreatePost(ctx, &taggedcontent.Post{
		ID: staleID, Draft: true, CreatedAt: old, ModifiedAt: old,
	}))
	now := time.Now().UTC()
	require.NoError(t, tx.CreatePost(ctx, &taggedcontent.Post{
		ID: freshID, Draft: true, CreatedAt: now, ModifiedAt: now,
	}))
	require.NoError(t, tx.CreatePost(ctx, &taggedcontent.Post{
		ID: liveID, CreatedAt: old, ModifiedAt: old,
	}))
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, db.PruneStale(ctx))

	_, err = db.GetPost(ctx, staleID)
	assert.True(t, taggedcontent.IsNotFound(err))

	// Recent drafts and published posts are untouched.
	_, err = db.GetPost(ctx, freshID)
	assert.NoError(t, err)
	_, err = db.GetPost(ctx, liveID)
	assert.NoError(t, err)
}

func TestImportRequiresEmptyDatabase(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	createUser(t, db, "resident")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = tx.Import(ctx, &taggedcontent.ExportData{Version: taggedcontent.ExportVersion})
	assert.True(t, taggedcontent.IsInvalidInput(err))
}

func TestDumpAndRestore(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	user := createUser(t, db, "walter")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	tag, err := tx.CreateTag(ctx, "archived", user.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, db.Dump(ctx, path))

	restored := memory.New()
	require.NoError(t, restored.Restore(ctx, path))

	gotUser, err := restored.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "walter", gotUser.Profile.Name)

	gotTag, err := restored.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "archived", gotTag.Profile.Name)

	password, err := restored.GetUserPassword(ctx, "walter@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-walter", password.Hash)
}

func TestGetReturnsCopies(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	user := createUser(t, db, "walter")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.AddUserAlias(ctx, user.ID, "heisenberg"))
	require.NoError(t, tx.Commit(ctx))

	first, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	first.Profile.Aliases[0] = "mutated"

	second, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"heisenberg"}, second.Profile.Aliases)
}
