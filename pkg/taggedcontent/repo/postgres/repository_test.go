package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

func TestHandleErrorUniqueViolation(t *testing.T) {
	err := handleError("CreateUser", "user", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "users_email_key",
	})
	require.True(t, taggedcontent.IsAlreadyExists(err))
	assert.Contains(t, err.Error(), "email address")

	err = handleError("CreateTag", "tag", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "tags_name_key",
	})
	require.True(t, taggedcontent.IsAlreadyExists(err))
	assert.Contains(t, err.Error(), "name")
}

func TestHandleErrorForeignKeyViolation(t *testing.T) {
	// The missing row's entity is read off the constraint name, not taken
	// from the caller's label: attaching objects to an absent post is a
	// missing post, not a missing object.
	err := handleError("AddPostObjects", "object", &pgconn.PgError{
		Code:           "23503",
		ConstraintName: "post_objects_post_id_fkey",
	})
	require.True(t, taggedcontent.IsNotFound(err))
	assert.Contains(t, err.Error(), "post")

	err = handleError("AddPostObjects", "object", &pgconn.PgError{
		Code:           "23503",
		ConstraintName: "post_objects_object_id_fkey",
	})
	require.True(t, taggedcontent.IsNotFound(err))
	assert.Contains(t, err.Error(), "object")
}

func TestConstraintEntity(t *testing.T) {
	cases := []struct {
		constraint string
		want       string
	}{
		{"post_objects_post_id_fkey", "post"},
		{"post_objects_object_id_fkey", "object"},
		{"related_posts_related_id_fkey", "post"},
		{"post_tags_tag_id_fkey", "tag"},
		{"user_aliases_user_id_fkey", "user"},
		{"user_sources_source_id_fkey", "source"},
		{"sources_site_id_fkey", "site"},
		{"tags_creator_fkey", "fallback"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, constraintEntity(c.constraint, "fallback"), c.constraint)
	}
}

// testDatabase connects to the database named by TEST_DATABASE_URL and
// resets its schema. Tests using it are skipped when no database is
// available.
func testDatabase(t *testing.T) *Database {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := NewMaintenance(dsn).Reset(ctx); err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	db, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPruneObjectsKeepsSharedPreviews(t *testing.T) {
	db := testDatabase(t)
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
