// Package postgres implements taggedcontent.Database on PostgreSQL using
// pgx. Schema management lives in maintenance.go.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// DBTX is satisfied by both a pgx pool and a pgx transaction, so read
// helpers work in either context.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Database implements taggedcontent.Database using a pgx connection pool.
type Database struct {
	pool *pgxpool.Pool

	// DraftRetention marks draft posts collectible once unmodified for the
	// given duration. Zero keeps drafts forever.
	DraftRetention time.Duration
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{pool: pool}, nil
}

// NewWithPool wraps an existing connection pool.
func NewWithPool(pool *pgxpool.Pool) *Database {
	return &Database{pool: pool}
}

func (d *Database) Close() { d.pool.Close() }

// handleError converts pgx errors into the repository's error types.
func handleError(operation, entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return taggedcontent.AlreadyExists(entity, constraintIdentifier(pgErr.ConstraintName))
		case "23503": // foreign_key_violation
			return taggedcontent.NotFound(constraintEntity(pgErr.ConstraintName, entity), uuid.Nil)
		}
		return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return taggedcontent.NotFound(entity, uuid.Nil)
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func constraintIdentifier(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "email address"
	case strings.Contains(constraint, "name"):
		return "name"
	default:
		return constraint
	}
}

// constraintEntity names the entity a foreign key violation is about.
// Default constraint names embed the referencing column, such as
// post_objects_post_id_fkey, so the missing row's entity can be read off
// the constraint rather than taken from the caller's label.
func constraintEntity(constraint, fallback string) string {
	columns := []struct {
		column string
		entity string
	}{
		{"related_id", "post"},
		{"post_id", "post"},
		{"tag_id", "tag"},
		{"user_id", "user"},
		{"object_id", "object"},
		{"source_id", "source"},
		{"site_id", "site"},
	}
	for _, c := range columns {
		if strings.Contains(constraint, c.column) {
			return c.entity
		}
	}
	return fallback
}

func notFound(entity string, id uuid.UUID, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return taggedcontent.NotFound(entity, id)
	}
	return err
}

// Begin starts a database transaction.
func (d *Database) Begin(ctx context.Context) (taggedcontent.Tx, error) {
	pgtx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &tx{tx: pgtx}, nil
}

// Reads

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*taggedcontent.User, error) {
	return getUser(ctx, d.pool, id)
}

func getUser(ctx context.Context, db DBTX, id uuid.UUID) (*taggedcontent.User, error) {
	query := `
		SELECT id, name, description, email, admin, created_at
		FROM users WHERE id = $1`

	var user taggedcontent.User
	err := db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Profile.Name, &user.Profile.Description,
		&user.Email, &user.Admin, &user.CreatedAt)
	if err != nil {
		return nil, notFound("user", id, err)
	}

	if user.Profile.Aliases, err = queryStrings(ctx, db,
		`SELECT alias FROM user_aliases WHERE user_id = $1 ORDER BY alias`, id); err != nil {
		return nil, err
	}
	if user.Profile.Sources, err = querySources(ctx, db, `
		SELECT s.id, t.scheme || '://' || t.host || s.resource, s.icon
		FROM sources s
		JOIN sites t ON t.id = s.site_id
		JOIN user_sources us ON us.source_id = s.id
		WHERE us.user_id = $1 ORDER BY s.id`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUserPassword(ctx context.Context, email string) (*taggedcontent.Password, error) {
	query := `SELECT id, password_hash FROM users WHERE email = $1`

	var password taggedcontent.Password
	err := d.pool.QueryRow(ctx, query, email).Scan(&password.UserID, &password.Hash)
	if err != nil {
		return nil, notFound("user", uuid.Nil, err)
	}
	return &password, nil
}

func (d *Database) GetPost(ctx context.Context, id uuid.UUID) (*taggedcontent.Post, error) {
	return getPost(ctx, d.pool, id)
}

func getPost(ctx context.Context, db DBTX, id uuid.UUID) (*taggedcontent.Post, error) {
	query := `
		SELECT id, title, description, draft, created_at, modified_at
		FROM posts WHERE id = $1`

	var post taggedcontent.Post
	err := db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Description,
		&post.Draft, &post.CreatedAt, &post.ModifiedAt)
	if err != nil {
		return nil, notFound("post", id, err)
	}

	if post.Objects, err = queryIDs(ctx, db,
		`SELECT object_id FROM post_objects WHERE post_id = $1 ORDER BY sequence`, id); err != nil {
		return nil, err
	}
	if post.Related, err = queryIDs(ctx, db,
		`SELECT related_id FROM related_posts WHERE post_id = $1`, id); err != nil {
		return nil, err
	}
	if post.Tags, err = queryIDs(ctx, db,
		`SELECT tag_id FROM post_tags WHERE post_id = $1`, id); err != nil {
		return nil, err
	}
	return &post, nil
}

func (d *Database) GetTag(ctx context.Context, id uuid.UUID) (*taggedcontent.Tag, error) {
	return getTag(ctx, d.pool, id)
}

func getTag(ctx context.Context, db DBTX, id uuid.UUID) (*taggedcontent.Tag, error) {
	query := `
		SELECT t.id, t.name, t.description, t.creator, t.created_at,
		       (SELECT count(*) FROM post_tags pt WHERE pt.tag_id = t.id)
		FROM tags t WHERE t.id = $1`

	var tag taggedcontent.Tag
	err := db.QueryRow(ctx, query, id).Scan(
		&tag.ID, &tag.Profile.Name, &tag.Profile.Description,
		&tag.Creator, &tag.CreatedAt, &tag.PostCount)
	if err != nil {
		return nil, notFound("tag", id, err)
	}

	if tag.Profile.Aliases, err = queryStrings(ctx, db,
		`SELECT alias FROM tag_aliases WHERE tag_id = $1 ORDER BY alias`, id); err != nil {
		return nil, err
	}
	if tag.Profile.Sources, err = querySources(ctx, db, `
		SELECT s.id, t.scheme || '://' || t.host || s.resource, s.icon
		FROM sources s
		JOIN sites t ON t.id = s.site_id
		JOIN tag_sources ts ON ts.source_id = s.id
		WHERE ts.tag_id = $1 ORDER BY s.id`, id); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (d *Database) GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	query := `SELECT id, media_type, size, coalesce(preview_id, $2) FROM objects WHERE id = $1`

	var object taggedcontent.Object
	err := d.pool.QueryRow(ctx, query, id, uuid.Nil).Scan(
		&object.ID, &object.MediaType, &object.Size, &object.PreviewID)
	if err != nil {
		return nil, notFound("object", id, err)
	}
	return &object, nil
}

func (d *Database) SetObjectPreview(ctx context.Context, objectID, previewID uuid.UUID) error {
	query := `UPDATE objects SET preview_id = $2 WHERE id = $1`

	tag, err := d.pool.Exec(ctx, query, objectID, previewID)
	if err != nil {
		return handleError("SetObjectPreview", "object", err)
	}
	if tag.RowsAffected() == 0 {
		return taggedcontent.NotFound("object", objectID)
	}
	return nil
}

// PruneStale deletes draft posts unmodified for longer than DraftRetention.
func (d *Database) PruneStale(ctx context.Context) error {
	if d.DraftRetention <= 0 {
		return nil
	}

	query := `DELETE FROM posts WHERE draft AND modified_at < $1`

	if _, err := d.pool.Exec(ctx, query, time.Now().UTC().Add(-d.DraftRetention)); err != nil {
		return handleError("PruneStale", "post", err)
	}
	return nil
}

func (d *Database) Export(ctx context.Context) (*taggedcontent.ExportData, error) {
	data := &taggedcontent.ExportData{Version: taggedcontent.ExportVersion}

	userIDs, err := queryIDs(ctx, d.pool, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		user, err := getUser(ctx, d.pool, id)
		if err != nil {
			return nil, err
		}
		var hash string
		if err := d.pool.QueryRow(ctx,
			`SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash); err != nil {
			return nil, handleError("Export", "user", err)
		}
		data.Users = append(data.Users, taggedcontent.ExportUser{User: *user, PasswordHash: hash})
	}

	tagIDs, err := queryIDs(ctx, d.pool, `SELECT id FROM tags ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, id := range tagIDs {
		tag, err := getTag(ctx, d.pool, id)
		if err != nil {
			return nil, err
		}
		data.Tags = append(data.Tags, *tag)
	}

	postIDs, err := queryIDs(ctx, d.pool, `SELECT id FROM posts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, id := range postIDs {
		post, err := getPost(ctx, d.pool, id)
		if err != nil {
			return nil, err
		}
		data.Posts = append(data.Posts, *post)
	}
	return data, nil
}

// Transaction

type tx struct {
	tx pgx.Tx
}

func (t *tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// Users

func (t *tx) CreateUser(ctx context.Context, name, email, passwordHash string) (*taggedcontent.User, error) {
	query := `
		INSERT INTO users (id, name, description, email, admin, password_hash, created_at)
		VALUES ($1, $2, '', $3, false, $4, $5)
		RETURNING created_at`

	user := taggedcontent.User{
		ID:      uuid.New(),
		Email:   email,
		Profile: taggedcontent.Profile{Name: name},
	}
	err := t.tx.QueryRow(ctx, query,
		user.ID, name, email, passwordHash, time.Now().UTC()).Scan(&user.CreatedAt)
	if err != nil {
		return nil, handleError("CreateUser", "user", err)
	}
	return &user, nil
}

func (t *tx) SetUserName(ctx context.Context, id uuid.UUID, name string) error {
	return t.update(ctx, "user", id,
		`UPDATE users SET name = $2 WHERE id = $1`, id, name)
}

func (t *tx) AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	// Aliases must not collide with any primary name.
	if err := t.checkNameFree(ctx, "users", "user", alias); err != nil {
		return err
	}
	query := `
		INSERT INTO user_aliases (user_id, alias)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, id, alias); err != nil {
		return handleError("AddUserAlias", "user", err)
	}
	return nil
}

func (t *tx) RemoveUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	query := `DELETE FROM user_aliases WHERE user_id = $1 AND alias = $2`

	if _, err := t.tx.Exec(ctx, query, id, alias); err != nil {
		return handleError("RemoveUserAlias", "user", err)
	}
	return nil
}

func (t *tx) SetUserDescription(ctx context.Context, id uuid.UUID, description string) error {
	return t.update(ctx, "user", id,
		`UPDATE users SET description = $2 WHERE id = $1`, id, description)
}

func (t *tx) SetUserEmail(ctx context.Context, id uuid.UUID, email string) error {
	return t.update(ctx, "user", id,
		`UPDATE users SET email = $2 WHERE id = $1`, id, email)
}

func (t *tx) SetUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return t.update(ctx, "user", id,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (t *tx) SetUserAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	return t.update(ctx, "user", id,
		`UPDATE users SET admin = $2 WHERE id = $1`, id, admin)
}

func (t *tx) checkNameFree(ctx context.Context, table, entity, name string) error {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)`, table)

	var taken bool
	if err := t.tx.QueryRow(ctx, query, name).Scan(&taken); err != nil {
		return handleError("checkNameFree", entity, err)
	}
	if taken {
		return taggedcontent.AlreadyExists(entity, fmt.Sprintf("name %q", name))
	}
	return nil
}

// Sites and sources

func (t *tx) GetSite(ctx context.Context, scheme, host string, icon uuid.UUID) (int64, error) {
	query := `
		INSERT INTO sites (scheme, host, icon)
		VALUES ($1, $2, nullif($3, $4))
		ON CONFLICT (scheme, host) DO UPDATE SET scheme = excluded.scheme
		RETURNING id`

	var id int64
	if err := t.tx.QueryRow(ctx, query, scheme, host, icon, uuid.Nil).Scan(&id); err != nil {
		return 0, handleError("GetSite", "site", err)
	}
	return id, nil
}

func (t *tx) CreateSource(ctx context.Context, site int64, resource string, icon uuid.UUID) (*taggedcontent.Source, error) {
	query := `
		INSERT INTO sources (site_id, resource, icon)
		VALUES ($1, $2, nullif($3, $4))
		ON CONFLICT (site_id, resource) DO UPDATE SET resource = excluded.resource
		RETURNING id, coalesce(icon, $4)`

	var source taggedcontent.Source
	err := t.tx.QueryRow(ctx, query, site, resource, icon, uuid.Nil).Scan(
		&source.ID, &source.Icon)
	if err != nil {
		return nil, handleError("CreateSource", "source", err)
	}

	var scheme, host string
	if err := t.tx.QueryRow(ctx,
		`SELECT scheme, host FROM sites WHERE id = $1`, site).Scan(&scheme, &host); err != nil {
		return nil, handleError("CreateSource", "site", err)
	}
	source.URL = scheme + "://" + host + resource
	return &source, nil
}

func (t *tx) LinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error {
	query := `
		INSERT INTO user_sources (user_id, source_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, userID, sourceID); err != nil {
		return handleError("LinkUserSource", "user", err)
	}
	return nil
}

func (t *tx) UnlinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error {
	query := `DELETE FROM user_sources WHERE user_id = $1 AND source_id = $2`

	if _, err := t.tx.Exec(ctx, query, userID, sourceID); err != nil {
		return handleError("UnlinkUserSource", "user", err)
	}
	return nil
}

func (t *tx) LinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error {
	query := `
		INSERT INTO tag_sources (tag_id, source_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, tagID, sourceID); err != nil {
		return handleError("LinkTagSource", "tag", err)
	}
	return nil
}

func (t *tx) UnlinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error {
	query := `DELETE FROM tag_sources WHERE tag_id = $1 AND source_id = $2`

	if _, err := t.tx.Exec(ctx, query, tagID, sourceID); err != nil {
		return handleError("UnlinkTagSource", "tag", err)
	}
	return nil
}

// Posts

func (t *tx) CreatePost(ctx context.Context, post *taggedcontent.Post) error {
	query := `
		INSERT INTO posts (id, title, description, draft, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $5)`

	if _, err := t.tx.Exec(ctx, query,
		post.ID, post.Title, post.Description, post.Draft, post.CreatedAt); err != nil {
		return handleError("CreatePost", "post", err)
	}
	if err := t.appendObjects(ctx, post.ID, post.Objects); err != nil {
		return err
	}
	for _, related := range post.Related {
		if err := t.AddRelatedPost(ctx, post.ID, related); err != nil {
			return err
		}
	}
	for _, tag := range post.Tags {
		if err := t.AddPostTag(ctx, post.ID, tag); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) SetPostTitle(ctx context.Context, id uuid.UUID, title string) error {
	return t.update(ctx, "post", id,
		`UPDATE posts SET title = $2, modified_at = now() WHERE id = $1`, id, title)
}

func (t *tx) SetPostDescription(ctx context.Context, id uuid.UUID, description string) error {
	return t.update(ctx, "post", id,
		`UPDATE posts SET description = $2, modified_at = now() WHERE id = $1`, id, description)
}

func (t *tx) PublishPost(ctx context.Context, id uuid.UUID) error {
	return t.update(ctx, "post", id,
		`UPDATE posts SET draft = false, modified_at = now() WHERE id = $1`, id)
}

func (t *tx) AddPostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	if err := t.appendObjects(ctx, postID, objects); err != nil {
		return err
	}
	return t.touch(ctx, postID)
}

// appendObjects attaches objects after the post's current last position.
func (t *tx) appendObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	query := `
		INSERT INTO post_objects (post_id, object_id, sequence)
		SELECT $1::uuid, $2::uuid, coalesce(max(sequence), 0) + 1
		FROM post_objects WHERE post_id = $1
		ON CONFLICT DO NOTHING`

	for _, id := range objects {
		if _, err := t.tx.Exec(ctx, query, postID, id); err != nil {
			return handleError("AddPostObjects", "object", err)
		}
	}
	return nil
}

func (t *tx) RemovePostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	query := `DELETE FROM post_objects WHERE post_id = $1 AND object_id = any($2)`

	if _, err := t.tx.Exec(ctx, query, postID, objects); err != nil {
		return handleError("RemovePostObjects", "object", err)
	}
	return t.touch(ctx, postID)
}

func (t *tx) AddRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	query := `
		INSERT INTO related_posts (post_id, related_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, postID, related); err != nil {
		return handleError("AddRelatedPost", "post", err)
	}
	return nil
}

func (t *tx) RemoveRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	query := `DELETE FROM related_posts WHERE post_id = $1 AND related_id = $2`

	if _, err := t.tx.Exec(ctx, query, postID, related); err != nil {
		return handleError("RemoveRelatedPost", "post", err)
	}
	return nil
}

func (t *tx) AddPostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	query := `
		INSERT INTO post_tags (post_id, tag_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, postID, tagID); err != nil {
		return handleError("AddPostTag", "tag", err)
	}
	return nil
}

func (t *tx) RemovePostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	query := `DELETE FROM post_tags WHERE post_id = $1 AND tag_id = $2`

	if _, err := t.tx.Exec(ctx, query, postID, tagID); err != nil {
		return handleError("RemovePostTag", "tag", err)
	}
	return nil
}

func (t *tx) DeletePost(ctx context.Context, id uuid.UUID) error {
	return t.update(ctx, "post", id, `DELETE FROM posts WHERE id = $1`, id)
}

func (t *tx) touch(ctx context.Context, postID uuid.UUID) error {
	return t.update(ctx, "post", postID,
		`UPDATE posts SET modified_at = now() WHERE id = $1`, postID)
}

// Tags

func (t *tx) CreateTag(ctx context.Context, name string, creator uuid.UUID) (*taggedcontent.Tag, error) {
	query := `
		INSERT INTO tags (id, name, description, creator, created_at)
		VALUES ($1, $2, '', $3, $4)
		RETURNING created_at`

	tag := taggedcontent.Tag{
		ID:      uuid.New(),
		Profile: taggedcontent.Profile{Name: name},
		Creator: creator,
	}
	err := t.tx.QueryRow(ctx, query, tag.ID, name, creator, time.Now().UTC()).Scan(&tag.CreatedAt)
	if err != nil {
		return nil, handleError("CreateTag", "tag", err)
	}
	return &tag, nil
}

func (t *tx) SetTagName(ctx context.Context, id uuid.UUID, name string) error {
	return t.update(ctx, "tag", id,
		`UPDATE tags SET name = $2 WHERE id = $1`, id, name)
}

func (t *tx) AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	if err := t.checkNameFree(ctx, "tags", "tag", alias); err != nil {
		return err
	}
	query := `
		INSERT INTO tag_aliases (tag_id, alias)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := t.tx.Exec(ctx, query, id, alias); err != nil {
		return handleError("AddTagAlias", "tag", err)
	}
	return nil
}

func (t *tx) RemoveTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	query := `DELETE FROM tag_aliases WHERE tag_id = $1 AND alias = $2`

	if _, err := t.tx.Exec(ctx, query, id, alias); err != nil {
		return handleError("RemoveTagAlias", "tag", err)
	}
	return nil
}

func (t *tx) SetTagDescription(ctx context.Context, id uuid.UUID, description string) error {
	return t.update(ctx, "tag", id,
		`UPDATE tags SET description = $2 WHERE id = $1`, id, description)
}

func (t *tx) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return t.update(ctx, "tag", id, `DELETE FROM tags WHERE id = $1`, id)
}

// Objects

func (t *tx) EnsureObject(ctx context.Context, object *taggedcontent.Object) error {
	query := `
		INSERT INTO objects (id, media_type, size, preview_id)
		VALUES ($1, $2, $3, nullif($4, $5))
		ON CONFLICT (id) DO NOTHING`

	if _, err := t.tx.Exec(ctx, query,
		object.ID, object.MediaType, object.Size, object.PreviewID, uuid.Nil); err != nil {
		return handleError("EnsureObject", "object", err)
	}
	return nil
}

func (t *tx) PruneObjects(ctx context.Context) ([]uuid.UUID, error) {
	// Previews are content-addressed, so one preview blob can be shared by
	// several parent objects. A deleted parent's preview is only returned
	// for store removal when no surviving object still points at it.
	query := `
		WITH referenced AS (
			SELECT object_id AS id FROM post_objects
			UNION
			SELECT o.preview_id FROM objects o
			JOIN post_objects po ON po.object_id = o.id
			WHERE o.preview_id IS NOT NULL
		),
		deleted AS (
			DELETE FROM objects
			WHERE id NOT IN (SELECT id FROM referenced)
			RETURNING id, preview_id
		)
		SELECT d.id,
		       CASE WHEN d.preview_id IN (SELECT id FROM referenced)
		            THEN NULL ELSE d.preview_id END
		FROM deleted d`

	rows, err := t.tx.Query(ctx, query)
	if err != nil {
		return nil, handleError("PruneObjects", "object", err)
	}
	defer rows.Close()

	var pruned []uuid.UUID
	for rows.Next() {
		var (
			id      uuid.UUID
			preview uuid.NullUUID
		)
		if err := rows.Scan(&id, &preview); err != nil {
			return nil, err
		}
		pruned = append(pruned, id)
		// Preview blobs have no row of their own; reclaim them with
		// their parent.
		if preview.Valid {
			pruned = append(pruned, preview.UUID)
		}
	}
	return pruned, rows.Err()
}

// Import

func (t *tx) Import(ctx context.Context, data *taggedcontent.ExportData) error {
	if data.Version != taggedcontent.ExportVersion {
		return taggedcontent.InvalidInput(fmt.Sprintf("unsupported export version %d", data.Version))
	}

	var occupied bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users)
		    OR EXISTS (SELECT 1 FROM tags)
		    OR EXISTS (SELECT 1 FROM posts)`).Scan(&occupied)
	if err != nil {
		return handleError("Import", "repository", err)
	}
	if occupied {
		return taggedcontent.InvalidInput("import requires an empty repository")
	}

	for _, user := range data.Users {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO users (id, name, description, email, admin, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Profile.Name, user.Profile.Description,
			user.Email, user.Admin, user.PasswordHash, user.CreatedAt)
		if err != nil {
			return handleError("Import", "user", err)
		}
		for _, alias := range user.Profile.Aliases {
			if err := t.AddUserAlias(ctx, user.ID, alias); err != nil {
				return err
			}
		}
	}

	for _, tag := range data.Tags {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO tags (id, name, description, creator, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			tag.ID, tag.Profile.Name, tag.Profile.Description, tag.Creator, tag.CreatedAt)
		if err != nil {
			return handleError("Import", "tag", err)
		}
		for _, alias := range tag.Profile.Aliases {
			if err := t.AddTagAlias(ctx, tag.ID, alias); err != nil {
				return err
			}
		}
	}

	for _, post := range data.Posts {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO posts (id, title, description, draft, created_at, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			post.ID, post.Title, post.Description, post.Draft, post.CreatedAt, post.ModifiedAt)
		if err != nil {
			return handleError("Import", "post", err)
		}
		if err := t.appendObjects(ctx, post.ID, post.Objects); err != nil {
			return err
		}
		for _, tagID := range post.Tags {
			if err := t.AddPostTag(ctx, post.ID, tagID); err != nil {
				return err
			}
		}
	}
	// Related links reference posts in both directions, so they go in
	// after every post row exists.
	for _, post := range data.Posts {
		for _, related := range post.Related {
			if err := t.AddRelatedPost(ctx, post.ID, related); err != nil {
				return err
			}
		}
	}
	return nil
}

// Helpers

func (t *tx) update(ctx context.Context, entity string, id uuid.UUID, query string, args ...interface{}) error {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return handleError("update", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return taggedcontent.NotFound(entity, id)
	}
	return nil
}

func queryIDs(ctx context.Context, db DBTX, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func queryStrings(ctx context.Context, db DBTX, query string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func querySources(ctx context.Context, db DBTX, query string, args ...interface{}) ([]taggedcontent.Source, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []taggedcontent.Source
	for rows.Next() {
		var (
			source taggedcontent.Source
			icon   uuid.NullUUID
		)
		if err := rows.Scan(&source.ID, &source.URL, &icon); err != nil {
			return nil, err
		}
		source.Icon = icon.UUID
		sources = append(sources, source)
	}
	return sources, rows.Err()
}
