// Package memory provides an in-memory Database used in tests and
// single-process development setups. Transactions serialize on one mutex;
// mutations apply in place, so a rollback after partial work is not
// supported the way a real database supports it.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

type userRecord struct {
	user         taggedcontent.User
	passwordHash string
}

type siteRecord struct {
	id     int64
	scheme string
	host   string
	icon   uuid.UUID
}

type sourceRecord struct {
	source taggedcontent.Source
	site   int64
}

// Database is an in-memory implementation of taggedcontent.Database and
// taggedcontent.Maintenance.
type Database struct {
	mu sync.Mutex

	users   map[uuid.UUID]*userRecord
	tags    map[uuid.UUID]*taggedcontent.Tag
	posts   map[uuid.UUID]*taggedcontent.Post
	objects map[uuid.UUID]*taggedcontent.Object
	sites   map[string]*siteRecord
	sources map[int64]*sourceRecord

	nextSite   int64
	nextSource int64

	// DraftRetention marks draft posts collectible once unmodified for the
	// given duration. Zero keeps drafts forever.
	DraftRetention time.Duration
}

// New creates an empty in-memory database.
func New() *Database {
	db := &Database{}
	db.reset()
	return db
}

func (d *Database) reset() {
	d.users = make(map[uuid.UUID]*userRecord)
	d.tags = make(map[uuid.UUID]*taggedcontent.Tag)
	d.posts = make(map[uuid.UUID]*taggedcontent.Post)
	d.objects = make(map[uuid.UUID]*taggedcontent.Object)
	d.sites = make(map[string]*siteRecord)
	d.sources = make(map[int64]*sourceRecord)
	d.nextSite = 0
	d.nextSource = 0
}

// Begin locks the database for the duration of the transaction.
func (d *Database) Begin(ctx context.Context) (taggedcontent.Tx, error) {
	d.mu.Lock()
	return &tx{db: d}, nil
}

func (d *Database) Close() {}

// Reads

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*taggedcontent.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getUser(id)
}

func (d *Database) getUser(id uuid.UUID) (*taggedcontent.User, error) {
	record, ok := d.users[id]
	if !ok {
		return nil, taggedcontent.NotFound("user", id)
	}
	user := copyUser(record.user)
	return &user, nil
}

func (d *Database) GetUserPassword(ctx context.Context, email string) (*taggedcontent.Password, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, record := range d.users {
		if record.user.Email == email {
			return &taggedcontent.Password{UserID: record.user.ID, Hash: record.passwordHash}, nil
		}
	}
	return nil, taggedcontent.NotFound("user", uuid.Nil)
}

func (d *Database) GetPost(ctx context.Context, id uuid.UUID) (*taggedcontent.Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	post, ok := d.posts[id]
	if !ok {
		return nil, taggedcontent.NotFound("post", id)
	}
	result := copyPost(*post)
	return &result, nil
}

func (d *Database) GetTag(ctx context.Context, id uuid.UUID) (*taggedcontent.Tag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag, ok := d.tags[id]
	if !ok {
		return nil, taggedcontent.NotFound("tag", id)
	}
	result := copyTag(*tag)
	result.PostCount = d.postCount(id)
	return &result, nil
}

func (d *Database) postCount(tagID uuid.UUID) int64 {
	var count int64
	for _, post := range d.posts {
		for _, id := range post.Tags {
			if id == tagID {
				count++
				break
			}
		}
	}
	return count
}

func (d *Database) GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	object, ok := d.objects[id]
	if !ok {
		return nil, taggedcontent.NotFound("object", id)
	}
	result := *object
	return &result, nil
}

func (d *Database) SetObjectPreview(ctx context.Context, objectID, previewID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	object, ok := d.objects[objectID]
	if !ok {
		return taggedcontent.NotFound("object", objectID)
	}
	object.PreviewID = previewID
	return nil
}

// PruneStale deletes draft posts unmodified for longer than DraftRetention.
func (d *Database) PruneStale(ctx context.Context) error {
	if d.DraftRetention <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().UTC().Add(-d.DraftRetention)
	for id, post := range d.posts {
		if post.Draft && post.ModifiedAt.Before(cutoff) {
			d.deletePost(id)
		}
	}
	return nil
}

func (d *Database) Export(ctx context.Context) (*taggedcontent.ExportData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.export(), nil
}

func (d *Database) export() *taggedcontent.ExportData {
	data := &taggedcontent.ExportData{Version: taggedcontent.ExportVersion}

	for _, post := range d.posts {
		data.Posts = append(data.Posts, copyPost(*post))
	}
	for id, tag := range d.tags {
		t := copyTag(*tag)
		t.PostCount = d.postCount(id)
		data.Tags = append(data.Tags, t)
	}
	for _, record := range d.users {
		data.Users = append(data.Users, taggedcontent.ExportUser{
			User:         copyUser(record.user),
			PasswordHash: record.passwordHash,
		})
	}

	sort.Slice(data.Posts, func(i, j int) bool { return less(data.Posts[i].ID, data.Posts[j].ID) })
	sort.Slice(data.Tags, func(i, j int) bool { return less(data.Tags[i].ID, data.Tags[j].ID) })
	sort.Slice(data.Users, func(i, j int) bool { return less(data.Users[i].ID, data.Users[j].ID) })
	return data
}

func less(a, b uuid.UUID) bool { return a.String() < b.String() }

// Transaction

type tx struct {
	db   *Database
	done bool
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.db.mu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.db.mu.Unlock()
	return nil
}

// Users

func (t *tx) CreateUser(ctx context.Context, name, email, passwordHash string) (*taggedcontent.User, error) {
	d := t.db

	for _, record := range d.users {
		if record.user.Email == email {
			return nil, taggedcontent.AlreadyExists("user", fmt.Sprintf("email address %q", email))
		}
	}
	if d.userNameTaken(name, uuid.Nil) {
		return nil, taggedcontent.AlreadyExists("user", fmt.Sprintf("name %q", name))
	}

	user := taggedcontent.User{
		ID:        uuid.New(),
		Email:     email,
		Profile:   taggedcontent.Profile{Name: name},
		CreatedAt: time.Now().UTC(),
	}
	d.users[user.ID] = &userRecord{user: user, passwordHash: passwordHash}

	result := copyUser(user)
	return &result, nil
}

// userNameTaken reports whether name is another user's primary name.
func (d *Database) userNameTaken(name string, self uuid.UUID) bool {
	for id, record := range d.users {
		if id != self && record.user.Profile.Name == name {
			return true
		}
	}
	return false
}

func (t *tx) user(id uuid.UUID) (*userRecord, error) {
	record, ok := t.db.users[id]
	if !ok {
		return nil, taggedcontent.NotFound("user", id)
	}
	return record, nil
}

func (t *tx) SetUserName(ctx context.Context, id uuid.UUID, name string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	if t.db.userNameTaken(name, id) {
		return taggedcontent.AlreadyExists("user", fmt.Sprintf("name %q", name))
	}
	record.user.Profile.Name = name
	return nil
}

func (t *tx) AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	// Aliases must not collide with any primary name.
	if t.db.userNameTaken(alias, uuid.Nil) {
		return taggedcontent.AlreadyExists("user", fmt.Sprintf("name %q", alias))
	}
	record.user.Profile.Aliases = addString(record.user.Profile.Aliases, alias)
	return nil
}

func (t *tx) RemoveUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	record.user.Profile.Aliases = removeString(record.user.Profile.Aliases, alias)
	return nil
}

func (t *tx) SetUserDescription(ctx context.Context, id uuid.UUID, description string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	record.user.Profile.Description = description
	return nil
}

func (t *tx) SetUserEmail(ctx context.Context, id uuid.UUID, email string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	for other, r := range t.db.users {
		if other != id && r.user.Email == email {
			return taggedcontent.AlreadyExists("user", fmt.Sprintf("email address %q", email))
		}
	}
	record.user.Email = email
	return nil
}

func (t *tx) SetUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	record.passwordHash = passwordHash
	return nil
}

func (t *tx) SetUserAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	record, err := t.user(id)
	if err != nil {
		return err
	}
	record.user.Admin = admin
	return nil
}

// Sites and sources

func siteKey(scheme, host string) string { return scheme + "://" + host }

func (t *tx) GetSite(ctx context.Context, scheme, host string, icon uuid.UUID) (int64, error) {
	d := t.db

	if site, ok := d.sites[siteKey(scheme, host)]; ok {
		return site.id, nil
	}

	d.nextSite++
	site := &siteRecord{id: d.nextSite, scheme: scheme, host: host, icon: icon}
	d.sites[siteKey(scheme, host)] = site
	return site.id, nil
}

func (t *tx) CreateSource(ctx context.Context, site int64, resource string, icon uuid.UUID) (*taggedcontent.Source, error) {
	d := t.db

	var owner *siteRecord
	for _, s := range d.sites {
		if s.id == site {
			owner = s
			break
		}
	}
	if owner == nil {
		return nil, taggedcontent.NotFound("site", uuid.Nil)
	}

	for _, record := range d.sources {
		if record.site == site && record.source.URL == siteKey(owner.scheme, owner.host)+resource {
			source := record.source
			return &source, nil
		}
	}

	d.nextSource++
	source := taggedcontent.Source{
		ID:   d.nextSource,
		URL:  siteKey(owner.scheme, owner.host) + resource,
		Icon: icon,
	}
	d.sources[source.ID] = &sourceRecord{source: source, site: site}

	result := source
	return &result, nil
}

func (t *tx) source(id int64) (*sourceRecord, error) {
	record, ok := t.db.sources[id]
	if !ok {
		return nil, taggedcontent.NotFound("source", uuid.Nil)
	}
	return record, nil
}

func (t *tx) LinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error {
	record, err := t.user(userID)
	if err != nil {
		return err
	}
	source, err := t.source(sourceID)
	if err != nil {
		return err
	}
	record.user.Profile.Sources = addSource(record.user.Profile.Sources, source.source)
	return nil
}

func (t *tx) UnlinkUserSource(ctx context.Context, userID uuid.UUID, sourceID int64) error {
	record, err := t.user(userID)
	if err != nil {
		return err
	}
	record.user.Profile.Sources = removeSource(record.user.Profile.Sources, sourceID)
	return nil
}

func (t *tx) LinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error {
	tag, err := t.tag(tagID)
	if err != nil {
		return err
	}
	source, err := t.source(sourceID)
	if err != nil {
		return err
	}
	tag.Profile.Sources = addSource(tag.Profile.Sources, source.source)
	return nil
}

func (t *tx) UnlinkTagSource(ctx context.Context, tagID uuid.UUID, sourceID int64) error {
	tag, err := t.tag(tagID)
	if err != nil {
		return err
	}
	tag.Profile.Sources = removeSource(tag.Profile.Sources, sourceID)
	return nil
}

// Posts

func (t *tx) CreatePost(ctx context.Context, post *taggedcontent.Post) error {
	d := t.db

	if _, ok := d.posts[post.ID]; ok {
		return taggedcontent.AlreadyExists("post", post.ID.String())
	}
	for _, id := range post.Objects {
		if _, ok := d.objects[id]; !ok {
			return taggedcontent.NotFound("object", id)
		}
	}
	for _, id := range post.Tags {
		if _, ok := d.tags[id]; !ok {
			return taggedcontent.NotFound("tag", id)
		}
	}
	for _, id := range post.Related {
		if _, ok := d.posts[id]; !ok {
			return taggedcontent.NotFound("post", id)
		}
	}

	stored := copyPost(*post)
	d.posts[post.ID] = &stored
	return nil
}

func (t *tx) post(id uuid.UUID) (*taggedcontent.Post, error) {
	post, ok := t.db.posts[id]
	if !ok {
		return nil, taggedcontent.NotFound("post", id)
	}
	return post, nil
}

func (t *tx) SetPostTitle(ctx context.Context, id uuid.UUID, title string) error {
	post, err := t.post(id)
	if err != nil {
		return err
	}
	post.Title = title
	post.ModifiedAt = time.Now().UTC()
	return nil
}

func (t *tx) SetPostDescription(ctx context.Context, id uuid.UUID, description string) error {
	post, err := t.post(id)
	if err != nil {
		return err
	}
	post.Description = description
	post.ModifiedAt = time.Now().UTC()
	return nil
}

func (t *tx) PublishPost(ctx context.Context, id uuid.UUID) error {
	post, err := t.post(id)
	if err != nil {
		return err
	}
	post.Draft = false
	post.ModifiedAt = time.Now().UTC()
	return nil
}

func (t *tx) AddPostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	for _, id := range objects {
		if _, ok := t.db.objects[id]; !ok {
			return taggedcontent.NotFound("object", id)
		}
	}
	for _, id := range objects {
		if !containsID(post.Objects, id) {
			post.Objects = append(post.Objects, id)
		}
	}
	post.ModifiedAt = time.Now().UTC()
	return nil
}

func (t *tx) RemovePostObjects(ctx context.Context, postID uuid.UUID, objects []uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	for _, id := range objects {
		post.Objects = removeID(post.Objects, id)
	}
	post.ModifiedAt = time.Now().UTC()
	return nil
}

func (t *tx) AddRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	if _, err := t.post(related); err != nil {
		return err
	}
	if !containsID(post.Related, related) {
		post.Related = append(post.Related, related)
	}
	return nil
}

func (t *tx) RemoveRelatedPost(ctx context.Context, postID, related uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	post.Related = removeID(post.Related, related)
	return nil
}

func (t *tx) AddPostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	if _, err := t.tag(tagID); err != nil {
		return err
	}
	if !containsID(post.Tags, tagID) {
		post.Tags = append(post.Tags, tagID)
	}
	return nil
}

func (t *tx) RemovePostTag(ctx context.Context, postID, tagID uuid.UUID) error {
	post, err := t.post(postID)
	if err != nil {
		return err
	}
	post.Tags = removeID(post.Tags, tagID)
	return nil
}

func (t *tx) DeletePost(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.db.posts[id]; !ok {
		return taggedcontent.NotFound("post", id)
	}
	t.db.deletePost(id)
	return nil
}

// deletePost removes the post and detaches references to it from other
// posts. Objects stay; prune reclaims them once unreferenced.
func (d *Database) deletePost(id uuid.UUID) {
	delete(d.posts, id)
	for _, post := range d.posts {
		post.Related = removeID(post.Related, id)
	}
}

// Tags

func (t *tx) CreateTag(ctx context.Context, name string, creator uuid.UUID) (*taggedcontent.Tag, error) {
	d := t.db

	if d.tagNameTaken(name, uuid.Nil) {
		return nil, taggedcontent.AlreadyExists("tag", fmt.Sprintf("name %q", name))
	}

	tag := taggedcontent.Tag{
		ID:        uuid.New(),
		Profile:   taggedcontent.Profile{Name: name},
		Creator:   creator,
		CreatedAt: time.Now().UTC(),
	}
	stored := copyTag(tag)
	d.tags[tag.ID] = &stored

	return &tag, nil
}

func (d *Database) tagNameTaken(name string, self uuid.UUID) bool {
	for id, tag := range d.tags {
		if id != self && tag.Profile.Name == name {
			return true
		}
	}
	return false
}

func (t *tx) tag(id uuid.UUID) (*taggedcontent.Tag, error) {
	tag, ok := t.db.tags[id]
	if !ok {
		return nil, taggedcontent.NotFound("tag", id)
	}
	return tag, nil
}

func (t *tx) SetTagName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := t.tag(id)
	if err != nil {
		return err
	}
	if t.db.tagNameTaken(name, id) {
		return taggedcontent.AlreadyExists("tag", fmt.Sprintf("name %q", name))
	}
	tag.Profile.Name = name
	return nil
}

func (t *tx) AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	tag, err := t.tag(id)
	if err != nil {
		return err
	}
	if t.db.tagNameTaken(alias, uuid.Nil) {
		return taggedcontent.AlreadyExists("tag", fmt.Sprintf("name %q", alias))
	}
	tag.Profile.Aliases = addString(tag.Profile.Aliases, alias)
	return nil
}

func (t *tx) RemoveTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	tag, err := t.tag(id)
	if err != nil {
		return err
	}
	tag.Profile.Aliases = removeString(tag.Profile.Aliases, alias)
	return nil
}

func (t *tx) SetTagDescription(ctx context.Context, id uuid.UUID, description string) error {
	tag, err := t.tag(id)
	if err != nil {
		return err
	}
	tag.Profile.Description = description
	return nil
}

func (t *tx) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.db.tags[id]; !ok {
		return taggedcontent.NotFound("tag", id)
	}
	delete(t.db.tags, id)
	for _, post := range t.db.posts {
		post.Tags = removeID(post.Tags, id)
	}
	return nil
}

// Objects

func (t *tx) EnsureObject(ctx context.Context, object *taggedcontent.Object) error {
	if _, ok := t.db.objects[object.ID]; ok {
		return nil
	}
	stored := *object
	t.db.objects[object.ID] = &stored
	return nil
}

func (t *tx) PruneObjects(ctx context.Context) ([]uuid.UUID, error) {
	d := t.db

	referenced := make(map[uuid.UUID]struct{})
	for _, post := range d.posts {
		for _, id := range post.Objects {
			referenced[id] = struct{}{}
			if object, ok := d.objects[id]; ok && object.PreviewID != uuid.Nil {
				referenced[object.PreviewID] = struct{}{}
			}
		}
	}

	var pruned []uuid.UUID
	for id, object := range d.objects {
		if _, ok := referenced[id]; ok {
			continue
		}
		pruned = append(pruned, id)
		if object.PreviewID != uuid.Nil {
			if _, ok := referenced[object.PreviewID]; !ok {
				pruned = append(pruned, object.PreviewID)
			}
		}
		delete(d.objects, id)
	}
	return pruned, nil
}

// Import

func (t *tx) Import(ctx context.Context, data *taggedcontent.ExportData) error {
	d := t.db

	if len(d.users) > 0 || len(d.tags) > 0 || len(d.posts) > 0 {
		return taggedcontent.InvalidInput("import requires an empty repository")
	}
	if data.Version != taggedcontent.ExportVersion {
		return taggedcontent.InvalidInput(fmt.Sprintf("unsupported export version %d", data.Version))
	}

	for _, user := range data.Users {
		stored := copyUser(user.User)
		// Profile sources are re-materialized by the importer.
		stored.Profile.Sources = nil
		d.users[user.ID] = &userRecord{user: stored, passwordHash: user.PasswordHash}
	}
	for _, tag := range data.Tags {
		stored := copyTag(tag)
		stored.Profile.Sources = nil
		d.tags[tag.ID] = &stored
	}
	for _, post := range data.Posts {
		for _, id := range post.Objects {
			if _, ok := d.objects[id]; !ok {
				return taggedcontent.NotFound("object", id)
			}
		}
		stored := copyPost(post)
		d.posts[post.ID] = &stored
	}
	return nil
}

// Maintenance

func (d *Database) InitSchema(ctx context.Context) error { return nil }

func (d *Database) Migrate(ctx context.Context) error { return nil }

func (d *Database) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}

// Dump writes the full data graph to path as JSON.
func (d *Database) Dump(ctx context.Context, path string) error {
	d.mu.Lock()
	data := d.export()
	d.mu.Unlock()

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// Restore replaces the database contents with a previously dumped graph.
func (d *Database) Restore(ctx context.Context, path string) error {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var data taggedcontent.ExportData
	if err := json.Unmarshal(encoded, &data); err != nil {
		return fmt.Errorf("failed to decode dump: %w", err)
	}

	if err := d.Reset(ctx); err != nil {
		return err
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Restored posts may reference objects the store already holds; row
	// presence is re-established here.
	for _, post := range data.Posts {
		for _, id := range post.Objects {
			if err := tx.EnsureObject(ctx, &taggedcontent.Object{ID: id}); err != nil {
				return err
			}
		}
	}
	if err := tx.Import(ctx, &data); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Helpers

func copyUser(user taggedcontent.User) taggedcontent.User {
	user.Profile = copyProfile(user.Profile)
	return user
}

func copyTag(tag taggedcontent.Tag) taggedcontent.Tag {
	tag.Profile = copyProfile(tag.Profile)
	return tag
}

func copyProfile(profile taggedcontent.Profile) taggedcontent.Profile {
	profile.Aliases = append([]string(nil), profile.Aliases...)
	profile.Sources = append([]taggedcontent.Source(nil), profile.Sources...)
	return profile
}

func copyPost(post taggedcontent.Post) taggedcontent.Post {
	post.Objects = append([]uuid.UUID(nil), post.Objects...)
	post.Related = append([]uuid.UUID(nil), post.Related...)
	post.Tags = append([]uuid.UUID(nil), post.Tags...)
	return post
}

func addString(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

func removeString(values []string, value string) []string {
	result := values[:0]
	for _, v := range values {
		if v != value {
			result = append(result, v)
		}
	}
	return result
}

func addSource(sources []taggedcontent.Source, source taggedcontent.Source) []taggedcontent.Source {
	for _, s := range sources {
		if s.ID == source.ID {
			return sources
		}
	}
	return append(sources, source)
}

func removeSource(sources []taggedcontent.Source, id int64) []taggedcontent.Source {
	result := sources[:0]
	for _, s := range sources {
		if s.ID != id {
			result = append(result, s)
		}
	}
	return result
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	result := ids[:0]
	for _, v := range ids {
		if v != id {
			result = append(result, v)
		}
	}
	return result
}
