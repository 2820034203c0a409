// Package memory provides an in-memory SearchIndex for tests and
// single-process development setups.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Index implements taggedcontent.SearchIndex with simple substring
// matching over registered names.
type Index struct {
	mu      sync.RWMutex
	created bool
	users   map[uuid.UUID][]string
	tags    map[uuid.UUID][]string
}

func New() *Index {
	return &Index{
		created: true,
		users:   make(map[uuid.UUID][]string),
		tags:    make(map[uuid.UUID][]string),
	}
}

func (i *Index) AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.users[id] = append(i.users[id], alias)
	return nil
}

func (i *Index) AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tags[id] = append(i.tags[id], alias)
	return nil
}

func (i *Index) DeleteIndices(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.users = make(map[uuid.UUID][]string)
	i.tags = make(map[uuid.UUID][]string)
	i.created = false
	return nil
}

func (i *Index) CreateIndices(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.created = true
	return nil
}

// FindUsers returns users with a registered name containing the query.
func (i *Index) FindUsers(query string) []uuid.UUID {
	return find(&i.mu, i.users, query)
}

// FindTags returns tags with a registered name containing the query.
func (i *Index) FindTags(query string) []uuid.UUID {
	return find(&i.mu, i.tags, query)
}

func find(mu *sync.RWMutex, entries map[uuid.UUID][]string, query string) []uuid.UUID {
	mu.RLock()
	defer mu.RUnlock()

	query = strings.ToLower(query)
	var ids []uuid.UUID
	for id, names := range entries {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), query) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}
