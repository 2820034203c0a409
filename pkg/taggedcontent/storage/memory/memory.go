// Package memory provides an in-memory object store, used in tests and
// single-process development setups.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// Store is an in-memory implementation of taggedcontent.ObjectStore.
type Store struct {
	mu      sync.RWMutex
	objects map[uuid.UUID]entry
}

type entry struct {
	data      []byte
	mediaType string
}

// New creates an empty in-memory object store.
func New() *Store {
	return &Store{objects: make(map[uuid.UUID]entry)}
}

func (s *Store) AddBytes(ctx context.Context, data []byte) (*taggedcontent.Object, error) {
	id := taggedcontent.ObjectID(data)
	mediaType := taggedcontent.DetectMediaType(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[id]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.objects[id] = entry{data: stored, mediaType: mediaType}
	}

	return &taggedcontent.Object{ID: id, MediaType: mediaType, Size: int64(len(data))}, nil
}

func (s *Store) AddStream(ctx context.Context, r io.Reader) (*taggedcontent.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return s.AddBytes(ctx, data)
}

func (s *Store) GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[id]
	if !ok {
		return nil, taggedcontent.NotFound("object", id)
	}
	return &taggedcontent.Object{ID: id, MediaType: e.mediaType, Size: int64(len(e.data))}, nil
}

func (s *Store) GetObjects(ctx context.Context, ids []uuid.UUID) ([]*taggedcontent.Object, error) {
	objects := make([]*taggedcontent.Object, 0, len(ids))
	for _, id := range ids {
		object, err := s.GetObject(ctx, id)
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (s *Store) GetBytes(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[id]
	if !ok {
		return nil, nil, taggedcontent.NotFound("object", id)
	}

	data := make([]byte, len(e.data))
	copy(data, e.data)
	object := &taggedcontent.Object{ID: id, MediaType: e.mediaType, Size: int64(len(e.data))}
	return object, data, nil
}

func (s *Store) GetStream(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, io.ReadCloser, error) {
	object, data, err := s.GetBytes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return object, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) RemoveBatch(ctx context.Context, ids []uuid.UUID) (*taggedcontent.RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &taggedcontent.RemoveResult{}
	for _, id := range ids {
		e, ok := s.objects[id]
		if !ok {
			continue
		}
		delete(s.objects, id)
		result.Removed = append(result.Removed, id)
		result.SpaceFreed += int64(len(e.data))
	}
	return result, nil
}
