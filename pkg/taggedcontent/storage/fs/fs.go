// Package fs provides a filesystem-backed object store. Blobs are laid out
// under a base directory, sharded by the first byte of their identity.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// Config options for the filesystem store.
type Config struct {
	BaseDir string // Base directory for storing blobs
}

// Store is a filesystem implementation of taggedcontent.ObjectStore.
type Store struct {
	baseDir string
}

// New creates a filesystem store rooted at the configured base directory,
// creating it when absent.
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{baseDir: config.BaseDir}, nil
}

func (s *Store) path(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(s.baseDir, name[:2], name)
}

func (s *Store) AddBytes(ctx context.Context, data []byte) (*taggedcontent.Object, error) {
	id := taggedcontent.ObjectID(data)
	mediaType := taggedcontent.DetectMediaType(data)
	object := &taggedcontent.Object{ID: id, MediaType: mediaType, Size: int64(len(data))}

	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return object, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to write object %s: %w", id, err)
	}
	return object, nil
}

func (s *Store) AddStream(ctx context.Context, r io.Reader) (*taggedcontent.Object, error) {
	// The identity is only known once the whole stream has been hashed, so
	// spool into a temporary file first.
	tmp, err := os.CreateTemp(s.baseDir, "incoming-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	digest := taggedcontent.NewObjectDigest()
	size, err := io.Copy(io.MultiWriter(tmp, digest), r)
	if err != nil {
		return nil, err
	}
	id := taggedcontent.ObjectIDFromDigest(digest)

	head := make([]byte, 512)
	n, err := tmp.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	mediaType := taggedcontent.DetectMediaType(head[:n])
	object := &taggedcontent.Object{ID: id, MediaType: mediaType, Size: size}

	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return object, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to place object %s: %w", id, err)
	}
	return object, nil
}

func (s *Store) GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	path := s.path(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, taggedcontent.NotFound("object", id)
		}
		return nil, err
	}

	mediaType, err := sniffFile(path)
	if err != nil {
		return nil, err
	}
	return &taggedcontent.Object{ID: id, MediaType: mediaType, Size: info.Size()}, nil
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
	object, err := s.GetObject(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, nil, err
	}
	return object, data, nil
}

func (s *Store) GetStream(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, io.ReadCloser, error) {
	object, err := s.GetObject(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, taggedcontent.NotFound("object", id)
		}
		return nil, nil, err
	}
	return object, f, nil
}

func (s *Store) RemoveBatch(ctx context.Context, ids []uuid.UUID) (*taggedcontent.RemoveResult, error) {
	result := &taggedcontent.RemoveResult{}
	for _, id := range ids {
		path := s.path(id)

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			return result, fmt.Errorf("failed to remove object %s: %w", id, err)
		}
		result.Removed = append(result.Removed, id)
		result.SpaceFreed += info.Size()
	}
	return result, nil
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return taggedcontent.DetectMediaType(head[:n]), nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
