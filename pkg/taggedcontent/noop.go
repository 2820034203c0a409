package taggedcontent

import (
	"context"

	"github.com/google/uuid"
)

// NoopSearchIndex is a no-operation implementation of SearchIndex, used
// when no index is configured.
type NoopSearchIndex struct{}

// NewNoopSearchIndex creates a new no-operation search index.
func NewNoopSearchIndex() SearchIndex {
	return &NoopSearchIndex{}
}

func (n *NoopSearchIndex) AddUserAlias(ctx context.Context, id uuid.UUID, alias string) error {
	return nil
}

func (n *NoopSearchIndex) AddTagAlias(ctx context.Context, id uuid.UUID, alias string) error {
	return nil
}

func (n *NoopSearchIndex) DeleteIndices(ctx context.Context) error { return nil }

func (n *NoopSearchIndex) CreateIndices(ctx context.Context) error { return nil }

// NoopPreviewGenerator discards every dispatched object, leaving uploads
// without previews.
type NoopPreviewGenerator struct{}

// NewNoopPreviewGenerator creates a new no-operation preview generator.
func NewNoopPreviewGenerator() PreviewGenerator {
	return &NoopPreviewGenerator{}
}

func (n *NoopPreviewGenerator) Dispatch(object Object) {}

func (n *NoopPreviewGenerator) Close() {}
