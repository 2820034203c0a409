// Package preview derives lightweight preview blobs for newly stored media
// objects without blocking the request path that stored them.
//
// Work is dispatched onto a fixed-size worker pool fed by a bounded queue,
// so bursty uploads cannot spawn unbounded goroutines. Generation is
// idempotent: an object that already has a preview is a no-op.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// Recorder is the slice of the database the pipeline needs: reading an
// object row and recording its derived preview.
type Recorder interface {
	GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error)
	SetObjectPreview(ctx context.Context, objectID, previewID uuid.UUID) error
}

// Pipeline generates previews out of band. It implements
// taggedcontent.PreviewGenerator.
type Pipeline struct {
	store taggedcontent.ObjectStore
	db    Recorder
	log   *slog.Logger

	queue chan taggedcontent.Object
	wg    sync.WaitGroup

	// mu serializes sends against Close, so a request that races shutdown
	// is dropped instead of hitting a closed channel.
	mu     sync.Mutex
	closed bool
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	workers   int
	queueSize int
	logger    *slog.Logger
}

// WithWorkers sets the number of concurrent generation workers.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueueSize sets the dispatch queue capacity. Dispatch blocks once the
// queue is full, bounding memory under upload bursts.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithLogger sets the logger for generation failures.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// New creates a Pipeline and starts its workers.
func New(store taggedcontent.ObjectStore, db Recorder, opts ...Option) *Pipeline {
	o := options{workers: 4, queueSize: 64, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		store: store,
		db:    db,
		log:   o.logger,
		queue: make(chan taggedcontent.Object, o.queueSize),
	}

	for i := 0; i < o.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Dispatch queues an object for preview derivation and returns once the
// object is enqueued. The triggering operation is already complete; a
// failure here never propagates back to it. After Close the object is
// dropped and stays preview-less.
func (p *Pipeline) Dispatch(object taggedcontent.Object) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.queue <- object
}

// Close stops accepting work and waits for in-flight generation to finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for object := range p.queue {
		ctx := context.Background()
		previewID, err := p.Generate(ctx, object.ID)
		if err != nil {
			p.log.Warn("preview generation failed",
				"object", object.ID, "media_type", object.MediaType, "error", err)
			continue
		}
		if previewID != uuid.Nil {
			p.log.Debug("preview generated", "object", object.ID, "preview", previewID)
		}
	}
}

// Generate derives a preview for the given object and records it, returning
// the preview identity or uuid.Nil when the media kind has none. Re-running
// for the same object returns the previously committed preview.
func (p *Pipeline) Generate(ctx context.Context, objectID uuid.UUID) (uuid.UUID, error) {
	object, err := p.db.GetObject(ctx, objectID)
	if err != nil {
		return uuid.Nil, err
	}
	if object.PreviewID != uuid.Nil {
		return object.PreviewID, nil
	}

	var data []byte
	switch mediaKind(object.MediaType) {
	case kindAudio:
		data, err = p.generateAudioPreview(ctx, object)
	case kindImage:
		data, err = p.generateImagePreview(ctx, object)
	case kindVideo:
		data, err = p.generateVideoPreview(ctx, object)
	default:
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate preview for %s object %s: %w",
			object.MediaType, object.ID, err)
	}
	if data == nil {
		return uuid.Nil, nil
	}

	stored, err := p.store.AddBytes(ctx, data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store preview for object %s: %w", object.ID, err)
	}

	if err := p.db.SetObjectPreview(ctx, object.ID, stored.ID); err != nil {
		return uuid.Nil, err
	}
	return stored.ID, nil
}

type kind int

const (
	kindOther kind = iota
	kindAudio
	kindImage
	kindVideo
)

// mediaKind classifies a declared media type by its top-level type.
// Unrecognized types map to kindOther, which produces no preview rather
// than an error.
func mediaKind(mediaType string) kind {
	top, _, _ := strings.Cut(mediaType, "/")
	switch top {
	case "audio":
		return kindAudio
	case "image":
		return kindImage
	case "video":
		return kindVideo
	default:
		return kindOther
	}
}

func (p *Pipeline) fetch(ctx context.Context, object *taggedcontent.Object) (*bytes.Reader, error) {
	_, data, err := p.store.GetBytes(ctx, object.ID)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
