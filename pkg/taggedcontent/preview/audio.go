package preview

import (
	"context"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// generateAudioPreview derives a preview for audio objects from embedded
// cover art. No tag parser is wired into this build, so audio objects are
// left without a preview.
func (p *Pipeline) generateAudioPreview(ctx context.Context, object *taggedcontent.Object) ([]byte, error) {
	return nil, nil
}
