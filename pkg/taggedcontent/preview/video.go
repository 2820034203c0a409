package preview

import (
	"context"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// generateVideoPreview derives a poster frame for video objects. Frame
// extraction needs a transcoder, which this build does not carry, so video
// objects are left without a preview.
func (p *Pipeline) generateVideoPreview(ctx context.Context, object *taggedcontent.Object) ([]byte, error) {
	return nil, nil
}
