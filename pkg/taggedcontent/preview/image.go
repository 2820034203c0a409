package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// thumbnailSize is the bounding box for image previews, in pixels.
const thumbnailSize = 256

func (p *Pipeline) generateImagePreview(ctx context.Context, object *taggedcontent.Object) ([]byte, error) {
	r, err := p.fetch(ctx, object)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", object.MediaType, err)
	}

	thumb := scaleDown(src, thumbnailSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleDown box-filters src to fit within a max*max bounding box while
// preserving aspect ratio. Images already within the box are re-encoded at
// original size.
func scaleDown(src image.Image, max int) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	scale := 1
	for w/(scale+1) >= max || h/(scale+1) >= max {
		scale++
	}

	dw, dh := w/scale, h/scale
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var r, g, b, a uint32
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					sr, sg, sb, sa := src.At(bounds.Min.X+x*scale+dx, bounds.Min.Y+y*scale+dy).RGBA()
					r += sr
					g += sg
					b += sb
					a += sa
				}
			}
			n := uint32(scale * scale)
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = uint8(r / n >> 8)
			dst.Pix[i+1] = uint8(g / n >> 8)
			dst.Pix[i+2] = uint8(b / n >> 8)
			dst.Pix[i+3] = uint8(a / n >> 8)
		}
	}
	return dst
}
