// Package blend composites two images into one RGBA raster. It is the
// local counterpart to the generative edit service: a merge costs a credit
// and lands in history exactly like an edit, but is computed here.
package blend

import (
	"fmt"
	"image"
	"image/color"

	"github.com/digkill/aieditor/internal/models"
)

// Merge decodes both blobs, stretches the overlay to the base's exact
// dimensions and composites them with the given mode and opacity. The
// result is a base64 PNG sized to the base image. Inputs are not mutated
// and identical inputs always produce identical bytes.
func Merge(baseBlob, baseMime, overlayBlob, overlayMime string, mode models.BlendMode, opacity float64) (string, error) {
	if opacity < 0 || opacity > 1 {
		return "", fmt.Errorf("opacity %v out of range [0,1]", opacity)
	}

	base, err := Decode(baseBlob, baseMime)
	if err != nil {
		return "", fmt.Errorf("base image: %w", err)
	}
	overlay, err := Decode(overlayBlob, overlayMime)
	if err != nil {
		return "", fmt.Errorf("overlay image: %w", err)
	}

	merged, err := Composite(base, overlay, mode, opacity)
	if err != nil {
		return "", err
	}
	return EncodePNG(merged)
}

// Composite blends overlay onto base. The overlay is resampled to the
// base's bounds first; no aspect ratio is preserved.
func Composite(base, overlay image.Image, mode models.BlendMode, opacity float64) (*image.RGBA, error) {
	bounds := base.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("base image has no pixels")
	}

	scaled := resizeNearest(overlay, w, h)
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b := rgbaAt(base, bounds.Min.X+x, bounds.Min.Y+y)
			o := scaled.RGBAAt(x, y)

			var px color.RGBA
			switch mode {
			case models.BlendOverlay:
				px = blendOverlay(b, o, opacity)
			case models.BlendNormal:
				px = blendNormal(b, o, opacity)
			default:
				return nil, fmt.Errorf("unsupported blend mode: %s", mode)
			}
			out.SetRGBA(x, y, px)
		}
	}
	return out, nil
}

// blendNormal is plain source-over: out = o*a + b*(1-a) per channel.
func blendNormal(b, o color.RGBA, opacity float64) color.RGBA {
	return color.RGBA{
		R: lerp8(b.R, o.R, opacity),
		G: lerp8(b.G, o.G, opacity),
		B: lerp8(b.B, o.B, opacity),
		A: lerp8(b.A, o.A, opacity),
	}
}

// blendOverlay applies the photographic overlay formula per channel, then
// pulls the blended value back toward the base by 1-opacity. Opacity is a
// second compositing pass over the blended result, not part of the
// per-channel formula. Alpha interpolates the same way as normal mode.
func blendOverlay(b, o color.RGBA, opacity float64) color.RGBA {
	blendCh := func(bc, oc uint8) uint8 {
		bf := float64(bc) / 255
		of := float64(oc) / 255
		var r float64
		if bf < 0.5 {
			r = 2 * bf * of
		} else {
			r = 1 - 2*(1-bf)*(1-of)
		}
		return uint8((r*opacity+bf*(1-opacity))*255 + 0.5)
	}
	return color.RGBA{
		R: blendCh(b.R, o.R),
		G: blendCh(b.G, o.G),
		B: blendCh(b.B, o.B),
		A: lerp8(b.A, o.A, opacity),
	}
}

// lerp8 rounds half-up so float noise never truncates an exact value down.
func lerp8(b, o uint8, t float64) uint8 {
	return uint8(float64(o)*t + float64(b)*(1-t) + 0.5)
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

// resizeNearest stretches src to width x height with nearest-neighbor
// sampling, which keeps the output deterministic across runs.
func resizeNearest(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	srcW := b.Dx()
	srcH := b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return dst
	}

	for y := 0; y < height; y++ {
		srcY := b.Min.Y + (y*srcH)/height
		for x := 0; x < width; x++ {
			srcX := b.Min.X + (x*srcW)/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
