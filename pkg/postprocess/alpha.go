package postprocess

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/transform"

	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/tracer"
)

// AlphaChannel computes a per-pixel coverage mask by firing one primary
// ray per quadrant of a 2x2 rotated-grid sub-pixel pattern (4 taps per
// output pixel), then downsampling that 2x-supersampled mask with
// bild/transform's box filter rather than a hand-rolled averaging loop
// (SPEC_FULL.md §4.9). A ray that escapes the scene contributes 0; a ray
// that hits geometry contributes 1.
func AlphaChannel(cam *camera.Camera, world *tracer.World, width, height int) []float64 {
	const tMax = 1e6
	superW, superH := width*2, height*2
	mask := image.NewGray16(image.Rect(0, 0, superW, superH))

	// Rotated-grid offsets within each output pixel's 2x2 supersample
	// block, matching a standard 4-tap RGSS pattern.
	offsets := [4][2]float64{{0.125, 0.375}, {0.375, 0.875}, {0.625, 0.125}, {0.875, 0.625}}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for t, off := range offsets {
				u := (float64(x) + off[0]) / float64(width)
				v := (float64(y) + off[1]) / float64(height)
				ray := cam.ViewRay(u, v, nullSampler{})

				var value uint16
				if world.Occluded(ray, tMax) {
					value = 0xFFFF
				}
				sx, sy := x*2+t%2, y*2+t/2
				mask.SetGray16(sx, sy, color.Gray16{Y: value})
			}
		}
	}

	downsampled := transform.Resize(mask, width, height, transform.Box)

	alpha := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(downsampled.At(x, y)).(color.Gray16)
			alpha[y*width+x] = float64(g.Y) / 0xFFFF
		}
	}
	return alpha
}

// nullSampler hands back the middle of the sampling domain, which puts
// the thin-lens sample at the lens center (no jitter) — alpha coverage
// only needs the primary ray's direction, not a noisy sample.
type nullSampler struct{}

func (nullSampler) Get1D() float64  { return 0.5 }
func (nullSampler) Get2D() core.Vec2 { return core.NewVec2(0.5, 0.5) }
