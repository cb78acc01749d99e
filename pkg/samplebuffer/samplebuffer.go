// Package samplebuffer holds the render's accumulated radiance and the
// double-buffered preview framebuffer the UI/monitor reads from.
package samplebuffer

import (
	"image"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// Buffer is the row-major accumulator of summed-but-not-averaged sample
// triples, plus a parallel per-pixel SPP counter. Each pixel is touched
// by exactly one worker per pass, so no intra-pixel lock is required;
// cross-pass visibility is the render manager's pass-epoch barrier.
type Buffer struct {
	Width, Height int
	sums          []core.Vec3
	spp           []uint32
}

// New allocates a zeroed buffer for a width x height image.
func New(width, height int) *Buffer {
	return &Buffer{
		Width: width, Height: height,
		sums: make([]core.Vec3, width*height),
		spp:  make([]uint32, width*height),
	}
}

// Accumulate adds one sample's radiance to pixel i and bumps its SPP
// counter, clamping each NaN/Inf channel to zero before the write per
// the numeric policy (spec.md §4.3); finite channels still accumulate.
func (b *Buffer) Accumulate(i int, sample core.Vec3) {
	finite := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	b.sums[i] = b.sums[i].Add(core.NewVec3(finite(sample.X), finite(sample.Y), finite(sample.Z)))
	b.spp[i]++
}

// Mean returns the display value at pixel i: the accumulated sum divided
// by its SPP count (zero if no samples have landed yet).
func (b *Buffer) Mean(i int) core.Vec3 {
	n := b.spp[i]
	if n == 0 {
		return core.Vec3{}
	}
	return b.sums[i].Multiply(1.0 / float64(n))
}

// SPP returns the sample count at pixel i.
func (b *Buffer) SPP(i int) uint32 { return b.spp[i] }

// Sum returns the raw accumulated sum at pixel i, used by dump
// persistence which stores sums rather than means.
func (b *Buffer) Sum(i int) core.Vec3 { return b.sums[i] }

// SetSum overwrites pixel i's accumulated sum and SPP directly, used when
// loading a dump or merging two buffers.
func (b *Buffer) SetSum(i int, sum core.Vec3, spp uint32) {
	b.sums[i] = sum
	b.spp[i] = spp
}

// Reset zeroes every accumulator and SPP counter, used when the render
// manager consumes a reset flag.
func (b *Buffer) Reset() {
	for i := range b.sums {
		b.sums[i] = core.Vec3{}
		b.spp[i] = 0
	}
}

// Clone deep-copies the buffer — used by Scene.copyState so a restartable
// snapshot never aliases the live accumulator.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height}
	out.sums = append([]core.Vec3(nil), b.sums...)
	out.spp = append([]uint32(nil), b.spp...)
	return out
}

// PreviewFramebuffer is a pair of ARGB bitmaps; only one is ever mutated
// at a time, and a single atomic pointer swap flips which is "front".
type PreviewFramebuffer struct {
	width, height int
	front         atomic.Pointer[[]uint32]
	back          []uint32
}

// NewPreviewFramebuffer allocates both bitmaps for a width x height image.
func NewPreviewFramebuffer(width, height int) *PreviewFramebuffer {
	f := &PreviewFramebuffer{width: width, height: height}
	frontBuf := make([]uint32, width*height)
	f.front.Store(&frontBuf)
	f.back = make([]uint32, width*height)
	return f
}

// SetBack writes one ARGB pixel into the (currently hidden) back buffer.
func (f *PreviewFramebuffer) SetBack(i int, argb uint32) {
	f.back[i] = argb
}

// Swap atomically exposes the back buffer as front, and gives the caller
// the previous front buffer to reuse as the new back buffer.
func (f *PreviewFramebuffer) Swap() {
	newFront := f.back
	oldFront := f.front.Swap(&newFront)
	f.back = *oldFront
}

// Image renders the current front buffer as a standard library image, for
// PNG preview export or websocket broadcast.
func (f *PreviewFramebuffer) Image() *image.RGBA {
	front := *f.front.Load()
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for i, argb := range front {
		a := uint8(argb >> 24)
		r := uint8(argb >> 16)
		g := uint8(argb >> 8)
		b := uint8(argb)
		img.SetRGBA(i%f.width, i/f.width, color.RGBA{R: r, G: g, B: b, A: a})
	}
	return img
}
