package samplebuffer

import (
	"math"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
)

func TestBuffer_AccumulateAndMean(t *testing.T) {
	b := New(2, 2)
	b.Accumulate(0, core.NewVec3(1, 1, 1))
	b.Accumulate(0, core.NewVec3(3, 3, 3))

	if got := b.SPP(0); got != 2 {
		t.Fatalf("SPP = %d, want 2", got)
	}
	mean := b.Mean(0)
	want := core.NewVec3(2, 2, 2)
	if mean.Subtract(want).Length() > 1e-9 {
		t.Errorf("Mean = %v, want %v", mean, want)
	}
}

func TestBuffer_ClampsNonFinite(t *testing.T) {
	b := New(1, 1)
	b.Accumulate(0, core.NewVec3(math.NaN(), math.Inf(1), 1))
	sum := b.Sum(0)
	if sum.X != 0 || sum.Y != 0 {
		t.Errorf("expected NaN/Inf contributions clamped to zero, got %v", sum)
	}
	if sum.Z != 1 {
		t.Errorf("expected the finite channel to still accumulate, got %v", sum)
	}
}

func TestBuffer_CloneIsIndependent(t *testing.T) {
	b := New(1, 1)
	b.Accumulate(0, core.NewVec3(1, 1, 1))
	clone := b.Clone()
	clone.Accumulate(0, core.NewVec3(1, 1, 1))

	if b.SPP(0) == clone.SPP(0) {
		t.Errorf("expected clone mutation not to affect the original buffer")
	}
}

func TestBuffer_Reset(t *testing.T) {
	b := New(1, 1)
	b.Accumulate(0, core.NewVec3(1, 1, 1))
	b.Reset()
	if b.SPP(0) != 0 || b.Sum(0) != (core.Vec3{}) {
		t.Errorf("expected Reset to zero both sum and SPP")
	}
}

func TestPreviewFramebuffer_SwapExposesBackBuffer(t *testing.T) {
	f := NewPreviewFramebuffer(2, 1)
	f.SetBack(0, 0xFFFF0000)
	f.SetBack(1, 0xFF00FF00)
	f.Swap()

	img := f.Image()
	r, g, b2, a := img.RGBAAt(0, 0).R, img.RGBAAt(0, 0).G, img.RGBAAt(0, 0).B, img.RGBAAt(0, 0).A
	if a != 0xFF || r != 0xFF || g != 0 || b2 != 0 {
		t.Errorf("expected pixel (0,0) to be opaque red after swap, got r=%d g=%d b=%d a=%d", r, g, b2, a)
	}
}
