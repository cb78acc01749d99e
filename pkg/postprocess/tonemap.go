// Package postprocess turns accumulated sample-buffer means into display
// or storage-ready pixels: tonemap operators, NaN/Inf clamping, and
// alpha-channel supersampling for panoramic/transparent PNG export.
package postprocess

import (
	"image/color"
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// Operator is a tonemap curve applied independently per channel.
type Operator int

const (
	Gamma Operator = iota
	Filmic
	ACES
)

// Apply runs op over a linear-radiance mean, clamping any non-finite
// result to zero per spec.md §4.3's numeric policy, extended to the
// tonemap stage by SPEC_FULL.md §4.9.
func Apply(op Operator, mean core.Vec3, gamma float64) core.Vec3 {
	var out core.Vec3
	switch op {
	case Filmic:
		out = core.NewVec3(uncharted2(mean.X), uncharted2(mean.Y), uncharted2(mean.Z))
	case ACES:
		out = core.NewVec3(acesApprox(mean.X), acesApprox(mean.Y), acesApprox(mean.Z))
	default:
		if gamma <= 0 {
			gamma = 2.2
		}
		inv := 1.0 / gamma
		out = core.NewVec3(gammaCorrect(mean.X, inv), gammaCorrect(mean.Y, inv), gammaCorrect(mean.Z, inv))
	}
	return out.ClampFinite()
}

// ToRGBA quantizes a tonemapped (already [0,1]-ish) color to 8-bit sRGB,
// clamping out-of-range channels rather than wrapping.
func ToRGBA(v core.Vec3, alpha float64) color.RGBA {
	return color.RGBA{
		R: toByte(v.X), G: toByte(v.Y), B: toByte(v.Z), A: toByte(alpha),
	}
}

// ToFloat32 converts a tonemapped color to the float32 triple the
// TIFF-32/PFM writers expect; unlike ToRGBA, it does not clamp or
// quantize, since those formats carry the full linear radiance value.
func ToFloat32(v core.Vec3) (r, g, b float32) {
	return float32(v.X), float32(v.Y), float32(v.Z)
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func gammaCorrect(v, invGamma float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Pow(v, invGamma)
}

// uncharted2 implements the Uncharted2 filmic curve (Hable 2010), with
// the standard exposure-bias-corrected white point normalization.
func uncharted2(x float64) float64 {
	const (
		a = 0.15
		b = 0.50
		c = 0.10
		d = 0.20
		e = 0.02
		f = 0.30
		w = 11.2
	)
	curve := func(v float64) float64 {
		return ((v*(a*v+c*b)+d*e)/(v*(a*v+b)+d*f)) - e/f
	}
	return curve(x) / curve(w)
}

// acesApprox implements the Narkowicz ACES filmic approximation.
func acesApprox(x float64) float64 {
	const (
		a = 2.51
		b = 0.03
		c = 2.43
		d = 0.59
		e = 0.14
	)
	num := x * (a*x + b)
	den := x*(c*x+d) + e
	if den == 0 {
		return 0
	}
	v := num / den
	return math.Max(0, math.Min(1, v))
}
