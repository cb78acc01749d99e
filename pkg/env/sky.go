package env

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// SkyKind selects the background emission function.
type SkyKind int

const (
	SkyGradient SkyKind = iota
	SkyUniform
)

// Sky is the scene's background: a gradient or uniform dome, with
// distance-independent "sky fog" mixed in by ray direction and
// volumetric fog mixed in by travel distance.
type Sky struct {
	Kind        SkyKind
	TopColor    core.Vec3
	BottomColor core.Vec3
	Uniform     core.Vec3

	FogColor       core.Vec3
	FogDensity     float64 // volumetric in-scattering density, 1/world-unit
	SkyFogDensity  float64 // directional haze blended into the miss color
}

// Emit returns the background radiance for a ray that escaped the scene,
// blending the base sky color with directional sky fog per the mix rule
// mix(sky, fog, skyFogDensity * (1 - max(0, d.y))).
func (s *Sky) Emit(direction core.Vec3) core.Vec3 {
	base := s.baseColor(direction)
	if s.SkyFogDensity <= 0 {
		return base
	}
	d := direction.Normalize()
	t := s.SkyFogDensity * (1 - math.Max(0, d.Y))
	t = math.Min(1, math.Max(0, t))
	return base.Lerp(s.FogColor, t)
}

func (s *Sky) baseColor(direction core.Vec3) core.Vec3 {
	if s.Kind == SkyUniform {
		return s.Uniform
	}
	d := direction.Normalize()
	t := 0.5 * (d.Y + 1.0)
	return s.BottomColor.Lerp(s.TopColor, t)
}

// FreeFlightSample draws a free-flight distance for volumetric fog
// scattering along a ray segment of length segmentLength. ok is false
// when FogDensity is zero or the sampled distance exceeds the segment,
// meaning no scattering event occurs before the next surface.
func (s *Sky) FreeFlightSample(segmentLength float64, xi float64) (distance float64, ok bool) {
	if s.FogDensity <= 0 {
		return 0, false
	}
	d := core.FreeFlightDistance(s.FogDensity, xi)
	if d >= segmentLength {
		return 0, false
	}
	return d, true
}
