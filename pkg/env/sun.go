// Package env models the scene's distant light sources: the sun disc, the
// sky dome, volumetric fog blending, and a coarse emitter-importance grid
// over the voxel field's own light-emitting blocks.
package env

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// Sun is a directional light sampled as a small disc at infinite
// distance, mirroring an area light's Sample/PDF/Emit shape but over a
// fixed solid angle rather than a finite surface.
type Sun struct {
	Direction     core.Vec3 // points from the scene toward the sun
	Radiance      core.Vec3
	AngularRadius float64 // radians
	cosThetaMax   float64
}

// NewSun creates a sun light. AngularRadius is in radians (~0.00465 for
// Earth's sun as seen from its surface).
func NewSun(direction core.Vec3, radiance core.Vec3, angularRadius float64) *Sun {
	return &Sun{
		Direction:     direction.Normalize(),
		Radiance:      radiance,
		AngularRadius: angularRadius,
		cosThetaMax:   math.Cos(angularRadius),
	}
}

// SampleDisc draws a direction uniformly over the sun's disc and returns
// it with the (constant) solid-angle PDF of that cone.
func (s *Sun) SampleDisc(u core.Vec2) (direction core.Vec3, pdf float64) {
	dir := core.SampleCone(s.Direction, s.cosThetaMax, u)
	return dir, core.ConePDF(s.cosThetaMax)
}

// PDF returns the solid-angle PDF of sampling direction via SampleDisc —
// zero outside the disc.
func (s *Sun) PDF(direction core.Vec3) float64 {
	if direction.Normalize().Dot(s.Direction) < s.cosThetaMax {
		return 0
	}
	return core.ConePDF(s.cosThetaMax)
}

// Visible reports whether direction falls within the sun's disc, used by
// the path tracer to add direct emission when a BRDF sample happens to
// land on the sun without an explicit light sample.
func (s *Sun) Visible(direction core.Vec3) bool {
	return direction.Normalize().Dot(s.Direction) >= s.cosThetaMax
}
