package material

import "github.com/voxtrace/voxtrace/pkg/core"

// SurfaceInteraction carries the result of an octree/BVH intersection: the
// hit point, the (already forward-facing) normal, surface UV, the ray
// distance, whether the front face was hit, and the resolved material.
type SurfaceInteraction struct {
	Point     core.Vec3
	Normal    core.Vec3
	UV        core.Vec2
	T         float64
	FrontFace bool
	Material  *Material
}

// SetFaceNormal orients Normal to face the incoming ray and records which
// face was hit.
func (h *SurfaceInteraction) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}
