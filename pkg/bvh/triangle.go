// Package bvh implements the binary bounding-volume hierarchy over the
// scene's triangle-mesh entities: surface-area-weighted midpoint splitting
// at build time, entry-time-ordered traversal at query time.
package bvh

import (
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

// Primitive is anything the BVH can hold at a leaf: a closest-hit query and
// a cached bounding box.
type Primitive interface {
	Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool)
	BoundingBox() core.AABB
}

// Triangle is a single triangle-mesh primitive, intersected with the
// Möller-Trumbore algorithm.
type Triangle struct {
	V0, V1, V2 core.Vec3
	UV0        core.Vec2
	UV1        core.Vec2
	UV2        core.Vec2
	Material   *material.Material
	normal     core.Vec3
	bbox       core.AABB
}

// NewTriangle creates a triangle, precomputing its face normal and
// bounding box.
func NewTriangle(v0, v1, v2 core.Vec3, mat *material.Material) *Triangle {
	t := &Triangle{V0: v0, V1: v1, V2: v2, Material: mat}
	t.normal = v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize()
	t.bbox = core.NewAABBFromPoints(v0, v1, v2)
	return t
}

// interpolateUV barycentrically interpolates the triangle's per-vertex UVs.
func (t *Triangle) interpolateUV(u, v float64) core.Vec2 {
	w := 1 - u - v
	return core.NewVec2(
		w*t.UV0.X+u*t.UV1.X+v*t.UV2.X,
		w*t.UV0.Y+u*t.UV1.Y+v*t.UV2.Y,
	)
}

// Hit implements Primitive via the Möller-Trumbore ray-triangle test.
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	const epsilon = 1e-8

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return nil, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return nil, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return nil, false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return nil, false
	}

	hit := &material.SurfaceInteraction{
		T:        tParam,
		Point:    ray.At(tParam),
		UV:       t.interpolateUV(u, v),
		Material: t.Material,
	}
	hit.SetFaceNormal(ray, t.normal)
	return hit, true
}

// BoundingBox implements Primitive.
func (t *Triangle) BoundingBox() core.AABB { return t.bbox }
