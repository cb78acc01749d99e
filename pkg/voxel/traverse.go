package voxel

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

// Hit is the result of a ray traversal: the entered voxel's material, the
// distance along the ray, the face normal (flipped to face the ray), and
// the texel UV on that face.
type Hit struct {
	Distance float64
	Normal   core.Vec3
	UV       core.Vec2
	Material *material.Material
	MaterialID uint32
}

// skipFn decides whether the DDA should keep stepping through a voxel with
// the given material: EnterBlock skips air, ExitWater skips water.
type skipFn func(m *material.Material) bool

// EnterBlock advances ray with a 3D-DDA until it enters the first voxel
// whose material is not air; ExitWater is the variant that skips water
// instead.
func EnterBlock(o Octree, palette *material.Palette, ray core.Ray, tMax float64) (Hit, bool) {
	return traverse(o, palette, ray, tMax, func(m *material.Material) bool {
		return m.Name == "air"
	})
}

// ExitWater advances a ray already inside a water volume until it exits
// into the first non-water voxel.
func ExitWater(o Octree, palette *material.Palette, ray core.Ray, tMax float64) (Hit, bool) {
	return traverse(o, palette, ray, tMax, func(m *material.Material) bool {
		return m.Water
	})
}

// traverse walks the implicit unit-voxel grid at octree scale, stepping
// over voxels whose material satisfies skip, and stops at the first voxel
// it does not skip or when the ray leaves the root cube.
func traverse(o Octree, palette *material.Palette, ray core.Ray, tMax float64, skip skipFn) (Hit, bool) {
	if !ray.Direction.IsFinite() || ray.Direction.LengthSquared() == 0 || !ray.Origin.IsFinite() {
		return Hit{}, false
	}

	size := float64(int(1) << o.Depth())

	// Clip the ray to the root cube [0,size)^3.
	tEntry, tExit, ok := clipToCube(ray, size)
	if !ok || tEntry >= tMax {
		return Hit{}, false
	}
	if tEntry < 0 {
		tEntry = 0
	}
	if tExit > tMax {
		tExit = tMax
	}

	pos := ray.At(tEntry + 1e-6)
	x, y, z := int(math.Floor(pos.X)), int(math.Floor(pos.Y)), int(math.Floor(pos.Z))

	step := [3]int{}
	tDelta := [3]float64{}
	tNext := [3]float64{}
	dir := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	origin := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	cell := [3]int{x, y, z}

	for i := 0; i < 3; i++ {
		if dir[i] > 0 {
			step[i] = 1
			tDelta[i] = 1.0 / dir[i]
			tNext[i] = (float64(cell[i]+1) - origin[i]) / dir[i]
		} else if dir[i] < 0 {
			step[i] = -1
			tDelta[i] = -1.0 / dir[i]
			tNext[i] = (float64(cell[i]) - origin[i]) / dir[i]
		} else {
			step[i] = 0
			tDelta[i] = math.Inf(1)
			tNext[i] = math.Inf(1)
		}
	}

	lastAxis := -1
	t := tEntry

	for t < tExit {
		id := o.Get(cell[0], cell[1], cell[2])
		mat := palette.Get(id)
		if id != AnyType && !skip(mat) {
			normal := core.Vec3{}
			switch lastAxis {
			case 0:
				normal.X = -float64(step[0])
			case 1:
				normal.Y = -float64(step[1])
			case 2:
				normal.Z = -float64(step[2])
			default:
				normal = ray.Direction.Negate()
			}
			hitPoint := ray.At(t)
			uv := faceUV(lastAxis, hitPoint)
			return Hit{Distance: t, Normal: normal.Normalize(), UV: uv, Material: mat, MaterialID: id}, true
		}

		axis := 0
		if tNext[1] < tNext[axis] {
			axis = 1
		}
		if tNext[2] < tNext[axis] {
			axis = 2
		}
		t = tNext[axis]
		cell[axis] += step[axis]
		tNext[axis] += tDelta[axis]
		lastAxis = axis

		size := 1 << o.Depth()
		if cell[0] < 0 || cell[1] < 0 || cell[2] < 0 || cell[0] >= size || cell[1] >= size || cell[2] >= size {
			return Hit{}, false
		}
	}
	return Hit{}, false
}

func faceUV(axis int, p core.Vec3) core.Vec2 {
	frac := func(v float64) float64 { return v - math.Floor(v) }
	switch axis {
	case 0:
		return core.NewVec2(frac(p.Z), frac(p.Y))
	case 1:
		return core.NewVec2(frac(p.X), frac(p.Z))
	default:
		return core.NewVec2(frac(p.X), frac(p.Y))
	}
}

// clipToCube returns the entry/exit ray parameters against the axis-
// aligned cube [0,size]^3, or ok=false if the ray misses it entirely.
func clipToCube(ray core.Ray, size float64) (tEntry, tExit float64, ok bool) {
	tMin, tMax := math.Inf(-1), math.Inf(1)
	origin := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	dir := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < 0 || origin[i] > size {
				return 0, 0, false
			}
			continue
		}
		inv := 1.0 / dir[i]
		t1 := (0 - origin[i]) * inv
		t2 := (size - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}
