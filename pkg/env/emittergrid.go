package env

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

// cellExtent is the edge length, in voxels, of one EmitterGrid cell. A
// coarse occupancy map keeps picking an emitter a scan over the occupied
// cells instead of over the whole octree per sample.
const cellExtent = 16

// cell is one occupied emitter-grid bucket: its world-space center, total
// emittance of its voxels used for importance-sampling selection, and
// the average emitted radiance (emittance * albedo) of the voxels it
// aggregates, returned to callers so a sampled cell carries real emission
// rather than just a direction.
type cell struct {
	center      core.Vec3
	weight      float64
	emissionSum core.Vec3
	voxelCount  int
}

// EmitterGrid buckets the voxel field's emissive blocks into coarse cells
// and exposes weighted sampling over them, mirroring a scene's weighted
// light sampler but built from voxel occupancy instead of an explicit
// light list.
type EmitterGrid struct {
	cells       []cell
	cumWeights  []float64
	totalWeight float64
}

// Build scans the octree for voxels whose material has non-zero
// emittance and aggregates them into grid cells.
func Build(o voxel.Octree, palette *material.Palette) *EmitterGrid {
	size := 1 << o.Depth()
	agg := make(map[[3]int]*cell)

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				id := o.Get(x, y, z)
				if id == voxel.AnyType {
					continue
				}
				mat := palette.Get(id)
				if mat.Emittance <= 0 {
					continue
				}
				key := [3]int{x / cellExtent, y / cellExtent, z / cellExtent}
				c, ok := agg[key]
				if !ok {
					cx := float64(key[0]*cellExtent + cellExtent/2)
					cy := float64(key[1]*cellExtent + cellExtent/2)
					cz := float64(key[2]*cellExtent + cellExtent/2)
					c = &cell{center: core.NewVec3(cx, cy, cz)}
					agg[key] = c
				}
				c.weight += float64(mat.Emittance)
				albedo := core.Vec3{}
				if mat.Albedo != nil {
					albedo = mat.Albedo.Evaluate(core.Vec2{}, core.NewVec3(float64(x), float64(y), float64(z)))
				}
				c.emissionSum = c.emissionSum.Add(albedo.Multiply(float64(mat.Emittance)))
				c.voxelCount++
			}
		}
	}
	g := &EmitterGrid{}
	for _, c := range agg {
		g.cells = append(g.cells, *c)
		g.totalWeight += c.weight
	}
	cum := 0.0
	g.cumWeights = make([]float64, len(g.cells))
	for i, c := range g.cells {
		cum += c.weight
		g.cumWeights[i] = cum
	}
	return g
}

// Empty reports whether the grid has no emissive cells, letting the
// tracer skip emitter sampling entirely for scenes with no emitters.
func (g *EmitterGrid) Empty() bool { return len(g.cells) == 0 }

// Sample picks one cell weighted by its aggregate emittance and returns a
// direction toward it from point, the emitted radiance of that cell
// (average emittance*albedo over the voxels it aggregates), and the
// solid-angle PDF of the choice (treating the cell as a point light at its
// center — coarse, but adequate for importance sampling rather than exact
// integration).
func (g *EmitterGrid) Sample(point core.Vec3, xi float64) (direction core.Vec3, distance float64, emission core.Vec3, pdf float64, ok bool) {
	if g.totalWeight <= 0 || len(g.cells) == 0 {
		return core.Vec3{}, 0, core.Vec3{}, 0, false
	}
	target := xi * g.totalWeight
	idx := 0
	for ; idx < len(g.cumWeights)-1; idx++ {
		if target <= g.cumWeights[idx] {
			break
		}
	}
	c := g.cells[idx]
	selectionProb := c.weight / g.totalWeight

	toCell := c.center.Subtract(point)
	distance = toCell.Length()
	if distance < 1e-6 {
		return core.Vec3{}, 0, core.Vec3{}, 0, false
	}
	direction = toCell.Multiply(1 / distance)
	if c.voxelCount > 0 {
		emission = c.emissionSum.Multiply(1 / float64(c.voxelCount))
	}

	cellRadius := float64(cellExtent) * 0.5
	solidAngle := math.Pi * cellRadius * cellRadius / (distance * distance)
	pdf = selectionProb / solidAngle
	return direction, distance, emission, pdf, true
}
