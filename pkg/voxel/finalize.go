package voxel

import (
	"fmt"

	"github.com/voxtrace/voxtrace/pkg/material"
)

// Finalizer runs the post-load pass over a loaded octree: water/lava
// corner-height resolution and hidden-interior-voxel culling to AnyType.
// StartFinalization/EndFinalization bracket a batch during which no
// concurrent readers are permitted.
type Finalizer struct {
	octree  Octree
	palette *material.Palette
	running bool
}

func NewFinalizer(o Octree, palette *material.Palette) *Finalizer {
	return &Finalizer{octree: o, palette: palette}
}

// StartFinalization marks the octree as being mutated by a finalization
// batch; callers must not read concurrently until EndFinalization returns.
func (f *Finalizer) StartFinalization() { f.running = true }

// EndFinalization runs the water/lava corner-height rule and hidden-block
// culling over every voxel in the octree, then marks the batch complete.
// It returns the first error either pass reports — on a PackedOctree this
// is ErrOctreeTooBig once the palette-driven Set calls push the node count
// past the packed representation's ceiling — so a caller can fall back to
// a NodeOctree rather than silently ending up with a partially finalized
// region.
func (f *Finalizer) EndFinalization() error {
	defer func() { f.running = false }()
	if err := f.resolveWaterCorners(); err != nil {
		return err
	}
	return f.cullHiddenVoxels()
}

// resolveWaterCorners implements the water/lava finalization rule: a
// non-edge water voxel whose upper neighbor is also water becomes a full
// block; otherwise its four corner heights are the clamped average of its
// four diagonal neighbors' levels.
func (f *Finalizer) resolveWaterCorners() error {
	size := 1 << f.octree.Depth()
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				id := f.octree.Get(x, y, z)
				mat := f.palette.Get(id)
				if !mat.Water {
					continue
				}

				above := f.palette.Get(f.octree.Get(x, y+1, z))
				if above.Water {
					full := *mat
					full.Level = 0
					full.CornerHeights = [4]uint8{0, 0, 0, 0}
					id2 := f.palette.Add(full)
					if err := f.octree.Set(id2, x, y, z); err != nil {
						return fmt.Errorf("voxel: resolving water corners at (%d,%d,%d): %w", x, y, z, err)
					}
					continue
				}

				sum := 0
				offsets := [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
				for _, off := range offsets {
					nID := f.octree.Get(x+off[0], y, z+off[1])
					nMat := f.palette.Get(nID)
					lvl := uint8(7)
					if nMat.Water {
						lvl = nMat.Level
					}
					sum += int(lvl)
				}
				avg := clampLevel(uint8(sum / 4))
				corners := [4]uint8{avg, avg, avg, avg}

				updated := *mat
				updated.CornerHeights = corners
				id2 := f.palette.Add(updated)
				if err := f.octree.Set(id2, x, y, z); err != nil {
					return fmt.Errorf("voxel: resolving water corners at (%d,%d,%d): %w", x, y, z, err)
				}
			}
		}
	}
	return nil
}

func clampLevel(v uint8) uint8 {
	if v > 7 {
		return 7
	}
	return v
}

// cullHiddenVoxels marks any solid, opaque voxel fully surrounded by
// solid, opaque neighbors as AnyType, so ray traversal can skip over it
// without a material lookup.
func (f *Finalizer) cullHiddenVoxels() error {
	size := 1 << f.octree.Depth()
	neighbors := [6][3]int{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
	}
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				id := f.octree.Get(x, y, z)
				if id == AnyType {
					continue
				}
				mat := f.palette.Get(id)
				if !mat.Solid || !mat.Opaque {
					continue
				}
				hidden := true
				for _, d := range neighbors {
					nx, ny, nz := x+d[0], y+d[1], z+d[2]
					if nx < 0 || ny < 0 || nz < 0 || nx >= size || ny >= size || nz >= size {
						hidden = false
						break
					}
					nMat := f.palette.Get(f.octree.Get(nx, ny, nz))
					if !nMat.Solid || !nMat.Opaque {
						hidden = false
						break
					}
				}
				if hidden {
					if err := f.octree.Set(AnyType, x, y, z); err != nil {
						return fmt.Errorf("voxel: culling hidden voxel at (%d,%d,%d): %w", x, y, z, err)
					}
				}
			}
		}
	}
	return nil
}
