package voxel

import "github.com/chewxy/math32"

// DefaultWorldExtent and DefaultVoxelSize are the fallback world-file
// parameters used when a scene supplies no voxel field of its own (see
// DepthForExtent's caller in cmd/voxtrace).
const (
	DefaultWorldExtent = 64
	DefaultVoxelSize   = 1
)

// DepthForExtent returns the smallest depth such that an octree of side
// 2^depth, spanning worldExtent world units, can resolve features as small
// as minVoxelSize. Returns 0 for a degenerate or non-finite input rather
// than erroring, since callers use this to size a fallback field rather
// than to validate user input.
func DepthForExtent(worldExtent, minVoxelSize float32) int {
	if worldExtent <= 0 || minVoxelSize <= 0 ||
		math32.IsNaN(worldExtent) || math32.IsInf(worldExtent, 0) ||
		math32.IsNaN(minVoxelSize) || math32.IsInf(minVoxelSize, 0) {
		return 0
	}
	log2 := math32.Log2(worldExtent / minVoxelSize)
	if log2 <= 0 {
		return 0
	}
	return int(math32.Ceil(log2))
}
