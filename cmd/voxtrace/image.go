package main

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/catalog"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/imageio"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/postprocess"
	"github.com/voxtrace/voxtrace/pkg/scene"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

// panoramicFovThreshold is how close to 180 degrees a panoramic
// camera's vertical FoV must be for the PNG writer to stamp a GPano XMP
// packet, per spec.md §6's "optional XMP/GPano iTXt chunk when the
// camera is panoramic at ~180deg FoV" rule.
const panoramicFovThreshold = 5.0

// writeSnapshot renders s's current sample buffer to disk in mode,
// returning the path and catalog format it was recorded under.
// Milestone snapshots (auto-saved by the render manager between passes)
// land under a snapshots/ subdirectory; the final write lands alongside
// the scene file, both per spec.md §6's naming convention.
func writeSnapshot(s *scene.Scene, sceneName string, mode OutputMode, spp uint32, milestone bool) (string, catalog.Format, error) {
	s.RLock()
	width, height := s.Width, s.Height
	means := make([]core.Vec3, width*height)
	for i := range means {
		means[i] = s.Samples.Mean(i)
	}
	isPanoramic := s.Camera != nil && cameraIsNearPanoramic(s.Camera)
	s.RUnlock()

	dir := filepath.Dir(sceneName)
	base := filepath.Base(sceneName)
	if milestone {
		dir = filepath.Join(dir, "snapshots")
	}

	ext, format := extensionFor(mode)
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.%s", base, spp, ext))
	if err := writeImage(width, height, means, mode, path, isPanoramic); err != nil {
		return "", "", err
	}
	return path, format, nil
}

func cameraIsNearPanoramic(cam *camera.Camera) bool {
	cfg := cam.Config()
	return cfg.Projection == camera.Panoramic && math.Abs(cfg.VFov-180) <= panoramicFovThreshold
}

func extensionFor(mode OutputMode) (string, catalog.Format) {
	switch mode {
	case "TIFF_32":
		return "tiff", catalog.FormatTIFF
	case "PFM":
		return "pfm", catalog.FormatPFM
	default:
		return "png", catalog.FormatPNG
	}
}

// writeImage tonemaps (for PNG) or passes through linear radiance (for
// TIFF-32/PFM) the given per-pixel means and writes them to path.
func writeImage(width, height int, means []core.Vec3, mode OutputMode, path string, panoramic bool) error {
	switch mode {
	case "TIFF_32":
		return imageio.WriteTIFF32(path, width, height, func(i int) (float32, float32, float32) {
			return postprocess.ToFloat32(means[i])
		})
	case "PFM":
		return imageio.WritePFM(path, width, height, func(i int) (float32, float32, float32) {
			return postprocess.ToFloat32(means[i])
		})
	default:
		return imageio.WritePNG(path, width, height, func(i int) color.RGBA {
			tone := postprocess.Apply(postprocess.Gamma, means[i], 2.2)
			return postprocess.ToRGBA(tone, 1.0)
		}, panoramic)
	}
}

func outputModeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tiff", ".tif":
		return "TIFF_32"
	case ".pfm":
		return "PFM"
	default:
		return "PNG"
	}
}

// defaultVoxelField is the --force fallback when a scene's .octree2
// file is missing or unreadable: an empty solid/water pair over a
// minimal palette, so a render can still proceed (as a blank frame)
// instead of aborting.
func defaultVoxelField() (voxel.Octree, voxel.Octree, *material.Palette) {
	depth := voxel.DepthForExtent(voxel.DefaultWorldExtent, voxel.DefaultVoxelSize)
	const maxNodes = 1 << 16
	return voxel.NewPackedOctree(depth, maxNodes), voxel.NewPackedOctree(depth, maxNodes), material.NewPalette()
}
