package postprocess

import (
	"testing"

	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/tracer"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

func TestAlphaChannel_ZeroOnEmptyScene(t *testing.T) {
	cam := camera.New(camera.Config{
		Center: core.NewVec3(0, 0, -5), LookAt: core.NewVec3(0, 0, 0), Up: core.NewVec3(0, 1, 0),
		Width: 4, Height: 4, VFov: 60, FocusDistance: 5,
	})
	world := &tracer.World{
		Solid: voxel.NewPackedOctree(2, 1<<12), Water: voxel.NewPackedOctree(2, 1<<12),
		Palette: material.NewPalette(),
		Sky:     &env.Sky{Kind: env.SkyUniform, Uniform: core.NewVec3(0.5, 0.5, 0.5)},
	}

	alpha := AlphaChannel(cam, world, 4, 4)
	if len(alpha) != 16 {
		t.Fatalf("got %d alpha values, want 16", len(alpha))
	}
	for i, a := range alpha {
		if a != 0 {
			t.Errorf("pixel %d: expected alpha 0 against empty scene, got %v", i, a)
		}
	}
}

func TestAlphaChannel_OneWhenBlocked(t *testing.T) {
	cam := camera.New(camera.Config{
		Center: core.NewVec3(8, 8, -5), LookAt: core.NewVec3(8, 8, 8), Up: core.NewVec3(0, 1, 0),
		Width: 2, Height: 2, VFov: 40, FocusDistance: 13,
	})
	solid := voxel.NewPackedOctree(4, 1<<16)
	palette := material.NewPalette()
	id := palette.Add(material.Material{Name: "stone", Solid: true, Opaque: true, Albedo: material.NewSolidColor(core.NewVec3(0.5, 0.5, 0.5))})
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			solid.Set(id, x, y, 12)
		}
	}
	world := &tracer.World{
		Solid: solid, Water: voxel.NewPackedOctree(4, 1<<16), Palette: palette,
		Sky: &env.Sky{Kind: env.SkyUniform, Uniform: core.NewVec3(0.5, 0.5, 0.5)},
	}

	alpha := AlphaChannel(cam, world, 2, 2)
	for i, a := range alpha {
		if a < 0.99 {
			t.Errorf("pixel %d: expected full coverage against a wall, got %v", i, a)
		}
	}
}
