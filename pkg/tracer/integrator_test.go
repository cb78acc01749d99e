package tracer

import (
	"math/rand"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

func emptyWorld() *World {
	solid := voxel.NewPackedOctree(4, 1<<16)
	water := voxel.NewPackedOctree(4, 1<<16)
	palette := material.NewPalette()
	return &World{
		Solid: solid, Water: water, Palette: palette,
		Sky: &env.Sky{Kind: env.SkyUniform, Uniform: core.NewVec3(0.5, 0.6, 0.7)},
		Sun: env.NewSun(core.NewVec3(0, 1, 0), core.NewVec3(20, 20, 20), 0.05),
		RayDepth: 4,
	}
}

func TestTraceSample_MissReturnsSky(t *testing.T) {
	world := emptyWorld()
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
	ray := core.NewRay(core.NewVec3(1, 1, 1), core.NewVec3(1, 0, 0))

	result := TraceSample(ray, world, sampler)
	if result.Luminance() <= 0 {
		t.Errorf("expected a ray that misses the (empty) scene to pick up sky radiance, got %v", result)
	}
}

func TestTraceSample_DegenerateRayReturnsZero(t *testing.T) {
	world := emptyWorld()
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.Vec3{})

	result := TraceSample(ray, world, sampler)
	if result != (core.Vec3{}) {
		t.Errorf("expected a zero-direction ray to contribute nothing, got %v", result)
	}
}

func TestTraceSample_HitsSolidVoxel(t *testing.T) {
	world := emptyWorld()
	whiteID := world.Palette.Add(material.Material{
		Name: "stone", Solid: true, Opaque: true,
		Albedo: material.NewSolidColor(core.NewVec3(0.8, 0.8, 0.8)),
	})
	if err := world.Solid.Set(whiteID, 8, 8, 8); err != nil {
		t.Fatal(err)
	}

	sampler := core.NewRandomSampler(rand.New(rand.NewSource(2)))
	ray := core.NewRay(core.NewVec3(8.5, 8.5, -5), core.NewVec3(0, 0, 1))

	result := TraceSample(ray, world, sampler)
	if !result.IsFinite() {
		t.Errorf("expected a finite radiance result, got %v", result)
	}
}

func TestPreviewShade_FiniteEverywhere(t *testing.T) {
	world := emptyWorld()
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	result := PreviewShade(ray, world)
	if !result.IsFinite() {
		t.Errorf("expected preview shading to be finite, got %v", result)
	}
}
