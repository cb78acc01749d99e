package tracer

import (
	"math/rand"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

func TestScatter_DiffuseStaysAboveSurface(t *testing.T) {
	mat := &material.Material{Albedo: material.NewSolidColor(core.NewVec3(0.8, 0.8, 0.8))}
	hit := SurfaceInteraction{
		Point:  core.NewVec3(0, 0, 0),
		Normal: core.NewVec3(0, 1, 0),
		UV:     core.Vec2{},
		Material: mat,
	}
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))

	for i := 0; i < 100; i++ {
		result, ok := Scatter(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0)), hit, sampler)
		if !ok {
			t.Fatalf("expected diffuse scatter to succeed")
		}
		if result.Scattered.Direction.Dot(hit.Normal) < 0 {
			t.Errorf("scattered direction %v points below the surface", result.Scattered.Direction)
		}
		if result.IsSpecular() {
			t.Errorf("expected diffuse-only material to never report specular")
		}
	}
}

func TestScatter_DielectricReflectsOrRefracts(t *testing.T) {
	mat := &material.Material{IOR: 1.5}
	hit := SurfaceInteraction{
		Point:     core.NewVec3(0, 0, 0),
		Normal:    core.NewVec3(0, 1, 0),
		FrontFace: true,
		Material:  mat,
	}
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))

	result, ok := Scatter(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0)), hit, sampler)
	if !ok {
		t.Fatalf("expected dielectric scatter to succeed")
	}
	if !result.IsSpecular() {
		t.Errorf("expected dielectric scatter to be a delta lobe")
	}
	if result.PDF != 0 {
		t.Errorf("expected PDF 0 for delta lobe, got %v", result.PDF)
	}
}

func TestSchlickReflectance_NormalIncidenceMatchesR0(t *testing.T) {
	r := schlickReflectance(1.0, 1.0/1.5)
	r0 := (1 - 1.0/1.5) / (1 + 1.0/1.5)
	want := r0 * r0
	if diff := r - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected reflectance %v at normal incidence, got %v", want, r)
	}
}
