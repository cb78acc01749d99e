package env

import (
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

func TestSun_VisibleMatchesSampleDisc(t *testing.T) {
	sun := NewSun(core.NewVec3(0, 1, 0), core.NewVec3(10, 10, 10), 0.05)
	dir, pdf := sun.SampleDisc(core.NewVec2(0.3, 0.7))
	if !sun.Visible(dir) {
		t.Errorf("direction sampled from the disc should be visible")
	}
	if pdf <= 0 {
		t.Errorf("expected positive PDF, got %v", pdf)
	}
	if sun.PDF(dir) != pdf {
		t.Errorf("PDF(sampled direction) = %v, want %v", sun.PDF(dir), pdf)
	}
}

func TestSky_GradientInterpolatesByY(t *testing.T) {
	sky := &Sky{Kind: SkyGradient, TopColor: core.NewVec3(0, 0, 1), BottomColor: core.NewVec3(1, 1, 1)}
	up := sky.Emit(core.NewVec3(0, 1, 0))
	down := sky.Emit(core.NewVec3(0, -1, 0))
	if up.Z < down.Z {
		t.Errorf("looking up should trend toward TopColor: up=%v down=%v", up, down)
	}
}

func TestSky_FogBlendsIntoMiss(t *testing.T) {
	sky := &Sky{
		Kind: SkyUniform, Uniform: core.NewVec3(0.5, 0.5, 0.5),
		FogColor: core.NewVec3(1, 0, 0), SkyFogDensity: 1.0,
	}
	horizon := sky.Emit(core.NewVec3(1, 0, 0))
	if horizon.X < 0.9 {
		t.Errorf("expected horizon color to be dominated by fog color, got %v", horizon)
	}
}

func TestSky_FreeFlightSample(t *testing.T) {
	sky := &Sky{FogDensity: 1.0}
	_, ok := sky.FreeFlightSample(0, 0.5)
	if ok {
		t.Errorf("zero-length segment should never scatter")
	}
	if _, ok := (&Sky{}).FreeFlightSample(100, 0.5); ok {
		t.Errorf("zero fog density should never scatter")
	}
}

func TestEmitterGrid_EmptyWhenNoEmitters(t *testing.T) {
	o := voxel.NewPackedOctree(4, 1<<16)
	palette := material.NewPalette()
	grid := Build(o, palette)
	if !grid.Empty() {
		t.Errorf("expected an all-air octree to produce an empty emitter grid")
	}
}

func TestEmitterGrid_SamplesTowardEmitter(t *testing.T) {
	o := voxel.NewPackedOctree(4, 1<<16)
	palette := material.NewPalette()
	glowID := palette.Add(material.Material{Name: "glowstone", Emittance: 5})
	if err := o.Set(glowID, 15, 15, 15); err != nil {
		t.Fatal(err)
	}

	grid := Build(o, palette)
	if grid.Empty() {
		t.Fatalf("expected the emitter grid to contain the glowstone cell")
	}

	dir, dist, _, pdf, ok := grid.Sample(core.NewVec3(0, 0, 0), 0.5)
	if !ok {
		t.Fatalf("expected a successful sample")
	}
	if dist <= 0 || pdf <= 0 {
		t.Errorf("expected positive distance and PDF, got dist=%v pdf=%v", dist, pdf)
	}
	if dir.Dot(core.NewVec3(1, 1, 1).Normalize()) < 0.5 {
		t.Errorf("expected sampled direction %v to point roughly toward the emitter corner", dir)
	}
}
