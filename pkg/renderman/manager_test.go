package renderman

import (
	"context"
	"testing"
	"time"

	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/scene"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

type nullLogger struct{}

func (nullLogger) Printf(string, ...interface{}) {}

func newTestScene(width, height int) *scene.Scene {
	s := scene.New(width, height)
	s.Palette = material.NewPalette()
	s.Solid = voxel.NewPackedOctree(2, 1<<12)
	s.Water = voxel.NewPackedOctree(2, 1<<12)
	s.Sky = &env.Sky{Kind: env.SkyUniform, Uniform: core.NewVec3(0.4, 0.5, 0.6)}
	s.Camera = camera.New(camera.Config{
		Center: core.NewVec3(0, 0, -5), LookAt: core.NewVec3(0, 0, 0), Up: core.NewVec3(0, 1, 0),
		Width: width, Height: height, VFov: 60, FocusDistance: 5,
	})
	s.RayDepth = 2
	s.SPPTarget = 2
	return s
}

func TestManager_RunUntilTarget_AccumulatesSamples(t *testing.T) {
	s := newTestScene(4, 4)
	m := New(s, nullLogger{}, 2, DumpFrequencyControl{DumpFrequency: 1}, Callbacks{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.RunUntilTarget(ctx); err != nil {
		t.Fatalf("RunUntilTarget: %v", err)
	}

	if s.SPP() < s.SPPTarget {
		t.Errorf("expected spp >= target, got spp=%d target=%d", s.SPP(), s.SPPTarget)
	}
	for i := 0; i < s.Width*s.Height; i++ {
		if s.Samples.SPP(i) == 0 {
			t.Errorf("pixel %d never received a sample", i)
		}
	}
}

func TestManager_StopPreventsFurtherWrites(t *testing.T) {
	s := newTestScene(4, 4)
	s.SPPTarget = 0 // never internally reaches target; we stop it externally
	m := New(s, nullLogger{}, 2, DumpFrequencyControl{DumpFrequency: 1}, Callbacks{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	if err := s.StartRender(); err != nil {
		t.Fatal(err)
	}
	m.NotifyStateChanged()

	time.Sleep(20 * time.Millisecond)
	s.StopRender()
	m.NotifyStateChanged()
	m.Stop()

	sppAfterStop := s.SPP()
	time.Sleep(20 * time.Millisecond)
	if s.SPP() != sppAfterStop {
		t.Errorf("expected no further accumulation after Stop, spp moved from %d to %d", sppAfterStop, s.SPP())
	}
}

func TestDumpFrequencyControl_MilestoneCadence(t *testing.T) {
	c := DumpFrequencyControl{DumpFrequency: 100}
	if c.ShouldSaveDump(99) {
		t.Errorf("99 should not be a milestone")
	}
	if !c.ShouldSaveDump(100) {
		t.Errorf("100 should be a milestone")
	}
	if !c.ShouldSaveSnapshot(200) {
		t.Errorf("200 should be a milestone")
	}
}
