// Package scene owns the renderer's mutable state: the voxel octrees,
// BVH, palette, camera, environment, sample buffer, and the render state
// machine that gates worker access to all of it.
package scene

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/voxtrace/voxtrace/pkg/bvh"
	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/samplebuffer"
	"github.com/voxtrace/voxtrace/pkg/tracer"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

// State is the render state machine's current mode.
type State int

const (
	Preview State = iota
	Rendering
	Paused
)

func (s State) String() string {
	switch s {
	case Rendering:
		return "RENDERING"
	case Paused:
		return "PAUSED"
	default:
		return "PREVIEW"
	}
}

// ResetReason identifies why accumulated samples must be discarded.
// SCENE_LOADED is sticky: once raised, further Refresh calls with a
// different reason leave it in place until the manager consumes it.
type ResetReason int

const (
	ResetNone ResetReason = iota
	ResetSettingsChanged
	ResetMaterialsChanged
	ResetModeChange
	ResetSceneLoaded
)

// Scene owns every piece of render-affecting state exclusively: the
// palette, the solid/water octree pair, the entity BVH, textures, the
// sample buffer, and the preview framebuffers. Every public mutator must
// hold mu; read-heavy iteration should snapshot under mu instead of
// holding the lock for the duration.
type Scene struct {
	mu sync.RWMutex

	ID      string
	Width, Height int

	Palette *material.Palette
	Solid   voxel.Octree
	Water   voxel.Octree
	BVH     *bvh.BVH
	Camera  *camera.Camera
	Sun     *env.Sun
	Sky     *env.Sky
	Emitters *env.EmitterGrid

	RayDepth        int
	EmitterSampling bool
	SPPTarget       uint32

	Samples *samplebuffer.Buffer
	Preview *samplebuffer.PreviewFramebuffer

	state      State
	resetFlag  ResetReason
	spp        uint32
	renderTime int64 // milliseconds
}

// New creates a scene with a fresh id and zeroed sample buffer.
func New(width, height int) *Scene {
	return &Scene{
		ID:      uuid.NewString(),
		Width:   width,
		Height:  height,
		Samples: samplebuffer.New(width, height),
		Preview: samplebuffer.NewPreviewFramebuffer(width, height),
		state:   Preview,
	}
}

// World builds the read-only tracer.World a worker borrows for one
// sample pass. Callers must hold at least a read-lock (or operate on a
// copyState snapshot) for the duration of the borrow.
func (s *Scene) World() *tracer.World {
	return &tracer.World{
		Solid: s.Solid, Water: s.Water, Palette: s.Palette, BVH: s.BVH,
		Sun: s.Sun, Sky: s.Sky, Emitters: s.Emitters,
		RayDepth: s.RayDepth, EmitterSampling: s.EmitterSampling,
	}
}

// Lock/Unlock/RLock/RUnlock expose the scene lock to the render manager,
// which alone orchestrates cross-pass synchronization.
func (s *Scene) Lock()    { s.mu.Lock() }
func (s *Scene) Unlock()  { s.mu.Unlock() }
func (s *Scene) RLock()   { s.mu.RLock() }
func (s *Scene) RUnlock() { s.mu.RUnlock() }

// State returns the current render state. Callers should hold RLock.
func (s *Scene) State() State { return s.state }

// SPP returns the current samples-per-pixel count.
func (s *Scene) SPP() uint32 { return s.spp }

// RenderTimeMillis returns accumulated wall-clock render time.
func (s *Scene) RenderTimeMillis() int64 { return s.renderTime }

// ResetPending reports whether a reset flag is currently raised.
func (s *Scene) ResetPending() bool { return s.resetFlag != ResetNone }

// Refresh idempotently raises the reset flag to reason, unless the
// current flag is ResetSceneLoaded, which is sticky until ConsumeReset
// clears it (see DESIGN.md for the original_source citation).
func (s *Scene) Refresh(reason ResetReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetFlag == ResetSceneLoaded {
		return
	}
	s.resetFlag = reason
}

// ConsumeReset clears spp, renderTime, and the sample buffer, then clears
// the reset flag. Called by the render manager at the top of its loop
// once it observes a pending reset.
func (s *Scene) ConsumeReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spp = 0
	s.renderTime = 0
	s.Samples.Reset()
	s.resetFlag = ResetNone
}

// AdvanceSPP atomically bumps the global sample count by 1, returning the
// new value, and reports whether this increment is the first to cross a
// dumpFrequency multiple (so only one worker enqueues the dump task).
func (s *Scene) AdvanceSPP(dumpFrequency uint32) (newSPP uint32, crossedMilestone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.spp
	s.spp++
	if dumpFrequency > 0 && before/dumpFrequency != s.spp/dumpFrequency {
		crossedMilestone = true
	}
	return s.spp, crossedMilestone
}

// TargetReached reports whether spp has reached SPPTarget (the internal
// targetReached transition RENDERING->PAUSED).
func (s *Scene) TargetReached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SPPTarget > 0 && s.spp >= s.SPPTarget
}

// StartRender implements the external startRender transition:
// PREVIEW->RENDERING (full reset) or PAUSED->RENDERING (resume).
func (s *Scene) StartRender() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Preview:
		s.state = Rendering
		s.resetFlag = ResetModeChange
	case Paused:
		s.state = Rendering
	default:
		return fmt.Errorf("scene: cannot start render from state %s", s.state)
	}
	return nil
}

// PauseRender implements the external pauseRender transition.
func (s *Scene) PauseRender() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Rendering {
		return fmt.Errorf("scene: cannot pause from state %s", s.state)
	}
	s.state = Paused
	return nil
}

// StopRender implements the external stopRender transition: any state
// forces a reset back to PREVIEW.
func (s *Scene) StopRender() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Preview
	s.resetFlag = ResetModeChange
}

// TargetReachedTransition implements the internal targetReached
// transition: RENDERING->PAUSED once spp >= SPPTarget. The manager calls
// this after observing TargetReached() to avoid double-pausing.
func (s *Scene) TargetReachedTransition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Rendering {
		s.state = Paused
	}
}

// ResumeFrom seeds the scene's sample buffer, spp, and render time from a
// previously loaded dump (see pkg/dump), used by the render CLI command
// to continue a scene past its last checkpoint instead of restarting
// from SPP 0. samples must already match the scene's dimensions.
func (s *Scene) ResumeFrom(samples *samplebuffer.Buffer, spp uint32, renderTimeMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if samples.Width != s.Width || samples.Height != s.Height {
		return fmt.Errorf("scene: resume dimensions %dx%d do not match scene %dx%d",
			samples.Width, samples.Height, s.Width, s.Height)
	}
	s.Samples = samples
	s.spp = spp
	s.renderTime = renderTimeMillis
	return nil
}

// CopyState produces a restartable snapshot of mutable render-affecting
// parameters. Per the "never alias" redesign note, the returned scene's
// sample/preview buffers are always an independent allocation — freshly
// sized if dimensions differ, or a deep Clone if they match — rather than
// the upstream original's shared pointer when dimensions happen to match.
func (s *Scene) CopyState(other *Scene) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	if err := copier.CopyWithOption(other, s, copier.Option{DeepCopy: true, IgnoreEmpty: false}); err != nil {
		return fmt.Errorf("scene: copying state: %w", err)
	}

	if other.Width == s.Width && other.Height == s.Height {
		other.Samples = s.Samples.Clone()
	} else {
		other.Samples = samplebuffer.New(other.Width, other.Height)
	}
	other.Preview = samplebuffer.NewPreviewFramebuffer(other.Width, other.Height)
	return nil
}
