// Package renderman drives the worker pool that turns a scene's render
// state machine into accumulated samples: it claims pixel jobs from an
// atomic counter, traces them through pkg/tracer, and coordinates
// pause/resume/reset and snapshot dispatch around the pool.
package renderman

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/scene"
	"github.com/voxtrace/voxtrace/pkg/tracer"
)

// SnapshotControl is the pair of policy objects the manager consults at
// pass boundaries, decoupling "when to persist" from the worker loop.
type SnapshotControl interface {
	ShouldSaveSnapshot(spp uint32) bool
	ShouldSaveDump(spp uint32) bool
}

// DumpFrequencyControl saves a dump every dumpFrequency samples and a
// snapshot image at the same cadence, matching spec.md §4.5's milestone
// rule ("the first worker to push SPP past a multiple of dumpFrequency").
type DumpFrequencyControl struct {
	DumpFrequency uint32
}

func (c DumpFrequencyControl) ShouldSaveSnapshot(spp uint32) bool {
	return c.DumpFrequency > 0 && spp%c.DumpFrequency == 0
}

func (c DumpFrequencyControl) ShouldSaveDump(spp uint32) bool {
	return c.DumpFrequency > 0 && spp%c.DumpFrequency == 0
}

// Callbacks are the host-visible scheduling hooks from spec.md §6.
type Callbacks struct {
	OnFrameCompleted   func(s *scene.Scene, spp uint32)
	OnRenderCompleted  func(elapsedMillis int64, samplesPerSecond float64)
	OnSnapshotRequired func(s *scene.Scene, spp uint32)
	OnDumpRequired     func(s *scene.Scene, spp uint32)
}

// Manager owns a worker pool and the scene's state machine. It is the
// only component that may transition the scene's state or hold the
// write-lock for longer than a single field assignment; workers only
// ever read the scene under a read-lock (or trace against a snapshot).
type Manager struct {
	Scene     *scene.Scene
	Logger    core.Logger
	Threads   int
	Snapshot  SnapshotControl
	Callbacks Callbacks

	mu            sync.Mutex
	cond          *sync.Cond
	passEpoch     uint64 // bumped on every reset/state-exit; workers re-check before writing
	jobCursor     atomic.Uint64
	completedJobs atomic.Uint64 // bumped after each landed (non-stale) write; a pass completes when this crosses a multiple of W*H

	wg       sync.WaitGroup
	started  bool
	stopCh   chan struct{}
}

// New creates a manager with T = max(1, numCores) workers unless threads
// overrides that default.
func New(s *scene.Scene, logger core.Logger, threads int, snapshot SnapshotControl, callbacks Callbacks) *Manager {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads < 1 {
		threads = 1
	}
	m := &Manager{
		Scene: s, Logger: logger, Threads: threads,
		Snapshot: snapshot, Callbacks: callbacks,
		stopCh: make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start launches the fixed-size worker pool. Each worker blocks in its
// own wait loop until the scene enters RENDERING with no reset pending.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	for i := 0; i < m.Threads; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}
}

// Stop signals every worker to exit its loop and waits for them to drain.
// After Stop returns, no worker can write to the sample buffer again —
// the cancellation bound spec.md §8 calls out as testable.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wakeAll()
	m.wg.Wait()
}

// wakeAll bumps the pass epoch and broadcasts the condition variable,
// used whenever the scene's state or reset flag changes underneath the
// pool.
func (m *Manager) wakeAll() {
	m.mu.Lock()
	m.passEpoch++
	m.mu.Unlock()
	m.cond.Broadcast()
}

// NotifyStateChanged must be called by scene.StartRender/PauseRender/
// StopRender callers right after a transition, so idle or mid-wait
// workers re-evaluate promptly instead of polling.
func (m *Manager) NotifyStateChanged() {
	m.wakeAll()
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	rng := rand.New(rand.NewSource(int64(id) + 1))
	sampler := core.NewRandomSampler(rng)

	for {
		epoch, ok := m.waitUntilRenderable()
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		default:
		}

		m.renderOneSample(epoch, sampler)
	}
}

// waitUntilRenderable blocks until the scene is RENDERING with no reset
// pending, or the pool is stopping. A reset found pending while the scene
// is RENDERING is consumed here (Scene.ConsumeReset), at the top of the
// worker loop. It returns the pass epoch the worker
// observed at wake time, which it must re-check before any accumulator
// write (the cancellation rule in spec.md §4.5).
func (m *Manager) waitUntilRenderable() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		select {
		case <-m.stopCh:
			return 0, false
		default:
		}

		m.Scene.RLock()
		rendering := m.Scene.State() == scene.Rendering
		pending := m.Scene.ResetPending()
		m.Scene.RUnlock()

		if rendering && pending {
			m.Scene.ConsumeReset()
			pending = false
		}
		if rendering && !pending {
			return m.passEpoch, true
		}

		m.cond.Wait()
	}
}

// renderOneSample claims one pixel job, traces it, and accumulates the
// result — unless the pass epoch changed underneath it, in which case
// the write is dropped per the cancellation rule.
func (m *Manager) renderOneSample(epoch uint64, sampler core.Sampler) {
	m.Scene.RLock()
	width, height := m.Scene.Width, m.Scene.Height
	total := uint64(width * height)
	m.Scene.RUnlock()
	if total == 0 {
		return
	}

	jobID := m.jobCursor.Add(1) - 1
	i := int(jobID % total)
	x, y := i%width, i/width

	m.Scene.RLock()
	cam := m.Scene.Camera
	world := m.Scene.World()
	m.Scene.RUnlock()
	if cam == nil {
		return
	}

	u := (float64(x) + sampler.Get1D()) / float64(width)
	v := (float64(y) + sampler.Get1D()) / float64(height)
	ray := cam.ViewRay(u, v, sampler)
	radiance := tracer.TraceSample(ray, world, sampler)

	m.mu.Lock()
	stale := m.passEpoch != epoch
	m.mu.Unlock()
	if stale {
		return
	}

	m.Scene.Samples.Accumulate(i, radiance)

	// A pass is complete only once all W*H writes for it have actually
	// landed, not merely claimed — claim order (jobID) and completion
	// order can diverge across workers, so this counts landed writes
	// instead. completedJobs.Add is a read-modify-write on a shared
	// atomic, so the worker whose increment crosses a multiple of total
	// is guaranteed (by the Go memory model's total order over atomic
	// operations on the same variable) to observe every other worker's
	// preceding Accumulate call for this pass — the acquire-release
	// barrier spec.md §4.5's ordering guarantee requires.
	if completed := m.completedJobs.Add(1); completed%total == 0 {
		m.onPassComplete()
	}
}

// onPassComplete implements step 5 of spec.md §4.5's worker loop: bump
// the global SPP and, on crossing a dumpFrequency milestone, dispatch
// snapshot/dump callbacks exactly once.
func (m *Manager) onPassComplete() {
	dumpFreq := uint32(0)
	if dc, ok := m.Snapshot.(DumpFrequencyControl); ok {
		dumpFreq = dc.DumpFrequency
	}
	spp, _ := m.Scene.AdvanceSPP(dumpFreq)

	if m.Callbacks.OnFrameCompleted != nil {
		m.Callbacks.OnFrameCompleted(m.Scene, spp)
	}
	if m.Logger != nil {
		m.Logger.Printf("pass complete: spp=%d (%s samples total)\n", spp, humanize.Comma(int64(spp)*int64(m.Scene.Width)*int64(m.Scene.Height)))
	}

	if m.Snapshot != nil {
		if m.Snapshot.ShouldSaveDump(spp) && m.Callbacks.OnDumpRequired != nil {
			m.Callbacks.OnDumpRequired(m.Scene, spp)
		}
		if m.Snapshot.ShouldSaveSnapshot(spp) && m.Callbacks.OnSnapshotRequired != nil {
			m.Callbacks.OnSnapshotRequired(m.Scene, spp)
		}
	}

	if m.Scene.TargetReached() {
		m.Scene.TargetReachedTransition()
		m.wakeAll()
	}
}

// RunUntilTarget is a convenience entry point for the headless `render`
// CLI command: it starts the pool, transitions the scene to RENDERING,
// blocks until sppTarget is reached or ctx is cancelled, then stops the
// pool and fires onRenderCompleted.
func (m *Manager) RunUntilTarget(ctx context.Context) error {
	start := time.Now()
	m.Start(ctx)

	if err := m.Scene.StartRender(); err != nil {
		return fmt.Errorf("renderman: starting render: %w", err)
	}
	m.NotifyStateChanged()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Scene.StopRender()
			m.NotifyStateChanged()
			m.Stop()
			return ctx.Err()
		case <-ticker.C:
			m.Scene.RLock()
			done := m.Scene.State() != scene.Rendering
			m.Scene.RUnlock()
			if done {
				m.Stop()
				elapsed := time.Since(start).Milliseconds()
				sps := float64(m.Scene.SPP()) * float64(m.Scene.Width*m.Scene.Height) / (float64(elapsed) / 1000)
				if m.Callbacks.OnRenderCompleted != nil {
					m.Callbacks.OnRenderCompleted(elapsed, sps)
				}
				return nil
			}
		}
	}
}
