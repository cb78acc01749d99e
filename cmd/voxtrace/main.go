// Command voxtrace is the headless CLI entry point for the render core:
// `render <sceneName>` drives a scene to its target SPP and writes the
// final image, `snapshot <sceneName> [outfile]` tonemaps the newest dump
// on file without rendering another sample. Exit codes follow spec.md
// §6: 0 success, 1 input error, 2 capacity/IO error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voxtrace/voxtrace/pkg/bvh"
	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/catalog"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/dump"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/renderman"
	"github.com/voxtrace/voxtrace/pkg/samplebuffer"
	"github.com/voxtrace/voxtrace/pkg/scene"
	"github.com/voxtrace/voxtrace/pkg/sceneio"
)

// DefaultLogger writes to stdout, mirroring the teacher's own
// DefaultLogger/NewDefaultLogger pair in pkg/renderer/progressive.go.
type DefaultLogger struct{}

func (DefaultLogger) Printf(format string, args ...interface{}) { fmt.Printf(format, args...) }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	target := fs.Uint("target", 0, "override sppTarget from the scene's config")
	threads := fs.Int("threads", 0, "override worker thread count")
	force := fs.Bool("force", false, "render despite load warnings")
	configPath := fs.String("config", "", "YAML tunables file (overridden by flags, overrides built-in defaults)")
	fs.Parse(os.Args[2:])

	args := fs.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	sceneName := args[0]

	switch cmd {
	case "render":
		os.Exit(runRender(sceneName, *target, *threads, *force, *configPath))
	case "snapshot":
		outfile := ""
		if len(args) > 1 {
			outfile = args[1]
		}
		os.Exit(runSnapshot(sceneName, outfile))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voxtrace render <sceneName> [--target N] [--threads N] [--force] [--config file]")
	fmt.Fprintln(os.Stderr, "       voxtrace snapshot <sceneName> [outfile]")
}

func runRender(sceneName string, target uint, threads int, force bool, configPath string) int {
	logger := DefaultLogger{}

	cfg := sceneio.ConfigDefaults()
	if configPath != "" {
		loaded, err := sceneio.LoadConfig(configPath)
		if err != nil {
			logger.Printf("voxtrace: loading config %s: %v\n", configPath, err)
			return 1
		}
		cfg = loaded
	}
	cfg = cfg.Override(sceneio.Config{Threads: threads, SPPTarget: uint32(target)})

	s, err := loadScene(sceneName, cfg, force, logger)
	if err != nil {
		logger.Printf("voxtrace: loading scene %s: %v\n", sceneName, err)
		return 1
	}

	catalogPath := cfg.CatalogPath
	if !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(filepath.Dir(sceneName), catalogPath)
	}
	cat, err := catalog.Open(catalogPath)
	if err != nil {
		logger.Printf("voxtrace: opening catalog: %v\n", err)
		return 2
	}
	defer cat.Close()

	runID := s.ID
	manager := renderman.New(s, logger, cfg.Threads,
		renderman.DumpFrequencyControl{DumpFrequency: cfg.DumpFrequency},
		renderman.Callbacks{
			OnFrameCompleted: func(s *scene.Scene, spp uint32) {
				logger.Printf("voxtrace: run=%s pass complete, spp=%d\n", runID, spp)
			},
			OnRenderCompleted: func(elapsedMillis int64, samplesPerSecond float64) {
				logger.Printf("voxtrace: run=%s render complete in %dms (%.1f samples/s)\n", runID, elapsedMillis, samplesPerSecond)
			},
			OnDumpRequired: func(s *scene.Scene, spp uint32) {
				if err := saveDump(s, sceneName); err != nil {
					logger.Printf("voxtrace: saving dump: %v\n", err)
					return
				}
				if err := cat.Record(catalog.Entry{Scene: sceneName, RunID: runID, SPP: spp, Path: dumpPath(sceneName), Format: catalog.FormatDump, WrittenAt: time.Now()}); err != nil {
					logger.Printf("voxtrace: recording dump in catalog: %v\n", err)
				}
			},
			OnSnapshotRequired: func(s *scene.Scene, spp uint32) {
				path, format, err := writeSnapshot(s, sceneName, OutputMode(cfg.OutputMode), spp, true)
				if err != nil {
					logger.Printf("voxtrace: writing snapshot: %v\n", err)
					return
				}
				if err := cat.Record(catalog.Entry{Scene: sceneName, RunID: runID, SPP: spp, Path: path, Format: format, WrittenAt: time.Now()}); err != nil {
					logger.Printf("voxtrace: recording snapshot in catalog: %v\n", err)
				}
			},
		})

	ctx := context.Background()
	if err := manager.RunUntilTarget(ctx); err != nil {
		logger.Printf("voxtrace: render failed: %v\n", err)
		return 2
	}

	if _, _, err := writeSnapshot(s, sceneName, OutputMode(cfg.OutputMode), s.SPP(), false); err != nil {
		logger.Printf("voxtrace: writing final image: %v\n", err)
		return 2
	}
	return 0
}

func runSnapshot(sceneName, outfile string) int {
	logger := DefaultLogger{}

	d, err := dump.Load(dumpPath(sceneName))
	if err != nil {
		logger.Printf("voxtrace: loading dump for %s: %v\n", sceneName, err)
		return 1
	}

	if outfile == "" {
		outfile = sceneName + "-snapshot.png"
	}
	if err := writeImage(d.Width, d.Height, d.Means(), OutputMode(outputModeFromExt(outfile)), outfile, false); err != nil {
		logger.Printf("voxtrace: writing %s: %v\n", outfile, err)
		return 2
	}
	logger.Printf("voxtrace: wrote %s from a %d-spp dump\n", outfile, d.SPP)
	return 0
}

// OutputMode mirrors sceneio.OutputMode at the CLI boundary so this file
// doesn't need to import sceneio just for the three string constants.
type OutputMode = sceneio.OutputMode

func loadScene(sceneName string, cfg sceneio.Config, force bool, logger core.Logger) (*scene.Scene, error) {
	docBytes, err := os.ReadFile(sceneName + ".json")
	var doc *sceneio.Document
	if err == nil {
		doc, err = sceneio.Decode(docBytes)
	}
	if err != nil {
		if !force {
			return nil, err
		}
		logger.Printf("voxtrace: %v; continuing with defaults (--force)\n", err)
		doc = defaultDocument()
	}

	octreePath := sceneName + ".octree2"
	solid, water, palette, err := sceneio.LoadOctree2(octreePath, 1<<22)
	if err != nil {
		if !force {
			return nil, err
		}
		logger.Printf("voxtrace: %v; continuing with an empty voxel field (--force)\n", err)
		solid, water, palette = defaultVoxelField()
	}
	sceneio.ApplyOverrides(palette, doc.MaterialOverrides)

	s := scene.New(doc.CanvasWidth, doc.CanvasHeight)
	s.Palette = palette
	s.Solid = solid
	s.Water = water
	s.BVH = bvh.Build(nil)
	s.Camera = camera.New(doc.Camera)
	sun := doc.Sun
	s.Sun = &sun
	sky := doc.Sky
	s.Sky = &sky
	s.Emitters = env.Build(solid, palette)
	s.RayDepth = 8
	s.EmitterSampling = !s.Emitters.Empty()
	s.SPPTarget = cfg.SPPTarget

	if existing, err := dump.Load(dumpPath(sceneName)); err == nil {
		buf := samplebuffer.New(existing.Width, existing.Height)
		if err := existing.ApplyTo(buf); err == nil {
			if err := s.ResumeFrom(buf, existing.SPP, existing.RenderTimeMillis); err != nil {
				logger.Printf("voxtrace: dump dimensions don't match scene, starting fresh: %v\n", err)
			}
		}
	}

	return s, nil
}

func defaultDocument() *sceneio.Document {
	return &sceneio.Document{
		SDFVersion: 9, OutputMode: sceneio.OutputPNG,
		CanvasWidth: 640, CanvasHeight: 360,
		Camera: camera.Config{
			Center: core.NewVec3(0, 1, 5), LookAt: core.NewVec3(0, 1, 0), Up: core.NewVec3(0, 1, 0),
			Width: 640, Height: 360, VFov: 60, Projection: camera.Pinhole,
		},
		Sun: *env.NewSun(core.NewVec3(0.3, 1, 0.2), core.NewVec3(8, 8, 7.5), 0.02),
		Sky: env.Sky{Kind: env.SkyGradient, TopColor: core.NewVec3(0.4, 0.6, 0.9), BottomColor: core.NewVec3(1, 1, 1)},
	}
}

func saveDump(s *scene.Scene, sceneName string) error {
	s.RLock()
	d := dump.FromBuffer(s.Samples, s.SPP(), s.RenderTimeMillis())
	s.RUnlock()
	return dump.Save(dumpPath(sceneName), d)
}

func dumpPath(sceneName string) string { return sceneName + ".dump" }
