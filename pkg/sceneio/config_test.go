package sceneio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxtrace.yaml")
	if err := os.WriteFile(path, []byte("threads: 8\nspp_target: 256\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Threads != 8 || cfg.SPPTarget != 256 {
		t.Errorf("cfg = %+v, want threads=8 spp_target=256", cfg)
	}
	if cfg.DumpFrequency != ConfigDefaults().DumpFrequency {
		t.Errorf("DumpFrequency = %d, expected default to survive a partial config", cfg.DumpFrequency)
	}
}

func TestConfig_OverrideFlagsWinOverConfig(t *testing.T) {
	base := Config{Threads: 4, DumpFrequency: 64, SPPTarget: 100, OutputMode: "PNG"}
	flags := Config{Threads: 16}

	merged := base.Override(flags)
	if merged.Threads != 16 {
		t.Errorf("Threads = %d, want flag override 16", merged.Threads)
	}
	if merged.SPPTarget != 100 {
		t.Errorf("SPPTarget = %d, want config value preserved", merged.SPPTarget)
	}
}
