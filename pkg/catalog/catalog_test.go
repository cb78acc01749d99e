package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCatalog_RecordAndList(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, ".voxtrace-catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, spp := range []uint32{100, 200, 300} {
		if err := c.Record(Entry{Scene: "cavern", RunID: "run-1", SPP: spp, Path: "cavern-100.png", Format: FormatPNG, WrittenAt: now}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := c.List("cavern")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].SPP != 100 || entries[2].SPP != 300 {
		t.Errorf("expected ascending SPP order, got %+v", entries)
	}
	for _, e := range entries {
		if e.RunID != "run-1" {
			t.Errorf("entry %+v: RunID not round-tripped", e)
		}
	}

	n, err := c.Count("cavern", FormatPNG)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestRebuildFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cavern-100.png", "cavern-200.png", "cavern.dump", "other-100.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := Open(filepath.Join(dir, ".voxtrace-catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	n, err := RebuildFromDirectory(c, "cavern", dir)
	if err != nil {
		t.Fatalf("RebuildFromDirectory: %v", err)
	}
	if n != 3 {
		t.Errorf("rebuilt %d entries, want 3 (cavern-100.png, cavern-200.png, cavern.dump)", n)
	}

	entries, err := c.List("cavern")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries after rebuild, want 3", len(entries))
	}
}

func TestParseArtifactName(t *testing.T) {
	cases := []struct {
		name      string
		wantScene string
		wantSPP   uint32
		wantOK    bool
	}{
		{"cavern-100.png", "cavern", 100, true},
		{"cavern.dump", "cavern", 0, true},
		{"cavern-200.tiff", "cavern", 200, true},
		{"notanartifact.txt", "", 0, false},
	}
	for _, c := range cases {
		scene, spp, _, ok := parseArtifactName(c.name)
		if ok != c.wantOK {
			t.Errorf("%s: ok = %v, want %v", c.name, ok, c.wantOK)
			continue
		}
		if ok && (scene != c.wantScene || spp != c.wantSPP) {
			t.Errorf("%s: got scene=%s spp=%d, want scene=%s spp=%d", c.name, scene, spp, c.wantScene, c.wantSPP)
		}
	}
}
