// Package catalog indexes the snapshot and dump files a render manager
// writes to disk, backed by a small sqlite database so a scene's history
// can be listed without scanning the filesystem.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Format identifies a cataloged artifact's file kind.
type Format string

const (
	FormatPNG   Format = "png"
	FormatTIFF  Format = "tiff"
	FormatPFM   Format = "pfm"
	FormatDump  Format = "dump"
)

// Entry is one row of the catalog: a single snapshot or dump artifact
// for one scene, at one SPP count. RunID correlates entries written by
// the same render-manager run (a scene.Scene's uuid), distinguishing one
// render's lineage of dumps/snapshots from an earlier run over the same
// scene file.
type Entry struct {
	Scene     string
	RunID     string
	SPP       uint32
	Path      string
	Format    Format
	WrittenAt time.Time
}

// Catalog is a sqlite-backed manifest of on-disk render artifacts,
// stored at <sceneDir>/.voxtrace-catalog.sqlite.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at path, initializing its
// schema if absent.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: creating directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: setting pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: initializing schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		scene      TEXT NOT NULL,
		run_id     TEXT NOT NULL DEFAULT '',
		spp        INTEGER NOT NULL,
		path       TEXT NOT NULL,
		format     TEXT NOT NULL,
		written_at TEXT NOT NULL,
		PRIMARY KEY (scene, spp, format)
	);`)
	return err
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record inserts or replaces an entry for (scene, spp, format).
func (c *Catalog) Record(e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO snapshots (scene, run_id, spp, path, format, written_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(scene, spp, format) DO UPDATE SET run_id=excluded.run_id, path=excluded.path, written_at=excluded.written_at`,
		e.Scene, e.RunID, e.SPP, e.Path, string(e.Format), e.WrittenAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("catalog: recording %s@%d: %w", e.Scene, e.SPP, err)
	}
	return nil
}

// List returns every entry for scene, ordered by ascending SPP.
func (c *Catalog) List(scene string) ([]Entry, error) {
	rows, err := c.db.Query(
		`SELECT scene, run_id, spp, path, format, written_at FROM snapshots WHERE scene = ? ORDER BY spp ASC`,
		scene,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing %s: %w", scene, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var format, writtenAt string
		if err := rows.Scan(&e.Scene, &e.RunID, &e.SPP, &e.Path, &format, &writtenAt); err != nil {
			return nil, fmt.Errorf("catalog: scanning row: %w", err)
		}
		e.Format = Format(format)
		e.WrittenAt, _ = time.Parse(time.RFC3339, writtenAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries recorded for scene in the given
// format.
func (c *Catalog) Count(scene string, format Format) (int, error) {
	var n int
	err := c.db.QueryRow(
		`SELECT COUNT(*) FROM snapshots WHERE scene = ? AND format = ?`,
		scene, string(format),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: counting %s/%s: %w", scene, format, err)
	}
	return n, nil
}

// RebuildFromDirectory repopulates the catalog for scene by scanning
// dir for files matching "<scene>-<spp>.<ext>" and "<scene>.dump",
// the fallback path when the sqlite manifest is missing or stale.
func RebuildFromDirectory(c *Catalog, scene, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("catalog: scanning %s: %w", dir, err)
	}

	count := 0
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		sceneName, spp, format, ok := parseArtifactName(name)
		if !ok || sceneName != scene {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		if err := c.Record(Entry{
			Scene: scene, SPP: spp, Path: filepath.Join(dir, name),
			Format: format, WrittenAt: info.ModTime(),
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// parseArtifactName extracts (scene, spp, format) from a filename of
// the form "<scene>-<spp>.<ext>" or treats a bare "<scene>.dump" as
// spp-less (reported as 0).
func parseArtifactName(name string) (scene string, spp uint32, format Format, ok bool) {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]

	switch ext {
	case ".png":
		format = FormatPNG
	case ".tiff", ".tif":
		format = FormatTIFF
	case ".pfm":
		format = FormatPFM
	case ".dump":
		format = FormatDump
	default:
		return "", 0, "", false
	}

	if format == FormatDump {
		return base, 0, format, true
	}

	dash := lastIndexByte(base, '-')
	if dash < 0 {
		return "", 0, "", false
	}
	var n uint32
	if _, err := fmt.Sscanf(base[dash+1:], "%d", &n); err != nil {
		return "", 0, "", false
	}
	return base[:dash], n, format, true
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
