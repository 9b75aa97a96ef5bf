package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/critter/internal/errors"
)

func TestExport(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, nil)
	h.cfg.AllowedPaths = []string{dir}
	c := h.addCreature(t, 133, "eevee", false)
	h.addEgg(t, 60_000)
	if _, err := h.p.CapturePhoto(context.Background(), CapturePhotoInput{InstanceID: c.InstanceID, ImageRef: "a.png"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "save.json")
	out, err := h.p.Export(context.Background(), ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if out.Path != path || out.Creatures != 1 || out.Eggs != 1 || out.Photos != 1 {
		t.Errorf("out = %+v", out)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc ExportFile
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if !doc.CritterExport || doc.SchemaVersion != ExportSchemaVersion {
		t.Errorf("header = %v %q", doc.CritterExport, doc.SchemaVersion)
	}
	if len(doc.State.Creatures) != 1 || doc.State.Creatures[0].InstanceID != c.InstanceID {
		t.Errorf("creatures = %+v", doc.State.Creatures)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestExport_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, nil)
	h.cfg.AllowedPaths = []string{dir}
	path := filepath.Join(dir, "save.json")
	writeFile(t, path)

	if _, err := h.p.Export(context.Background(), ExportInput{Path: path}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestExport_RejectsPath(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.p.Export(context.Background(), ExportInput{Path: filepath.Join(t.TempDir(), "save.json")})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("error = %v, want INVALID_INPUT outside allowed dirs", err)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	h := newHarness(t, nil)

	out, err := h.p.Export(context.Background(), ExportInput{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Dir(out.Path) != filepath.Join(home, ".critter", "exports") {
		t.Errorf("Path = %q, want it in ~/.critter/exports", out.Path)
	}
	if !strings.HasPrefix(filepath.Base(out.Path), "critter-") || filepath.Ext(out.Path) != ExportExt {
		t.Errorf("Path = %q, want critter-<timestamp>.json", out.Path)
	}
}
