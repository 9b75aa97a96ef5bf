package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/critter/internal/errors"
)

// exportFrom builds a game with two creatures and an egg and exports it.
func exportFrom(t *testing.T, dir string) (string, *harness) {
	t.Helper()
	src := newHarness(t, nil)
	src.cfg.AllowedPaths = []string{dir}
	a := src.addCreature(t, 133, "eevee", false)
	src.addCreature(t, 1, "bulbasaur", true)
	src.addEgg(t, 60_000)
	src.addTokens(t, 77)
	if err := src.gs.StartBreedingCooldown(a.InstanceID); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "save.json")
	if _, err := src.p.Export(context.Background(), ExportInput{Path: path}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return path, src
}

func TestImport_Replace(t *testing.T) {
	dir := t.TempDir()
	path, src := exportFrom(t, dir)

	dst := newHarness(t, nil)
	dst.cfg.AllowedPaths = []string{dir}
	dst.addCreature(t, 132, "ditto", false)

	out, err := dst.p.Import(context.Background(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if out.Mode != ImportModeReplace || out.Creatures != 2 || out.Eggs != 1 {
		t.Errorf("out = %+v", out)
	}
	if dst.gs.Tokens() != 77 {
		t.Errorf("tokens = %d, want 77", dst.gs.Tokens())
	}

	want := src.gs.Creatures()
	got := dst.gs.Creatures()
	if len(got) != len(want) {
		t.Fatalf("creatures = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].InstanceID != want[i].InstanceID {
			t.Errorf("creature[%d] = %s, want %s", i, got[i].InstanceID, want[i].InstanceID)
		}
	}
	if len(dst.gs.ActiveCooldowns()) != 1 {
		t.Errorf("active cooldowns = %d, want 1", len(dst.gs.ActiveCooldowns()))
	}
}

func TestImport_Merge(t *testing.T) {
	dir := t.TempDir()
	path, src := exportFrom(t, dir)

	// Merge into the same game: everything collides and nothing changes.
	out, err := src.p.Import(context.Background(), ImportInput{Path: path, Mode: ImportModeMerge})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if out.Skipped != 3 || out.Creatures != 2 || out.Eggs != 1 {
		t.Errorf("self merge = %+v, want 3 skipped and counts unchanged", out)
	}

	dst := newHarness(t, nil)
	dst.cfg.AllowedPaths = []string{dir}
	dst.addCreature(t, 132, "ditto", false)
	dst.addTokens(t, 5)
	dst.clk.Advance(time.Second)

	out, err = dst.p.Import(context.Background(), ImportInput{Path: path, Mode: ImportModeMerge})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if out.Skipped != 0 || out.Creatures != 3 || out.Eggs != 1 {
		t.Errorf("merge = %+v, want 3 creatures and 1 egg", out)
	}
	if dst.gs.Tokens() != 5 {
		t.Errorf("tokens = %d, want 5 (merge keeps balances)", dst.gs.Tokens())
	}
}

func TestImport_Rejects(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, nil)
	h.cfg.AllowedPaths = []string{dir}

	notExport := filepath.Join(dir, "other.json")
	if err := os.WriteFile(notExport, []byte(`{"creatures":[]}`), 0600); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte(`{not json`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   ImportInput
		code errors.ErrorCode
	}{
		{"bad mode", ImportInput{Path: notExport, Mode: "rename"}, errors.ErrInvalidInput},
		{"missing file", ImportInput{Path: filepath.Join(dir, "missing.json")}, errors.ErrNotFound},
		{"not an export", ImportInput{Path: notExport}, errors.ErrInvalidInput},
		{"invalid json", ImportInput{Path: garbage}, errors.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.p.Import(context.Background(), tc.in); !errors.Is(err, tc.code) {
				t.Errorf("error = %v, want %s", err, tc.code)
			}
		})
	}
}
