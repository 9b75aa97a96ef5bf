package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/errors"
)

func allowedConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestValidatePath_Rejects(t *testing.T) {
	dir := t.TempDir()
	cfg := allowedConfig(dir)

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"parent traversal", "../backup.json"},
		{"mid-path traversal", dir + "/../x/backup.json"},
		{"no extension", filepath.Join(dir, "backup")},
		{"jsonl extension", filepath.Join(dir, "backup.jsonl")},
		{"outside allowed dirs", "/tmp/critter-elsewhere/backup.json"},
		{"nested directory", filepath.Join(dir, "sub", "backup.json")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("ValidatePath(%q) error = %v, want INVALID_INPUT", tc.path, err)
			}
		})
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := allowedConfig(dir)
	path := filepath.Join(dir, "save.json")

	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		t.Errorf("write to new file error = %v", err)
	}
	if err := ValidatePath(path, PathCheckRead, cfg); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("read of missing file error = %v, want NOT_FOUND", err)
	}
	writeFile(t, path)
	if err := ValidatePath(path, PathCheckRead, cfg); err != nil {
		t.Errorf("read of existing file error = %v", err)
	}
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	nested := filepath.Join(dir, "a", "b.json")
	if err := ValidatePath(nested, PathCheckWrite, cfg); err != nil {
		t.Errorf("unsafe mode should allow any directory, got %v", err)
	}
	if err := ValidatePath(filepath.Join(dir, "b.txt"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("unsafe mode still requires .json, got %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	for _, unsafe := range []bool{false, true} {
		dir := t.TempDir()
		cfg := allowedConfig(dir)
		cfg.AllowUnsafePaths = unsafe

		target := filepath.Join(t.TempDir(), "secret.json")
		writeFile(t, target)
		link := filepath.Join(dir, "link.json")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}

		for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
			if err := ValidatePath(link, mode, cfg); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("unsafe=%v mode=%d error = %v, want INVALID_INPUT", unsafe, mode, err)
			}
		}
	}
}

func TestValidatePath_SymlinkedAllowedDir(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "exports")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	cfg := allowedConfig(link)
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}

	if err := ValidatePath(filepath.Join(resolved, "save.json"), PathCheckWrite, cfg); err != nil {
		t.Errorf("path in the resolved allowed dir error = %v", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/home/user/save.json", false},
		{"../save.json", true},
		{"/home/../etc/passwd", true},
		{"./save.json", false},
		{"file..name.json", false},
		{"a/b/../c.json", true},
	}
	for _, tc := range tests {
		if got := containsTraversal(tc.path); got != tc.want {
			t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
