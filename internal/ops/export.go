package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// ExportSchemaVersion is written into every export file.
const ExportSchemaVersion = "1"

// ExportFile is the document written by Export.
type ExportFile struct {
	CritterExport bool           `json:"_critter_export"`
	SchemaVersion string         `json:"schema_version"`
	ExportedAt    int64          `json:"exported_at"`
	State         state.Snapshot `json:"state"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.critter/exports/critter-<timestamp>.json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Creatures  int    `json:"creatures"`
	Eggs       int    `json:"eggs"`
	Photos     int    `json:"photos"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the whole game to a JSON file. The file is written to a
// temporary name and renamed into place, so an existing export survives a
// failed write.
func (p *Presenter) Export(_ context.Context, input ExportInput) (*ExportOutput, error) {
	now := p.clock.Now()

	path := input.Path
	if path == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "critter-"+now.UTC().Format("2006-01-02T150405")+ExportExt)
	}
	if err := ValidatePath(path, PathCheckWrite, p.cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	doc := ExportFile{
		CritterExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    clock.Millis(now),
		State:         p.state.Serialize(),
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := writeFileAtomic(path, body); err != nil {
		return nil, err
	}

	p.logger.Printf("exported %d creatures to %s", len(doc.State.Creatures), path)
	return &ExportOutput{
		Path:       path,
		Creatures:  len(doc.State.Creatures),
		Eggs:       len(doc.State.Eggs),
		Photos:     len(doc.State.Photos),
		ExportedAt: doc.ExportedAt,
	}, nil
}

func writeFileAtomic(path string, body []byte) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tmp := path + "." + hex.EncodeToString(suffix) + ".tmp"

	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	ok := false
	defer func() {
		if f != nil {
			f.Close()
		}
		if !ok {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(body); err != nil {
		return errors.NewStorageWrite(err)
	}
	if err := f.Sync(); err != nil {
		return errors.NewStorageWrite(err)
	}
	if err := f.Close(); err != nil {
		return errors.NewStorageWrite(err)
	}
	f = nil

	// os.Rename would follow a symlink planted after validation.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidInput("path must not be a symlink")
	}
	if err := os.Rename(tmp, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidInput("export destination already exists; choose a new path")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	ok = true
	return nil
}
