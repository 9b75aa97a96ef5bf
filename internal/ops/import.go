package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// maxImportBytes bounds how much of an import file is read.
const maxImportBytes = 64 << 20

// ImportMode controls how an import combines with the current game.
type ImportMode string

const (
	ImportModeReplace ImportMode = "replace" // the file becomes the game
	ImportModeMerge   ImportMode = "merge"   // collections are appended, balances kept
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: replace
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Mode      ImportMode `json:"mode"`
	Creatures int        `json:"creatures"`
	Eggs      int        `json:"eggs"`
	Photos    int        `json:"photos"`
	Skipped   int        `json:"skipped"`
}

// Import loads an export file. Replace hydrates the game from the file,
// repairing anything missing. Merge appends creatures, eggs, and photos
// whose IDs are not already present and counts the rest as skipped.
func (p *Presenter) Import(_ context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeReplace
	}
	if input.Mode != ImportModeReplace && input.Mode != ImportModeMerge {
		return nil, errors.NewInvalidInput("mode must be one of: replace, merge")
	}
	if err := ValidatePath(input.Path, PathCheckRead, p.cfg); err != nil {
		return nil, err
	}

	doc, err := readExportFile(input.Path)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Mode: input.Mode}
	err = p.state.Update(func(tx *state.Tx) error {
		snap := doc.State
		if input.Mode == ImportModeMerge {
			snap, out.Skipped = mergeSnapshot(tx, doc.State)
		}
		if err := tx.Hydrate(snap); err != nil {
			return err
		}
		out.Creatures = tx.CreatureCount()
		out.Eggs = len(tx.Eggs())
		out.Photos = len(tx.Photos())
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("imported %s (%s): %d creatures, %d skipped", input.Path, input.Mode, out.Creatures, out.Skipped)
	return out, nil
}

func readExportFile(path string) (*ExportFile, error) {
	f, err := openFileNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(body) > maxImportBytes {
		return nil, errors.NewInvalidInput("import file is too large")
	}

	var doc ExportFile
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.NewInvalidInput(fmt.Sprintf("invalid export file: %v", err))
	}
	if !doc.CritterExport {
		return nil, errors.NewInvalidInput("not a critter export file")
	}
	return &doc, nil
}

// mergeSnapshot builds the current game plus every incoming item whose ID
// is new. Balances and the regeneration clock stay as they are.
func mergeSnapshot(tx *state.Tx, in state.Snapshot) (state.Snapshot, int) {
	capsules, last, tokens := tx.Capsules(), tx.LastCapsuleAt(), tx.Tokens()
	snap := state.Snapshot{
		Version:           state.SnapshotVersion,
		Creatures:         tx.Creatures(),
		Eggs:              tx.Eggs(),
		Photos:            tx.Photos(),
		Capsules:          &capsules,
		LastCapsuleAt:     &last,
		Tokens:            &tokens,
		BreedingCooldowns: tx.ActiveCooldowns(),
	}

	skipped := 0
	have := make(map[string]bool)
	for _, c := range snap.Creatures {
		have[c.InstanceID] = true
	}
	for _, c := range in.Creatures {
		if c.InstanceID != "" && have[c.InstanceID] {
			skipped++
			continue
		}
		snap.Creatures = append(snap.Creatures, c)
		if cd, ok := in.BreedingCooldowns[c.InstanceID]; ok && c.InstanceID != "" {
			snap.BreedingCooldowns[c.InstanceID] = cd
		}
	}

	eggs := make(map[string]bool)
	for _, e := range snap.Eggs {
		eggs[e.InstanceID] = true
	}
	for _, e := range in.Eggs {
		if e.InstanceID != "" && eggs[e.InstanceID] {
			skipped++
			continue
		}
		snap.Eggs = append(snap.Eggs, e)
	}

	photos := make(map[string]bool)
	for _, ph := range snap.Photos {
		photos[ph.ID] = true
	}
	for _, ph := range in.Photos {
		if ph.ID != "" && photos[ph.ID] {
			skipped++
			continue
		}
		snap.Photos = append(snap.Photos, ph)
	}
	return snap, skipped
}
