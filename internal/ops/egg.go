package ops

import (
	"context"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/incubation"
	"github.com/hpungsan/critter/internal/random"
	"github.com/hpungsan/critter/internal/state"
)

// HatchEggInput contains parameters for the HatchEgg operation.
// EggID takes precedence over Index when set.
type HatchEggInput struct {
	Index int
	EggID string
}

// HatchEggOutput contains the result of the HatchEgg operation.
type HatchEggOutput struct {
	Creature creature.Creature `json:"creature"`
	EggID    string            `json:"egg_id"`
	Eggs     int               `json:"eggs"`
}

// HatchEgg turns a ready egg into a creature. A breeding egg hatches into
// its parent's species; any other egg draws a random species. The rare
// variant roll is independent either way. If the catalog fails the egg is
// left untouched, so the call can simply be retried.
func (p *Presenter) HatchEgg(ctx context.Context, input HatchEggInput) (*HatchEggOutput, error) {
	ref := eggRef{Index: input.Index, ID: input.EggID}

	var egg creature.Egg
	var lookupErr error
	p.state.View(func(v *state.Reader) {
		i, err := ref.resolve(v)
		if err != nil {
			lookupErr = err
			return
		}
		egg, _ = v.Egg(i)
		if prog := incubation.CalculateProgress(egg, v.Now()); !prog.IsReady {
			lookupErr = errors.NewEggNotReady(egg.InstanceID, prog.Percent)
		}
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	var (
		doc *catalog.CreatureDoc
		err error
	)
	if egg.IsBreedingEgg && egg.Parent != nil && egg.Parent.SpeciesID > 0 {
		doc, err = p.catalog.FetchCreature(ctx, egg.Parent.SpeciesID)
	} else {
		doc, err = catalog.RandomCreature(ctx, p.catalog, p.rand, p.cfg.CatalogMaxID)
	}
	if err != nil {
		return nil, err
	}
	cand := catalog.ToCandidate(doc, random.Chance(p.rand, p.cfg.RareVariantOdds))

	out := &HatchEggOutput{EggID: egg.InstanceID}
	err = p.state.Update(func(tx *state.Tx) error {
		// Re-resolve by ID: other eggs may have moved while the catalog call ran.
		if _, err := tx.RemoveEggByID(egg.InstanceID); err != nil {
			return err
		}
		c, err := tx.AddCreature(cand)
		if err != nil {
			return err
		}
		out.Creature = c
		out.Eggs = len(tx.Eggs())
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("egg %s hatched into %s", egg.InstanceID, out.Creature.Name)
	return out, nil
}

// WarmEggInput contains parameters for the WarmEgg operation.
type WarmEggInput struct {
	Index int
	EggID string
}

// WarmEggOutput contains the result of the WarmEgg operation.
type WarmEggOutput struct {
	Egg       creature.Egg        `json:"egg"`
	Progress  incubation.Progress `json:"progress"`
	ReducedMs int64               `json:"reduced_ms"`
}

// WarmEgg shakes an egg, shortening its hatch duration by one warm-up step
// down to the floor.
func (p *Presenter) WarmEgg(_ context.Context, input WarmEggInput) (*WarmEggOutput, error) {
	ref := eggRef{Index: input.Index, ID: input.EggID}
	settings := p.incubator.Settings()

	out := &WarmEggOutput{}
	err := p.state.Update(func(tx *state.Tx) error {
		i, err := ref.resolve(&tx.Reader)
		if err != nil {
			return err
		}
		egg, err := tx.Egg(i)
		if err != nil {
			return err
		}

		warmed := incubation.WarmUp(egg, tx.Now(), settings)
		updated, err := tx.UpdateEgg(i, state.EggPatch{
			LastWarmedAt:    &warmed.LastWarmedAt,
			HatchDurationMs: &warmed.HatchDurationMs,
		})
		if err != nil {
			return err
		}
		out.Egg = updated
		out.ReducedMs = egg.HatchDurationMs - updated.HatchDurationMs
		out.Progress = incubation.CalculateProgress(updated, tx.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
