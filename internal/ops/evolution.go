package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// MinEvolutionGroup is the smallest number of duplicates that can evolve.
const MinEvolutionGroup = 2

// RequestEvolutionInput contains parameters for the RequestEvolution operation.
type RequestEvolutionInput struct {
	InstanceIDs []string
}

// RequestEvolutionOutput contains the result of the RequestEvolution operation.
type RequestEvolutionOutput struct {
	Evolved  creature.Creature `json:"evolved"`
	Consumed []string          `json:"consumed"`
}

// RequestEvolution fuses two or more creatures of one species into a single
// creature of the next species in its evolution chain. Rare variants cannot
// be consumed. Nothing is removed unless the evolved creature is added in
// the same transaction.
func (p *Presenter) RequestEvolution(ctx context.Context, input RequestEvolutionInput) (*RequestEvolutionOutput, error) {
	ids, err := normalizeSelection(input.InstanceIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) < MinEvolutionGroup {
		return nil, errors.NewInvalidInput(fmt.Sprintf("select at least %d creatures to evolve", MinEvolutionGroup))
	}

	var base creature.Creature
	var checkErr error
	p.state.View(func(v *state.Reader) {
		base, checkErr = checkEvolutionGroup(v, ids)
	})
	if checkErr != nil {
		return nil, checkErr
	}

	doc, err := catalog.NextEvolution(ctx, p.catalog, base.SpeciesID, base.Name)
	if err != nil {
		return nil, err
	}
	cand := catalog.ToCandidate(doc, false)

	out := &RequestEvolutionOutput{Consumed: ids}
	err = p.state.Update(func(tx *state.Tx) error {
		// The selection may have changed during the catalog call.
		if _, err := checkEvolutionGroup(&tx.Reader, ids); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.RemoveCreature(id); err != nil {
				return err
			}
		}
		evolved, err := tx.AddCreature(cand)
		if err != nil {
			return err
		}
		out.Evolved = evolved
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("%d x %s evolved into %s", len(ids), base.Name, out.Evolved.Name)
	return out, nil
}

// checkEvolutionGroup verifies every creature exists, shares one species,
// and is not a rare variant. It returns the first creature.
func checkEvolutionGroup(v *state.Reader, ids []string) (creature.Creature, error) {
	var first creature.Creature
	for i, id := range ids {
		c, ok := v.Creature(id)
		if !ok {
			return creature.Creature{}, errors.NewNotFound("creature", id)
		}
		if c.IsRareVariant {
			return creature.Creature{}, errors.NewInvalidInput(fmt.Sprintf("rare variant %s cannot be evolved", c.Name))
		}
		if i == 0 {
			first = c
			continue
		}
		if c.SpeciesID != first.SpeciesID {
			return creature.Creature{}, errors.NewInvalidInput(
				fmt.Sprintf("all creatures must share one species: %s and %s differ", first.Name, c.Name))
		}
	}
	return first, nil
}
