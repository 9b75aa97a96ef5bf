package ops

import (
	"context"

	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// RequestBreedingInput contains parameters for the RequestBreeding operation.
type RequestBreedingInput struct {
	InstanceIDs []string
}

// RequestBreedingOutput contains the result of the RequestBreeding operation.
type RequestBreedingOutput struct {
	Egg       creature.Egg             `json:"egg"`
	Cooldowns []state.CooldownProgress `json:"cooldowns"`
}

// RequestBreeding pairs two available creatures. The egg is parented to the
// first selection, both creatures start a cooldown, and neither is removed.
// Rare variants may breed.
func (p *Presenter) RequestBreeding(_ context.Context, input RequestBreedingInput) (*RequestBreedingOutput, error) {
	ids, err := normalizeSelection(input.InstanceIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) != 2 {
		return nil, errors.NewInvalidInput("select exactly 2 creatures to breed")
	}

	out := &RequestBreedingOutput{}
	err = p.state.Update(func(tx *state.Tx) error {
		var parents []creature.Creature
		for _, id := range ids {
			c, ok := tx.Creature(id)
			if !ok {
				return errors.NewNotFound("creature", id)
			}
			if !tx.IsBreedingAvailable(id) {
				return errors.NewCooldownActive(id, tx.BreedingCooldownProgress(id).SecondsLeft)
			}
			parents = append(parents, c)
		}

		egg, err := tx.AddEgg(p.incubator.CreateEgg(&parents[0]))
		if err != nil {
			return err
		}
		out.Egg = egg

		for _, id := range ids {
			if err := tx.StartBreedingCooldown(id); err != nil {
				return err
			}
			out.Cooldowns = append(out.Cooldowns, tx.BreedingCooldownProgress(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("breeding egg %s laid by %s", out.Egg.InstanceID, out.Egg.Parent.Name)
	return out, nil
}

// BreedingStatusInput contains parameters for the BreedingStatus operation.
// With no IDs every creature still on cooldown is reported.
type BreedingStatusInput struct {
	InstanceIDs []string
}

// BreedingStatusOutput contains the result of the BreedingStatus operation.
type BreedingStatusOutput struct {
	Cooldowns []state.CooldownProgress `json:"cooldowns"`
}

// BreedingStatus reports cooldown progress. Expired entries are cleared as a
// side effect of reading them.
func (p *Presenter) BreedingStatus(_ context.Context, input BreedingStatusInput) (*BreedingStatusOutput, error) {
	out := &BreedingStatusOutput{Cooldowns: []state.CooldownProgress{}}
	err := p.state.Update(func(tx *state.Tx) error {
		ids := input.InstanceIDs
		if len(ids) == 0 {
			active := tx.ActiveCooldowns()
			for _, c := range tx.Creatures() {
				if _, ok := active[c.InstanceID]; ok {
					ids = append(ids, c.InstanceID)
				}
			}
		}
		for _, id := range ids {
			if _, ok := tx.Creature(id); !ok {
				return errors.NewNotFound("creature", id)
			}
			out.Cooldowns = append(out.Cooldowns, tx.BreedingCooldownProgress(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
