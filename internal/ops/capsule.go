package ops

import (
	"context"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/random"
	"github.com/hpungsan/critter/internal/state"
)

// Outcome is what a capsule contained.
type Outcome string

const (
	OutcomeCreature Outcome = "creature"
	OutcomeEgg      Outcome = "egg"
)

// OpenCapsuleInput contains parameters for the OpenCapsule operation.
type OpenCapsuleInput struct{}

// OpenCapsuleOutput contains the result of the OpenCapsule operation.
// Exactly one of Creature and Egg is set.
type OpenCapsuleOutput struct {
	Outcome  Outcome            `json:"outcome"`
	Creature *creature.Creature `json:"creature,omitempty"`
	Egg      *creature.Egg      `json:"egg,omitempty"`
	Capsules int                `json:"capsules"`
}

// OpenCapsule spends one capsule for a creature or an egg. The outcome is
// rolled first; a creature outcome draws from the catalog, and the capsule
// is only spent once that draw succeeded.
func (p *Presenter) OpenCapsule(ctx context.Context, _ OpenCapsuleInput) (*OpenCapsuleOutput, error) {
	if have := p.state.Capsules(); have <= 0 {
		return nil, errors.NewInsufficientResource("capsules", 0, 1)
	}

	out := &OpenCapsuleOutput{Outcome: OutcomeEgg}
	var cand creature.Candidate
	if random.Chance(p.rand, p.cfg.CreatureOdds) {
		out.Outcome = OutcomeCreature
		doc, err := catalog.RandomCreature(ctx, p.catalog, p.rand, p.cfg.CatalogMaxID)
		if err != nil {
			return nil, err
		}
		cand = catalog.ToCandidate(doc, random.Chance(p.rand, p.cfg.RareVariantOdds))
	}

	err := p.state.Update(func(tx *state.Tx) error {
		if !tx.DecrementCapsules() {
			return errors.NewInsufficientResource("capsules", 0, 1)
		}
		if out.Outcome == OutcomeCreature {
			c, err := tx.AddCreature(cand)
			if err != nil {
				return err
			}
			out.Creature = &c
		} else {
			e, err := tx.AddEgg(p.incubator.CreateEgg(nil))
			if err != nil {
				return err
			}
			out.Egg = &e
		}
		out.Capsules = tx.Capsules()
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("capsule opened: %s", out.Outcome)
	return out, nil
}
