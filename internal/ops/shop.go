package ops

import (
	"context"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// BuyCapsuleInput contains parameters for the BuyCapsule operation.
type BuyCapsuleInput struct{}

// BuyCapsuleOutput contains the result of the BuyCapsule operation.
type BuyCapsuleOutput struct {
	Capsules int   `json:"capsules"`
	Tokens   int64 `json:"tokens"`
	Spent    int64 `json:"spent"`
}

// BuyCapsule trades tokens for one capsule. It fails when capsules are
// already at the maximum.
func (p *Presenter) BuyCapsule(_ context.Context, _ BuyCapsuleInput) (*BuyCapsuleOutput, error) {
	cost := p.cfg.CapsuleCost
	out := &BuyCapsuleOutput{Spent: cost}
	err := p.state.Update(func(tx *state.Tx) error {
		if tx.Capsules() >= tx.MaxCapsules() {
			return errors.NewCapacityReached("capsules", tx.MaxCapsules())
		}
		if !tx.DecrementTokens(cost) {
			return errors.NewInsufficientResource("tokens", tx.Tokens(), cost)
		}
		tx.IncrementCapsules()
		out.Capsules = tx.Capsules()
		out.Tokens = tx.Tokens()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuyRareVariantInput contains parameters for the BuyRareVariant operation.
type BuyRareVariantInput struct{}

// BuyRareVariantOutput contains the result of the BuyRareVariant operation.
type BuyRareVariantOutput struct {
	Creature creature.Creature `json:"creature"`
	Tokens   int64             `json:"tokens"`
	Spent    int64             `json:"spent"`
}

// BuyRareVariant draws a random species and adds its rare variant. A species
// without a rare-variant sprite fails with VARIANT_UNAVAILABLE. Tokens are
// only spent after a successful draw.
func (p *Presenter) BuyRareVariant(ctx context.Context, _ BuyRareVariantInput) (*BuyRareVariantOutput, error) {
	cost := p.cfg.RareVariantCost
	if have := p.state.Tokens(); have < cost {
		return nil, errors.NewInsufficientResource("tokens", have, cost)
	}

	doc, err := catalog.RandomCreature(ctx, p.catalog, p.rand, p.cfg.CatalogMaxID)
	if err != nil {
		return nil, err
	}
	if !doc.HasRareVariant() {
		return nil, errors.NewVariantUnavailable(doc.ID, doc.Name)
	}
	cand := catalog.ToCandidate(doc, true)

	out := &BuyRareVariantOutput{Spent: cost}
	err = p.state.Update(func(tx *state.Tx) error {
		if !tx.DecrementTokens(cost) {
			return errors.NewInsufficientResource("tokens", tx.Tokens(), cost)
		}
		c, err := tx.AddCreature(cand)
		if err != nil {
			return err
		}
		out.Creature = c
		out.Tokens = tx.Tokens()
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Printf("rare %s bought for %d tokens", out.Creature.Name, cost)
	return out, nil
}
