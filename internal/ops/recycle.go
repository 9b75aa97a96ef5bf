package ops

import (
	"context"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

// RecycleCreaturesInput contains parameters for the RecycleCreatures operation.
type RecycleCreaturesInput struct {
	InstanceIDs []string
}

// RecycleCreaturesOutput contains the result of the RecycleCreatures operation.
type RecycleCreaturesOutput struct {
	Recycled []string `json:"recycled"`
	Credited int64    `json:"credited"`
	Tokens   int64    `json:"tokens"`
}

// RecycleCreatures removes the selected creatures and credits one token per
// creature. All of them must exist; otherwise nothing is recycled.
func (p *Presenter) RecycleCreatures(_ context.Context, input RecycleCreaturesInput) (*RecycleCreaturesOutput, error) {
	ids, err := normalizeSelection(input.InstanceIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.NewInvalidInput("select at least one creature to recycle")
	}

	out := &RecycleCreaturesOutput{Recycled: ids}
	err = p.state.Update(func(tx *state.Tx) error {
		for _, id := range ids {
			if _, err := tx.RemoveCreature(id); err != nil {
				return err
			}
		}
		n := int64(len(ids))
		if err := tx.IncrementTokens(n); err != nil {
			return err
		}
		out.Credited = n
		out.Tokens = tx.Tokens()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
