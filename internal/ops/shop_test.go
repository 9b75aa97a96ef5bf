package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/random"
)

func TestBuyCapsule(t *testing.T) {
	h := newHarness(t, nil)
	h.gs.DecrementCapsules()
	before := h.gs.Capsules()
	h.addTokens(t, 25)

	out, err := h.p.BuyCapsule(context.Background(), BuyCapsuleInput{})
	if err != nil {
		t.Fatalf("BuyCapsule() error = %v", err)
	}
	if out.Capsules != before+1 || out.Tokens != 15 || out.Spent != 10 {
		t.Errorf("out = %+v, want capsules %d, tokens 15, spent 10", out, before+1)
	}
}

func TestBuyCapsule_Rejects(t *testing.T) {
	t.Run("insufficient tokens", func(t *testing.T) {
		h := newHarness(t, nil)
		h.gs.DecrementCapsules()
		h.addTokens(t, 9)
		capsules := h.gs.Capsules()

		_, err := h.p.BuyCapsule(context.Background(), BuyCapsuleInput{})
		if !errors.Is(err, errors.ErrInsufficientResource) {
			t.Fatalf("error = %v, want INSUFFICIENT_RESOURCE", err)
		}
		if h.gs.Tokens() != 9 || h.gs.Capsules() != capsules {
			t.Error("failed purchase changed balances")
		}
	})

	t.Run("at capacity", func(t *testing.T) {
		h := newHarness(t, nil)
		for h.gs.IncrementCapsules() {
		}
		h.addTokens(t, 100)

		_, err := h.p.BuyCapsule(context.Background(), BuyCapsuleInput{})
		if !errors.Is(err, errors.ErrCapacityReached) {
			t.Fatalf("error = %v, want CAPACITY_REACHED", err)
		}
		if h.gs.Tokens() != 100 {
			t.Errorf("tokens = %d, want 100", h.gs.Tokens())
		}
	})
}

func TestBuyRareVariant(t *testing.T) {
	h := newHarness(t, &random.Scripted{Ints: []int{drawBulbasaur}})
	h.addTokens(t, 1500)

	out, err := h.p.BuyRareVariant(context.Background(), BuyRareVariantInput{})
	if err != nil {
		t.Fatalf("BuyRareVariant() error = %v", err)
	}
	if !out.Creature.IsRareVariant || out.Creature.SpeciesID != 1 {
		t.Errorf("creature = %+v, want rare bulbasaur", out.Creature)
	}
	if out.Tokens != 500 || h.gs.Tokens() != 500 {
		t.Errorf("tokens = %d, want 500", h.gs.Tokens())
	}
}

func TestBuyRareVariant_Unavailable(t *testing.T) {
	h := newHarness(t, &random.Scripted{Ints: []int{drawDitto}})
	h.addTokens(t, 1000)

	_, err := h.p.BuyRareVariant(context.Background(), BuyRareVariantInput{})
	if !errors.Is(err, errors.ErrVariantUnavailable) {
		t.Fatalf("error = %v, want VARIANT_UNAVAILABLE", err)
	}
	if h.gs.Tokens() != 1000 || len(h.gs.Creatures()) != 0 {
		t.Error("failed purchase spent tokens or added a creature")
	}
}

func TestBuyRareVariant_InsufficientTokens(t *testing.T) {
	cat := &hookCatalog{Catalog: testCatalog(t)}
	calls := 0
	cat.before = func() { calls++ }
	h := newHarnessWithCatalog(t, nil, cat)
	h.addTokens(t, 999)

	_, err := h.p.BuyRareVariant(context.Background(), BuyRareVariantInput{})
	if !errors.Is(err, errors.ErrInsufficientResource) {
		t.Fatalf("error = %v, want INSUFFICIENT_RESOURCE", err)
	}
	if calls != 0 {
		t.Errorf("catalog called %d times, want 0", calls)
	}
}
