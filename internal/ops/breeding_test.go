package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/random"
)

func TestRequestBreeding(t *testing.T) {
	h := newHarness(t, &random.Scripted{Floats: []float64{0.5}})
	a := h.addCreature(t, 133, "eevee", false)
	b := h.addCreature(t, 1, "bulbasaur", true)

	out, err := h.p.RequestBreeding(context.Background(), RequestBreedingInput{InstanceIDs: ids(a, b)})
	if err != nil {
		t.Fatalf("RequestBreeding() error = %v", err)
	}
	if !out.Egg.IsBreedingEgg || out.Egg.Parent == nil {
		t.Fatalf("egg = %+v, want a breeding egg with a parent", out.Egg)
	}
	if out.Egg.Parent.InstanceID != a.InstanceID || out.Egg.Parent.SpeciesID != 133 {
		t.Errorf("parent = %+v, want the first selection", out.Egg.Parent)
	}
	if len(out.Cooldowns) != 2 {
		t.Fatalf("cooldowns = %d, want 2", len(out.Cooldowns))
	}
	for _, cd := range out.Cooldowns {
		if cd.Available {
			t.Errorf("%s available right after breeding", cd.InstanceID)
		}
	}
	if len(h.gs.Creatures()) != 2 {
		t.Error("breeding must not remove the parents")
	}

	_, err = h.p.RequestBreeding(context.Background(), RequestBreedingInput{InstanceIDs: ids(a, b)})
	if !errors.Is(err, errors.ErrCooldownActive) {
		t.Fatalf("second RequestBreeding() error = %v, want BREEDING_COOLDOWN", err)
	}
	if len(h.gs.Eggs()) != 1 {
		t.Errorf("eggs = %d, want 1", len(h.gs.Eggs()))
	}

	h.clk.Advance(h.cfg.BreedingCooldown())
	if _, err := h.p.RequestBreeding(context.Background(), RequestBreedingInput{InstanceIDs: ids(b, a)}); err != nil {
		t.Fatalf("RequestBreeding() after cooldown error = %v", err)
	}
}

func TestRequestBreeding_Rejects(t *testing.T) {
	h := newHarness(t, nil)
	a := h.addCreature(t, 133, "eevee", false)
	b := h.addCreature(t, 133, "eevee", false)
	c := h.addCreature(t, 133, "eevee", false)

	tests := []struct {
		name string
		ids  []string
		code errors.ErrorCode
	}{
		{"one", ids(a), errors.ErrInvalidInput},
		{"three", ids(a, b, c), errors.ErrInvalidInput},
		{"same twice", []string{a.InstanceID, a.InstanceID}, errors.ErrInvalidInput},
		{"unknown", []string{a.InstanceID, "ghost"}, errors.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.p.RequestBreeding(context.Background(), RequestBreedingInput{InstanceIDs: tc.ids})
			if !errors.Is(err, tc.code) {
				t.Fatalf("error = %v, want %s", err, tc.code)
			}
		})
	}
	if len(h.gs.Eggs()) != 0 {
		t.Error("rejected requests must not lay eggs")
	}
	if !h.gs.IsBreedingAvailable(a.InstanceID) {
		t.Error("rejected request started a cooldown")
	}
}

func TestBreedingStatus(t *testing.T) {
	h := newHarness(t, &random.Scripted{Floats: []float64{0.5}})
	a := h.addCreature(t, 133, "eevee", false)
	b := h.addCreature(t, 133, "eevee", false)
	idle := h.addCreature(t, 133, "eevee", false)

	if _, err := h.p.RequestBreeding(context.Background(), RequestBreedingInput{InstanceIDs: ids(a, b)}); err != nil {
		t.Fatalf("RequestBreeding() error = %v", err)
	}

	out, err := h.p.BreedingStatus(context.Background(), BreedingStatusInput{})
	if err != nil {
		t.Fatalf("BreedingStatus() error = %v", err)
	}
	if len(out.Cooldowns) != 2 {
		t.Fatalf("active cooldowns = %d, want 2", len(out.Cooldowns))
	}

	h.clk.Advance(h.cfg.BreedingCooldown() / 2)
	out, err = h.p.BreedingStatus(context.Background(), BreedingStatusInput{InstanceIDs: ids(a, idle)})
	if err != nil {
		t.Fatalf("BreedingStatus() error = %v", err)
	}
	if out.Cooldowns[0].Available || out.Cooldowns[0].Percent < 49 || out.Cooldowns[0].Percent > 51 {
		t.Errorf("midway cooldown = %+v, want ~50%% and unavailable", out.Cooldowns[0])
	}
	if !out.Cooldowns[1].Available {
		t.Errorf("idle creature = %+v, want available", out.Cooldowns[1])
	}

	h.clk.Advance(h.cfg.BreedingCooldown())
	out, err = h.p.BreedingStatus(context.Background(), BreedingStatusInput{})
	if err != nil {
		t.Fatalf("BreedingStatus() error = %v", err)
	}
	if len(out.Cooldowns) != 0 {
		t.Errorf("cooldowns after expiry = %d, want 0", len(out.Cooldowns))
	}
	if c, _ := h.gs.Creature(a.InstanceID); c.LastBreedingAt != nil {
		t.Error("expired cooldown timestamp was not cleared")
	}

	if _, err := h.p.BreedingStatus(context.Background(), BreedingStatusInput{InstanceIDs: []string{"ghost"}}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown id error = %v, want NOT_FOUND", err)
	}
}
