package state

import (
	"math"
	"slices"

	"github.com/hpungsan/critter/internal/creature"
)

// CooldownProgress describes a creature's breeding cooldown.
type CooldownProgress struct {
	InstanceID  string  `json:"instance_id"`
	Available   bool    `json:"available"`
	Percent     float64 `json:"percent"`
	SecondsLeft int64   `json:"seconds_left"`
	EndsAt      *int64  `json:"ends_at,omitempty"`
}

// peekCooldown finds the cooldown of a creature in the table, falling back to
// the creature's own timestamp. active is false once EndsAt has passed.
func (r *Reader) peekCooldown(instanceID string) (creature.BreedingCooldown, bool) {
	cd, ok := r.d.cooldowns[instanceID]
	if !ok {
		i := r.creatureIndex(instanceID)
		if i < 0 || r.d.creatures[i].LastBreedingAt == nil {
			return creature.BreedingCooldown{}, false
		}
		started := *r.d.creatures[i].LastBreedingAt
		cd = creature.BreedingCooldown{StartedAt: started, EndsAt: started + r.settings.BreedingCooldownMs}
	}
	return cd, r.nowMs() < cd.EndsAt
}

func (r *Reader) progressOf(instanceID string, cd creature.BreedingCooldown, active bool) CooldownProgress {
	if !active {
		return CooldownProgress{InstanceID: instanceID, Available: true, Percent: 100}
	}

	now := r.nowMs()
	percent := 100.0
	if d := r.settings.BreedingCooldownMs; d > 0 {
		percent = float64(now-cd.StartedAt) / float64(d) * 100
	}
	percent = min(max(percent, 0), 100)

	left := int64(math.Round(float64(cd.EndsAt-now) / 1000))
	ends := cd.EndsAt
	return CooldownProgress{
		InstanceID:  instanceID,
		Percent:     percent,
		SecondsLeft: max(left, 0),
		EndsAt:      &ends,
	}
}

// resolveCooldownLocked is the single expiry check behind every cooldown
// read. It keeps the table and the creature timestamp in agreement: an
// active cooldown is present in both, an expired one in neither.
func (tx *Tx) resolveCooldownLocked(instanceID string) (creature.BreedingCooldown, bool) {
	d := tx.d
	cd, active := tx.peekCooldown(instanceID)
	_, inTable := d.cooldowns[instanceID]
	i := tx.creatureIndex(instanceID)

	if i < 0 {
		// Orphaned entry for a creature that left the collection.
		if inTable {
			tx.touch()
			delete(tx.d.cooldowns, instanceID)
			tx.cleared = append(tx.cleared, instanceID)
		}
		return creature.BreedingCooldown{}, false
	}

	if active {
		if !inTable {
			tx.touch()
			tx.d.cooldowns[instanceID] = cd
		}
		if tx.d.creatures[i].LastBreedingAt == nil {
			tx.touch()
			started := cd.StartedAt
			tx.d.creatures[i].LastBreedingAt = &started
		}
		return cd, true
	}

	healed := false
	if inTable {
		tx.touch()
		delete(tx.d.cooldowns, instanceID)
		healed = true
	}
	if tx.d.creatures[i].LastBreedingAt != nil {
		tx.touch()
		tx.d.creatures[i].LastBreedingAt = nil
		healed = true
	}
	if healed {
		tx.cleared = append(tx.cleared, instanceID)
	}
	return creature.BreedingCooldown{}, false
}

// IsBreedingAvailable reports whether the creature may breed. Creatures not
// in the collection have no cooldown and report true.
func (tx *Tx) IsBreedingAvailable(instanceID string) bool {
	_, active := tx.resolveCooldownLocked(instanceID)
	return !active
}

// BreedingCooldownProgress reports progress, clearing an expired cooldown first.
func (tx *Tx) BreedingCooldownProgress(instanceID string) CooldownProgress {
	cd, active := tx.resolveCooldownLocked(instanceID)
	return tx.progressOf(instanceID, cd, active)
}

// StartBreedingCooldown stamps the creature and the cooldown table together.
func (tx *Tx) StartBreedingCooldown(instanceID string) error {
	i, err := tx.mustCreatureIndex(instanceID)
	if err != nil {
		return err
	}

	tx.touch()
	now := tx.nowMs()
	cd := creature.BreedingCooldown{StartedAt: now, EndsAt: now + tx.settings.BreedingCooldownMs}
	tx.d.cooldowns[instanceID] = cd
	started := now
	tx.d.creatures[i].LastBreedingAt = &started

	tx.emit(BreedingCooldownStarted, CooldownStartedPayload{InstanceID: instanceID, Cooldown: cd})
	return nil
}

// CleanExpiredCooldowns resolves every known cooldown and returns the IDs it cleared.
func (tx *Tx) CleanExpiredCooldowns() []string {
	ids := make([]string, 0, len(tx.d.cooldowns))
	for id := range tx.d.cooldowns {
		ids = append(ids, id)
	}
	for _, c := range tx.d.creatures {
		if c.LastBreedingAt != nil {
			ids = append(ids, c.InstanceID)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	before := len(tx.cleared)
	for _, id := range ids {
		tx.resolveCooldownLocked(id)
	}
	return slices.Clone(tx.cleared[before:])
}

// ActiveCooldowns sweeps expired entries and returns a copy of the table.
func (tx *Tx) ActiveCooldowns() map[string]creature.BreedingCooldown {
	tx.CleanExpiredCooldowns()
	out := make(map[string]creature.BreedingCooldown, len(tx.d.cooldowns))
	for k, v := range tx.d.cooldowns {
		out[k] = v
	}
	return out
}
