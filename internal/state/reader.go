package state

import (
	"slices"
	"time"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
)

// Reader exposes read-only accessors. Values it returns are copies.
type Reader struct {
	d        *data
	settings Settings
	now      time.Time
}

// Now is the time the view or transaction started.
func (r *Reader) Now() time.Time { return r.now }

func (r *Reader) nowMs() int64 { return clock.Millis(r.now) }

// Creatures returns the collection in sorted order.
func (r *Reader) Creatures() []creature.Creature {
	out := make([]creature.Creature, len(r.d.creatures))
	for i, c := range r.d.creatures {
		out[i] = c.Clone()
	}
	return out
}

// CreatureCount returns the collection size.
func (r *Reader) CreatureCount() int { return len(r.d.creatures) }

// Creature looks up a creature by instance ID.
func (r *Reader) Creature(instanceID string) (creature.Creature, bool) {
	i := r.creatureIndex(instanceID)
	if i < 0 {
		return creature.Creature{}, false
	}
	return r.d.creatures[i].Clone(), true
}

func (r *Reader) creatureIndex(instanceID string) int {
	return slices.IndexFunc(r.d.creatures, func(c creature.Creature) bool {
		return c.InstanceID == instanceID
	})
}

// Eggs returns the eggs in insertion order.
func (r *Reader) Eggs() []creature.Egg {
	out := make([]creature.Egg, len(r.d.eggs))
	for i, e := range r.d.eggs {
		out[i] = e.Clone()
	}
	return out
}

// Egg returns the egg at index.
func (r *Reader) Egg(index int) (creature.Egg, error) {
	if index < 0 || index >= len(r.d.eggs) {
		return creature.Egg{}, errors.NewIndexOutOfRange(index, len(r.d.eggs))
	}
	return r.d.eggs[index].Clone(), nil
}

// EggIndex returns the current index of the egg, or -1.
func (r *Reader) EggIndex(instanceID string) int {
	return slices.IndexFunc(r.d.eggs, func(e creature.Egg) bool {
		return e.InstanceID == instanceID
	})
}

func (r *Reader) Photos() []creature.Photo {
	return slices.Clone(r.d.photos)
}

func (r *Reader) Capsules() int { return r.d.capsules }

func (r *Reader) MaxCapsules() int { return r.settings.MaxCapsules }

func (r *Reader) LastCapsuleAt() int64 { return r.d.lastCapsuleAt }

// NextCapsuleAt returns when the next capsule regenerates, or nil when full.
func (r *Reader) NextCapsuleAt() *int64 {
	if r.d.capsules >= r.settings.MaxCapsules || r.settings.CapsuleRegenMs <= 0 {
		return nil
	}
	next := r.d.lastCapsuleAt + r.settings.CapsuleRegenMs
	return &next
}

func (r *Reader) Tokens() int64 { return r.d.tokens }
