package state

import "github.com/hpungsan/critter/internal/creature"

// EventKind names a change to the game state.
type EventKind string

const (
	CreatureAdded            EventKind = "CREATURE_ADDED"
	CreatureRemoved          EventKind = "CREATURE_REMOVED"
	CreatureUpdated          EventKind = "CREATURE_UPDATED"
	EggAdded                 EventKind = "EGG_ADDED"
	EggRemoved               EventKind = "EGG_REMOVED"
	EggUpdated               EventKind = "EGG_UPDATED"
	PhotoAdded               EventKind = "PHOTO_ADDED"
	CapsulesUpdated          EventKind = "CAPSULES_UPDATED"
	TokensUpdated            EventKind = "TOKENS_UPDATED"
	BreedingCooldownStarted  EventKind = "BREEDING_COOLDOWN_STARTED"
	BreedingCooldownsUpdated EventKind = "BREEDING_COOLDOWNS_UPDATED"
	StateHydrated            EventKind = "STATE_HYDRATED"
)

// Event is delivered to observers after the transaction that produced it commits.
type Event struct {
	// Seq increases by one per event, in commit order.
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	At      int64     `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// CreaturePayload accompanies CREATURE_ADDED, CREATURE_REMOVED and CREATURE_UPDATED.
type CreaturePayload struct {
	Creature creature.Creature `json:"creature"`
}

// EggPayload accompanies EGG_ADDED, EGG_REMOVED and EGG_UPDATED.
// Index is the egg's position at the time of the change.
type EggPayload struct {
	Egg   creature.Egg `json:"egg"`
	Index int          `json:"index"`
}

// PhotoPayload accompanies PHOTO_ADDED.
type PhotoPayload struct {
	Photo creature.Photo `json:"photo"`
}

// CapsulesPayload accompanies CAPSULES_UPDATED.
type CapsulesPayload struct {
	Count         int    `json:"count"`
	Max           int    `json:"max"`
	LastCapsuleAt int64  `json:"last_capsule_at"`
	NextCapsuleAt *int64 `json:"next_capsule_at,omitempty"`
}

// TokensPayload accompanies TOKENS_UPDATED.
type TokensPayload struct {
	Count int64 `json:"count"`
	Delta int64 `json:"delta"`
}

// CooldownStartedPayload accompanies BREEDING_COOLDOWN_STARTED.
type CooldownStartedPayload struct {
	InstanceID string                    `json:"instance_id"`
	Cooldown   creature.BreedingCooldown `json:"cooldown"`
}

// CooldownsUpdatedPayload accompanies BREEDING_COOLDOWNS_UPDATED.
type CooldownsUpdatedPayload struct {
	Cleared []string `json:"cleared"`
	Active  int      `json:"active"`
}

// HydratedPayload accompanies STATE_HYDRATED.
type HydratedPayload struct {
	Creatures int `json:"creatures"`
	Eggs      int `json:"eggs"`
	Photos    int `json:"photos"`
}
