// Package creature defines the collected entities of the game: creatures,
// eggs, breeding cooldowns and photos.
package creature

import (
	"cmp"
	"slices"
)

// Unknown is the sentinel used for any name, type or ability the catalog left out.
const Unknown = "unknown"

// DefaultLevel is the level of every newly created creature.
const DefaultLevel = 1

// Sprites holds the image references of a species.
type Sprites struct {
	Normal string `json:"normal"`
	Rare   string `json:"rare,omitempty"`
}

// Creature is a collected instance of a catalog species.
// Timestamps are unix milliseconds.
type Creature struct {
	// InstanceID is a ULID assigned when the creature enters the collection; never reused.
	InstanceID string `json:"instance_id"`

	// SpeciesID references the catalog entry. Duplicates share it.
	SpeciesID int `json:"species_id"`

	Name string `json:"name"`

	// Types is ordered; the first entry is the main type.
	Types     []string `json:"types"`
	Abilities []string `json:"abilities"`
	Sprites   Sprites  `json:"sprites"`
	Height    int      `json:"height"`
	Weight    int      `json:"weight"`

	SpeciesName string `json:"species_name"`
	SpeciesURL  string `json:"species_url,omitempty"`

	IsRareVariant bool `json:"is_rare_variant"`

	// IsUnseen stays true until the player first opens the creature.
	IsUnseen bool `json:"is_unseen"`

	// LastBreedingAt is nil when the creature never bred or its cooldown expired.
	LastBreedingAt *int64 `json:"last_breeding_at,omitempty"`

	Level   int   `json:"level"`
	AddedAt int64 `json:"added_at"`
}

// MainType returns the first type tag.
func (c *Creature) MainType() string {
	if len(c.Types) == 0 {
		return Unknown
	}
	return c.Types[0]
}

// Sprite returns the sprite matching the creature's variant.
func (c *Creature) Sprite() string {
	if c.IsRareVariant && c.Sprites.Rare != "" {
		return c.Sprites.Rare
	}
	return c.Sprites.Normal
}

// Clone returns a deep copy.
func (c Creature) Clone() Creature {
	c.Types = slices.Clone(c.Types)
	c.Abilities = slices.Clone(c.Abilities)
	if c.LastBreedingAt != nil {
		v := *c.LastBreedingAt
		c.LastBreedingAt = &v
	}
	return c
}

// Compare orders creatures by species, normal before rare, then newest first.
func Compare(a, b Creature) int {
	if n := cmp.Compare(a.SpeciesID, b.SpeciesID); n != 0 {
		return n
	}
	if a.IsRareVariant != b.IsRareVariant {
		if a.IsRareVariant {
			return 1
		}
		return -1
	}
	return cmp.Compare(b.AddedAt, a.AddedAt)
}

// SortCreatures sorts cs in collection order.
func SortCreatures(cs []Creature) {
	slices.SortStableFunc(cs, Compare)
}

// ParentRef identifies the creature that produced a breeding egg.
type ParentRef struct {
	InstanceID string `json:"instance_id"`
	SpeciesID  int    `json:"species_id"`
	Name       string `json:"name"`
}

// Egg is a timed incubation object that hatches into a creature.
type Egg struct {
	InstanceID   string `json:"instance_id"`
	CreatedAt    int64  `json:"created_at"`
	LastWarmedAt int64  `json:"last_warmed_at"`

	// HatchDurationMs only ever decreases and never drops below the configured floor.
	HatchDurationMs int64 `json:"hatch_duration_ms"`

	IsBreedingEgg bool       `json:"is_breeding_egg"`
	Parent        *ParentRef `json:"parent,omitempty"`
}

// Clone returns a deep copy.
func (e Egg) Clone() Egg {
	if e.Parent != nil {
		p := *e.Parent
		e.Parent = &p
	}
	return e
}

// BreedingCooldown is the cooldown window of one creature.
type BreedingCooldown struct {
	StartedAt int64 `json:"started_at"`
	EndsAt    int64 `json:"ends_at"`
}

// PhotoSubject is the denormalized copy of the photographed creature.
// It outlives the creature if that one is later recycled.
type PhotoSubject struct {
	InstanceID    string `json:"instance_id"`
	SpeciesID     int    `json:"species_id"`
	Name          string `json:"name"`
	Sprite        string `json:"sprite"`
	IsRareVariant bool   `json:"is_rare_variant"`
}

// Photo is an immutable capture.
type Photo struct {
	ID         string       `json:"id"`
	CapturedAt int64        `json:"captured_at"`
	ImageRef   string       `json:"image_ref"`
	Creature   PhotoSubject `json:"creature"`
}

// SubjectOf snapshots c for a photo.
func SubjectOf(c Creature) PhotoSubject {
	return PhotoSubject{
		InstanceID:    c.InstanceID,
		SpeciesID:     c.SpeciesID,
		Name:          c.Name,
		Sprite:        c.Sprite(),
		IsRareVariant: c.IsRareVariant,
	}
}
