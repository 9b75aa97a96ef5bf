package state

import "github.com/hpungsan/critter/internal/creature"

// SnapshotVersion is written into every serialized document.
const SnapshotVersion = 1

// Snapshot is the durable form of the game. Every field is optional when
// hydrating; absent balances are pointers so zero can be told apart from missing.
type Snapshot struct {
	Version           int                                  `json:"version"`
	SavedAt           int64                                `json:"saved_at,omitempty"`
	Creatures         []creature.Creature                  `json:"creatures"`
	Eggs              []creature.Egg                       `json:"eggs"`
	Photos            []creature.Photo                     `json:"photos"`
	Capsules          *int                                 `json:"capsules,omitempty"`
	LastCapsuleAt     *int64                               `json:"last_capsule_at,omitempty"`
	Tokens            *int64                               `json:"tokens,omitempty"`
	BreedingCooldowns map[string]creature.BreedingCooldown `json:"breeding_cooldowns,omitempty"`
}

// Serialize copies the state under the read lock. Expired cooldowns are
// left out of the copy without touching the live state, so calling it is
// cheap and has no side effects.
func (s *GameState) Serialize() Snapshot {
	var snap Snapshot
	s.View(func(r *Reader) {
		now := r.nowMs()
		snap = Snapshot{
			Version:           SnapshotVersion,
			SavedAt:           now,
			Creatures:         r.Creatures(),
			Eggs:              r.Eggs(),
			Photos:            r.Photos(),
			BreedingCooldowns: make(map[string]creature.BreedingCooldown),
		}
		capsules, last, tokens := r.d.capsules, r.d.lastCapsuleAt, r.d.tokens
		snap.Capsules, snap.LastCapsuleAt, snap.Tokens = &capsules, &last, &tokens

		for i := range snap.Creatures {
			c := &snap.Creatures[i]
			cd, active := r.peekCooldown(c.InstanceID)
			if !active {
				c.LastBreedingAt = nil
				continue
			}
			snap.BreedingCooldowns[c.InstanceID] = cd
		}
	})
	return snap
}

// Hydrate replaces the state with snap. Missing fields get defaults, duplicate
// or empty IDs are reassigned, and the cooldown table and the creature
// timestamps are rebuilt from each other so either one alone is enough.
func (s *GameState) Hydrate(snap Snapshot) error {
	return s.Update(func(tx *Tx) error {
		return tx.Hydrate(snap)
	})
}

// Hydrate is the transactional form of GameState.Hydrate.
func (tx *Tx) Hydrate(snap Snapshot) error {
	now := tx.nowMs()
	set := tx.settings
	d := data{cooldowns: make(map[string]creature.BreedingCooldown)}

	seen := make(map[string]bool, len(snap.Creatures))
	for _, c := range snap.Creatures {
		c = c.Clone()
		if c.InstanceID == "" || seen[c.InstanceID] {
			id, err := tx.newID()
			if err != nil {
				return err
			}
			c.InstanceID = id
		}
		seen[c.InstanceID] = true
		fillCreatureDefaults(&c, now)
		d.creatures = append(d.creatures, c)
	}
	creature.SortCreatures(d.creatures)

	eggIDs := make(map[string]bool, len(snap.Eggs))
	for _, e := range snap.Eggs {
		e = e.Clone()
		if e.InstanceID == "" || eggIDs[e.InstanceID] {
			id, err := tx.newID()
			if err != nil {
				return err
			}
			e.InstanceID = id
		}
		eggIDs[e.InstanceID] = true
		if e.CreatedAt <= 0 {
			e.CreatedAt = now
		}
		if e.LastWarmedAt <= 0 {
			e.LastWarmedAt = e.CreatedAt
		}
		if e.HatchDurationMs <= 0 {
			e.HatchDurationMs = max(set.HatchFloorMs, 1)
		}
		d.eggs = append(d.eggs, e)
	}

	for _, p := range snap.Photos {
		if p.ID == "" {
			id, err := tx.newID()
			if err != nil {
				return err
			}
			p.ID = id
		}
		d.photos = append(d.photos, p)
	}

	d.capsules = set.InitialCapsules
	if snap.Capsules != nil {
		d.capsules = *snap.Capsules
	}
	d.capsules = min(max(d.capsules, 0), set.MaxCapsules)

	d.lastCapsuleAt = now
	if snap.LastCapsuleAt != nil && *snap.LastCapsuleAt > 0 {
		d.lastCapsuleAt = *snap.LastCapsuleAt
	}

	if snap.Tokens != nil && *snap.Tokens > 0 {
		d.tokens = *snap.Tokens
	}

	for id, cd := range snap.BreedingCooldowns {
		if !seen[id] {
			continue
		}
		if cd.EndsAt <= cd.StartedAt {
			cd.EndsAt = cd.StartedAt + set.BreedingCooldownMs
		}
		d.cooldowns[id] = cd
	}

	tx.touch()
	tx.s.data = d

	// The sweep back-fills the table from creature timestamps (and the
	// reverse) and drops anything already expired.
	tx.CleanExpiredCooldowns()
	tx.cleared = nil

	tx.emit(StateHydrated, HydratedPayload{
		Creatures: len(d.creatures),
		Eggs:      len(d.eggs),
		Photos:    len(d.photos),
	})
	return nil
}

func fillCreatureDefaults(c *creature.Creature, now int64) {
	if c.Name == "" {
		c.Name = creature.Unknown
	}
	if c.SpeciesName == "" {
		c.SpeciesName = creature.Unknown
	}
	if len(c.Types) == 0 {
		c.Types = []string{creature.Unknown}
	}
	if len(c.Abilities) == 0 {
		c.Abilities = []string{creature.Unknown}
	}
	if c.Level <= 0 {
		c.Level = creature.DefaultLevel
	}
	if c.AddedAt <= 0 {
		c.AddedAt = now
	}
}
