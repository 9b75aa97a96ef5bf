package state

import (
	"fmt"
	"slices"

	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
)

// Tx is an open transaction. It is only valid inside the function passed to
// Update and must not be retained.
type Tx struct {
	Reader
	s       *GameState
	backup  *data
	events  []Event
	cleared []string
}

// touch snapshots the aggregate before the first change so rollback can restore it.
func (tx *Tx) touch() {
	if tx.backup == nil {
		b := tx.s.data.clone()
		tx.backup = &b
	}
}

func (tx *Tx) rollback() {
	if tx.backup != nil {
		tx.s.data = *tx.backup
	}
	tx.events = nil
	tx.cleared = nil
}

func (tx *Tx) finish() {
	if len(tx.cleared) > 0 {
		tx.emit(BreedingCooldownsUpdated, CooldownsUpdatedPayload{
			Cleared: slices.Clone(tx.cleared),
			Active:  len(tx.d.cooldowns),
		})
	}
}

func (tx *Tx) emit(kind EventKind, payload any) {
	tx.events = append(tx.events, Event{Kind: kind, At: tx.nowMs(), Payload: payload})
}

func (tx *Tx) newID() (string, error) {
	id, err := creature.NewID(tx.now)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("generate id: %w", err))
	}
	return id, nil
}

func (tx *Tx) mustCreatureIndex(instanceID string) (int, error) {
	i := tx.creatureIndex(instanceID)
	if i < 0 {
		return -1, errors.NewNotFound("creature", instanceID)
	}
	return i, nil
}

// AddCreature normalizes c, assigns a fresh instance ID and inserts it in
// sorted position.
func (tx *Tx) AddCreature(c creature.Candidate) (creature.Creature, error) {
	cr, err := creature.Normalize(c)
	if err != nil {
		return creature.Creature{}, err
	}
	id, err := tx.newID()
	if err != nil {
		return creature.Creature{}, err
	}
	cr.InstanceID = id
	cr.AddedAt = tx.nowMs()

	tx.touch()
	tx.d.creatures = append(tx.d.creatures, cr)
	creature.SortCreatures(tx.d.creatures)

	tx.emit(CreatureAdded, CreaturePayload{Creature: cr.Clone()})
	return cr.Clone(), nil
}

// RemoveCreature removes the creature and any cooldown it had.
func (tx *Tx) RemoveCreature(instanceID string) (creature.Creature, error) {
	i, err := tx.mustCreatureIndex(instanceID)
	if err != nil {
		return creature.Creature{}, err
	}

	tx.touch()
	removed := tx.d.creatures[i]
	tx.d.creatures = slices.Delete(tx.d.creatures, i, i+1)
	if _, ok := tx.d.cooldowns[instanceID]; ok {
		delete(tx.d.cooldowns, instanceID)
		tx.cleared = append(tx.cleared, instanceID)
	}

	tx.emit(CreatureRemoved, CreaturePayload{Creature: removed.Clone()})
	return removed, nil
}

// MarkSeen clears the unseen flag.
func (tx *Tx) MarkSeen(instanceID string) (creature.Creature, error) {
	i, err := tx.mustCreatureIndex(instanceID)
	if err != nil {
		return creature.Creature{}, err
	}
	if tx.d.creatures[i].IsUnseen {
		tx.touch()
		tx.d.creatures[i].IsUnseen = false
		tx.emit(CreatureUpdated, CreaturePayload{Creature: tx.d.creatures[i].Clone()})
	}
	return tx.d.creatures[i].Clone(), nil
}

// AddEgg appends an egg. Both timestamps and a positive hatch duration are
// required. An empty InstanceID is assigned.
func (tx *Tx) AddEgg(egg creature.Egg) (creature.Egg, error) {
	if egg.CreatedAt <= 0 || egg.LastWarmedAt <= 0 {
		return creature.Egg{}, errors.NewInvalidInput("egg requires created_at and last_warmed_at")
	}
	if egg.HatchDurationMs <= 0 {
		return creature.Egg{}, errors.NewInvalidInput("egg requires a positive hatch duration")
	}
	if egg.InstanceID == "" {
		id, err := tx.newID()
		if err != nil {
			return creature.Egg{}, err
		}
		egg.InstanceID = id
	} else if tx.EggIndex(egg.InstanceID) >= 0 {
		return creature.Egg{}, errors.NewInvalidInput(fmt.Sprintf("egg %s already exists", egg.InstanceID))
	}

	tx.touch()
	egg = egg.Clone()
	tx.d.eggs = append(tx.d.eggs, egg)

	tx.emit(EggAdded, EggPayload{Egg: egg.Clone(), Index: len(tx.d.eggs) - 1})
	return egg.Clone(), nil
}

// RemoveEgg removes the egg at index.
func (tx *Tx) RemoveEgg(index int) (creature.Egg, error) {
	if index < 0 || index >= len(tx.d.eggs) {
		return creature.Egg{}, errors.NewIndexOutOfRange(index, len(tx.d.eggs))
	}

	tx.touch()
	removed := tx.d.eggs[index]
	tx.d.eggs = slices.Delete(tx.d.eggs, index, index+1)

	tx.emit(EggRemoved, EggPayload{Egg: removed.Clone(), Index: index})
	return removed, nil
}

// RemoveEggByID removes an egg wherever it currently sits.
func (tx *Tx) RemoveEggByID(instanceID string) (creature.Egg, error) {
	i := tx.EggIndex(instanceID)
	if i < 0 {
		return creature.Egg{}, errors.NewNotFound("egg", instanceID)
	}
	return tx.RemoveEgg(i)
}

// EggPatch lists the egg fields that may change after creation.
type EggPatch struct {
	LastWarmedAt    *int64
	HatchDurationMs *int64
}

// UpdateEgg applies patch to the egg at index. The hatch duration may only
// decrease and may not go below the floor.
func (tx *Tx) UpdateEgg(index int, patch EggPatch) (creature.Egg, error) {
	if index < 0 || index >= len(tx.d.eggs) {
		return creature.Egg{}, errors.NewIndexOutOfRange(index, len(tx.d.eggs))
	}
	cur := tx.d.eggs[index]

	if patch.HatchDurationMs != nil {
		next := *patch.HatchDurationMs
		if next > cur.HatchDurationMs {
			return creature.Egg{}, errors.NewInvalidInput("hatch duration can only decrease")
		}
		if next < tx.settings.HatchFloorMs && next != cur.HatchDurationMs {
			return creature.Egg{}, errors.NewInvalidInput(
				fmt.Sprintf("hatch duration %d below floor %d", next, tx.settings.HatchFloorMs))
		}
	}

	tx.touch()
	egg := &tx.d.eggs[index]
	if patch.LastWarmedAt != nil {
		egg.LastWarmedAt = *patch.LastWarmedAt
	}
	if patch.HatchDurationMs != nil {
		egg.HatchDurationMs = *patch.HatchDurationMs
	}

	tx.emit(EggUpdated, EggPayload{Egg: egg.Clone(), Index: index})
	return egg.Clone(), nil
}

// AddPhoto stores a capture. ID and CapturedAt are assigned when empty.
func (tx *Tx) AddPhoto(p creature.Photo) (creature.Photo, error) {
	if p.ImageRef == "" {
		return creature.Photo{}, errors.NewInvalidInput("photo requires an image reference")
	}
	if p.ID == "" {
		id, err := tx.newID()
		if err != nil {
			return creature.Photo{}, err
		}
		p.ID = id
	}
	if p.CapturedAt <= 0 {
		p.CapturedAt = tx.nowMs()
	}

	tx.touch()
	tx.d.photos = append(tx.d.photos, p)

	tx.emit(PhotoAdded, PhotoPayload{Photo: p})
	return p, nil
}

func (tx *Tx) emitCapsules() {
	tx.emit(CapsulesUpdated, CapsulesPayload{
		Count:         tx.d.capsules,
		Max:           tx.settings.MaxCapsules,
		LastCapsuleAt: tx.d.lastCapsuleAt,
		NextCapsuleAt: tx.NextCapsuleAt(),
	})
}

// DecrementCapsules removes one capsule and reports false if none were left.
// Spending from a full stock restarts the regeneration clock.
func (tx *Tx) DecrementCapsules() bool {
	if tx.d.capsules <= 0 {
		return false
	}
	tx.touch()
	if tx.d.capsules >= tx.settings.MaxCapsules {
		tx.d.lastCapsuleAt = tx.nowMs()
	}
	tx.d.capsules--
	tx.emitCapsules()
	return true
}

// IncrementCapsules adds one capsule and stamps the regeneration clock.
// It reports false if the stock is already at the cap.
func (tx *Tx) IncrementCapsules() bool {
	if tx.d.capsules >= tx.settings.MaxCapsules {
		return false
	}
	tx.touch()
	tx.d.capsules++
	tx.d.lastCapsuleAt = tx.nowMs()
	tx.emitCapsules()
	return true
}

// RegenerateCapsules credits one capsule per whole regeneration interval
// since the last one, up to the cap, so downtime is caught up.
func (tx *Tx) RegenerateCapsules() int {
	interval := tx.settings.CapsuleRegenMs
	if interval <= 0 || tx.d.capsules >= tx.settings.MaxCapsules {
		return 0
	}

	now := tx.nowMs()
	if tx.d.lastCapsuleAt <= 0 || tx.d.lastCapsuleAt > now {
		tx.touch()
		tx.d.lastCapsuleAt = now
		return 0
	}

	periods := (now - tx.d.lastCapsuleAt) / interval
	if periods == 0 {
		return 0
	}
	credit := int(min(periods, int64(tx.settings.MaxCapsules-tx.d.capsules)))

	tx.touch()
	tx.d.capsules += credit
	tx.d.lastCapsuleAt += periods * interval
	tx.emitCapsules()
	return credit
}

// IncrementTokens credits n tokens.
func (tx *Tx) IncrementTokens(n int64) error {
	if n <= 0 {
		return errors.NewInvalidInput("token amount must be positive")
	}
	tx.touch()
	tx.d.tokens += n
	tx.emit(TokensUpdated, TokensPayload{Count: tx.d.tokens, Delta: n})
	return nil
}

// DecrementTokens spends n tokens. It reports false, changing nothing, when
// the balance is short or n is not positive.
func (tx *Tx) DecrementTokens(n int64) bool {
	if n <= 0 || tx.d.tokens < n {
		return false
	}
	tx.touch()
	tx.d.tokens -= n
	tx.emit(TokensUpdated, TokensPayload{Count: tx.d.tokens, Delta: -n})
	return true
}

// Reset replaces the aggregate with a fresh game.
func (tx *Tx) Reset() {
	tx.touch()
	tx.s.data = tx.s.initialData(tx.now)
	tx.cleared = nil
	tx.emit(StateHydrated, HydratedPayload{})
}
