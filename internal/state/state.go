// Package state holds the authoritative in-memory game state: the creature,
// egg and photo collections, the capsule and token balances, and the
// breeding cooldown table.
//
// All mutation goes through Update, which runs a function against a Tx under
// the write lock, rolls back if the function fails, and then notifies
// observers of every change the transaction made. The exported mutators on
// GameState are one-call transactions.
//
// Delivery is synchronous for a single caller. When another goroutine is
// already delivering events, Update queues its own and returns; the busy
// goroutine delivers them in commit order before it finishes.
package state

import (
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/creature"
)

// Settings are the balance constants the state enforces.
type Settings struct {
	MaxCapsules        int
	InitialCapsules    int
	CapsuleRegenMs     int64
	BreedingCooldownMs int64
	HatchFloorMs       int64
}

// SettingsFrom extracts state settings from the game config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		MaxCapsules:        cfg.MaxCapsules,
		InitialCapsules:    cfg.InitialCapsules,
		CapsuleRegenMs:     cfg.CapsuleRegenMs,
		BreedingCooldownMs: cfg.BreedingCooldownMs,
		HatchFloorMs:       cfg.HatchFloorMs,
	}
}

// data is the aggregate guarded by GameState.mu.
type data struct {
	creatures     []creature.Creature
	eggs          []creature.Egg
	photos        []creature.Photo
	capsules      int
	lastCapsuleAt int64
	tokens        int64
	cooldowns     map[string]creature.BreedingCooldown
}

func (d *data) clone() data {
	out := *d
	out.creatures = make([]creature.Creature, len(d.creatures))
	for i, c := range d.creatures {
		out.creatures[i] = c.Clone()
	}
	out.eggs = make([]creature.Egg, len(d.eggs))
	for i, e := range d.eggs {
		out.eggs[i] = e.Clone()
	}
	out.photos = slices.Clone(d.photos)
	out.cooldowns = make(map[string]creature.BreedingCooldown, len(d.cooldowns))
	for k, v := range d.cooldowns {
		out.cooldowns[k] = v
	}
	return out
}

// GameState is the single source of truth for a game.
type GameState struct {
	mu       sync.RWMutex
	data     data
	settings Settings
	clock    clock.Clock
	logger   *log.Logger
	notifier *notifier
}

// New creates a fresh game. A nil logger discards output.
func New(settings Settings, clk clock.Clock, logger *log.Logger) *GameState {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &GameState{
		settings: settings,
		clock:    clk,
		logger:   logger,
		notifier: &notifier{logger: logger},
	}
	s.data = s.initialData(clk.Now())
	return s
}

func (s *GameState) initialData(now time.Time) data {
	return data{
		capsules:      min(max(s.settings.InitialCapsules, 0), s.settings.MaxCapsules),
		lastCapsuleAt: clock.Millis(now),
		cooldowns:     make(map[string]creature.BreedingCooldown),
	}
}

// Settings returns the balance constants.
func (s *GameState) Settings() Settings {
	return s.settings
}

// Now returns the state's clock time.
func (s *GameState) Now() time.Time {
	return s.clock.Now()
}

// Update runs fn as one transaction. If fn returns an error every change it
// made is discarded and no events are sent; otherwise the events it produced
// are delivered after the lock is released, or handed to a concurrent
// delivery already in progress, in which case Update may return first.
func (s *GameState) Update(fn func(tx *Tx) error) error {
	if err := s.commit(fn); err != nil {
		return err
	}
	s.notifier.drain()
	return nil
}

func (s *GameState) commit(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{Reader: Reader{d: &s.data, settings: s.settings, now: s.clock.Now()}, s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.finish()
	s.notifier.enqueue(tx.events)
	return nil
}

// View runs fn under the read lock. fn must not retain references to
// slices it reads.
func (s *GameState) View(fn func(v *Reader)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&Reader{d: &s.data, settings: s.settings, now: s.clock.Now()})
}

// AddObserver registers o. Observers are called in registration order on
// the goroutine that is delivering, which is not always the one that made
// the change. They must not block.
func (s *GameState) AddObserver(o Observer) ObserverID {
	return s.notifier.add(o)
}

// RemoveObserver unregisters id. It reports whether id was registered.
func (s *GameState) RemoveObserver(id ObserverID) bool {
	return s.notifier.remove(id)
}

// Notify delivers an event that is not tied to a state change.
func (s *GameState) Notify(kind EventKind, payload any) {
	s.mu.Lock()
	s.notifier.enqueue([]Event{{Kind: kind, At: clock.Millis(s.clock.Now()), Payload: payload}})
	s.mu.Unlock()
	s.notifier.drain()
}

// Read accessors. Each returns copies.

func (s *GameState) Creatures() []creature.Creature {
	var out []creature.Creature
	s.View(func(r *Reader) { out = r.Creatures() })
	return out
}

func (s *GameState) Creature(instanceID string) (creature.Creature, bool) {
	var (
		out creature.Creature
		ok  bool
	)
	s.View(func(r *Reader) { out, ok = r.Creature(instanceID) })
	return out, ok
}

func (s *GameState) Eggs() []creature.Egg {
	var out []creature.Egg
	s.View(func(r *Reader) { out = r.Eggs() })
	return out
}

func (s *GameState) Egg(index int) (creature.Egg, error) {
	var (
		out creature.Egg
		err error
	)
	s.View(func(r *Reader) { out, err = r.Egg(index) })
	return out, err
}

func (s *GameState) Photos() []creature.Photo {
	var out []creature.Photo
	s.View(func(r *Reader) { out = r.Photos() })
	return out
}

func (s *GameState) Capsules() int {
	var n int
	s.View(func(r *Reader) { n = r.Capsules() })
	return n
}

func (s *GameState) Tokens() int64 {
	var n int64
	s.View(func(r *Reader) { n = r.Tokens() })
	return n
}

// NextCapsuleAt returns when the next capsule regenerates, or nil when full.
func (s *GameState) NextCapsuleAt() *int64 {
	var out *int64
	s.View(func(r *Reader) { out = r.NextCapsuleAt() })
	return out
}

// One-call transactions.

func (s *GameState) AddCreature(c creature.Candidate) (creature.Creature, error) {
	var out creature.Creature
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.AddCreature(c)
		return err
	})
	return out, err
}

func (s *GameState) RemoveCreature(instanceID string) (creature.Creature, error) {
	var out creature.Creature
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.RemoveCreature(instanceID)
		return err
	})
	return out, err
}

func (s *GameState) MarkSeen(instanceID string) (creature.Creature, error) {
	var out creature.Creature
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.MarkSeen(instanceID)
		return err
	})
	return out, err
}

func (s *GameState) AddEgg(egg creature.Egg) (creature.Egg, error) {
	var out creature.Egg
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.AddEgg(egg)
		return err
	})
	return out, err
}

func (s *GameState) RemoveEgg(index int) (creature.Egg, error) {
	var out creature.Egg
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.RemoveEgg(index)
		return err
	})
	return out, err
}

func (s *GameState) UpdateEgg(index int, patch EggPatch) (creature.Egg, error) {
	var out creature.Egg
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.UpdateEgg(index, patch)
		return err
	})
	return out, err
}

func (s *GameState) AddPhoto(p creature.Photo) (creature.Photo, error) {
	var out creature.Photo
	err := s.Update(func(tx *Tx) error {
		var err error
		out, err = tx.AddPhoto(p)
		return err
	})
	return out, err
}

// DecrementCapsules removes one capsule. It reports false if none were left.
func (s *GameState) DecrementCapsules() bool {
	var ok bool
	_ = s.Update(func(tx *Tx) error {
		ok = tx.DecrementCapsules()
		return nil
	})
	return ok
}

// IncrementCapsules adds one capsule. It reports false if already at the cap.
func (s *GameState) IncrementCapsules() bool {
	var ok bool
	_ = s.Update(func(tx *Tx) error {
		ok = tx.IncrementCapsules()
		return nil
	})
	return ok
}

// RegenerateCapsules credits every capsule whose regeneration interval has
// elapsed and returns how many were added.
func (s *GameState) RegenerateCapsules() int {
	var n int
	_ = s.Update(func(tx *Tx) error {
		n = tx.RegenerateCapsules()
		return nil
	})
	return n
}

func (s *GameState) IncrementTokens(n int64) error {
	return s.Update(func(tx *Tx) error {
		return tx.IncrementTokens(n)
	})
}

// DecrementTokens spends n tokens. It reports false, changing nothing, if the
// balance is insufficient.
func (s *GameState) DecrementTokens(n int64) bool {
	var ok bool
	_ = s.Update(func(tx *Tx) error {
		ok = tx.DecrementTokens(n)
		return nil
	})
	return ok
}

func (s *GameState) StartBreedingCooldown(instanceID string) error {
	return s.Update(func(tx *Tx) error {
		return tx.StartBreedingCooldown(instanceID)
	})
}

// IsBreedingAvailable reports whether the creature may breed now. Expired
// cooldowns are cleared before answering.
func (s *GameState) IsBreedingAvailable(instanceID string) bool {
	var ok bool
	_ = s.Update(func(tx *Tx) error {
		ok = tx.IsBreedingAvailable(instanceID)
		return nil
	})
	return ok
}

// BreedingCooldownProgress reports cooldown progress. Expired cooldowns are
// cleared before answering.
func (s *GameState) BreedingCooldownProgress(instanceID string) CooldownProgress {
	var p CooldownProgress
	_ = s.Update(func(tx *Tx) error {
		p = tx.BreedingCooldownProgress(instanceID)
		return nil
	})
	return p
}

// ActiveCooldowns returns the unexpired cooldowns keyed by instance ID.
func (s *GameState) ActiveCooldowns() map[string]creature.BreedingCooldown {
	var out map[string]creature.BreedingCooldown
	_ = s.Update(func(tx *Tx) error {
		out = tx.ActiveCooldowns()
		return nil
	})
	return out
}

// CleanExpiredCooldowns sweeps the cooldown table and returns the cleared IDs.
func (s *GameState) CleanExpiredCooldowns() []string {
	var out []string
	_ = s.Update(func(tx *Tx) error {
		out = tx.CleanExpiredCooldowns()
		return nil
	})
	return out
}

// Reset returns the game to a fresh initial state.
func (s *GameState) Reset() {
	_ = s.Update(func(tx *Tx) error {
		tx.Reset()
		return nil
	})
}
