// Package incubation computes egg progress from timestamps and applies
// warm-up reductions. Every function is pure: eggs are passed and returned
// by value.
package incubation

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/random"
)

// Status is the lifecycle state of an egg.
type Status string

const (
	StatusIncubating Status = "INCUBATING"
	StatusReady      Status = "READY"
)

// Settings bounds hatch durations. All values are milliseconds.
type Settings struct {
	MinHatchMs int64
	MaxHatchMs int64
	FloorMs    int64
	WarmUpMs   int64
}

// SettingsFrom extracts incubation settings from the game config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		MinHatchMs: cfg.HatchMinMs,
		MaxHatchMs: cfg.HatchMaxMs,
		FloorMs:    cfg.HatchFloorMs,
		WarmUpMs:   cfg.WarmUpStepMs,
	}
}

// Progress describes how far an egg is from hatching.
type Progress struct {
	Percent     float64       `json:"percent"`
	IsReady     bool          `json:"is_ready"`
	Remaining   time.Duration `json:"-"`
	RemainingMs int64         `json:"remaining_ms"`
}

// Engine creates and advances eggs.
type Engine struct {
	settings Settings
	clock    clock.Clock
	rand     random.Source
}

// New creates an incubation engine.
func New(settings Settings, clk clock.Clock, src random.Source) *Engine {
	return &Engine{settings: settings, clock: clk, rand: src}
}

// Settings returns the engine's settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// CreateEgg returns a new egg with a hatch duration drawn from [MinHatchMs, MaxHatchMs].
// A non-nil parent makes it a breeding egg. InstanceID is assigned by the collection.
func (e *Engine) CreateEgg(parent *creature.Creature) creature.Egg {
	now := clock.Millis(e.clock.Now())
	duration := random.Between(e.rand, e.settings.MinHatchMs, e.settings.MaxHatchMs)
	if duration < e.settings.FloorMs {
		duration = e.settings.FloorMs
	}

	egg := creature.Egg{
		CreatedAt:       now,
		LastWarmedAt:    now,
		HatchDurationMs: duration,
	}
	if parent != nil {
		egg.IsBreedingEgg = true
		egg.Parent = &creature.ParentRef{
			InstanceID: parent.InstanceID,
			SpeciesID:  parent.SpeciesID,
			Name:       parent.Name,
		}
	}
	return egg
}

// Progress evaluates egg at the engine's current time.
func (e *Engine) Progress(egg creature.Egg) Progress {
	return CalculateProgress(egg, e.clock.Now())
}

// WarmUp shakes egg at the engine's current time.
func (e *Engine) WarmUp(egg creature.Egg) creature.Egg {
	return WarmUp(egg, e.clock.Now(), e.settings)
}

// CalculateProgress returns min(100, elapsed/duration*100).
// Malformed eggs (no creation time, creation in the future, non-positive
// duration) yield a zero, not-ready progress.
func CalculateProgress(egg creature.Egg, now time.Time) Progress {
	nowMs := clock.Millis(now)
	if egg.CreatedAt <= 0 || egg.HatchDurationMs <= 0 || egg.CreatedAt > nowMs {
		return Progress{}
	}

	elapsed := nowMs - egg.CreatedAt
	if elapsed >= egg.HatchDurationMs {
		return Progress{Percent: 100, IsReady: true}
	}

	remaining := egg.HatchDurationMs - elapsed
	return Progress{
		Percent:     float64(elapsed) / float64(egg.HatchDurationMs) * 100,
		Remaining:   time.Duration(remaining) * time.Millisecond,
		RemainingMs: remaining,
	}
}

// StatusOf reports whether egg is ready to hatch at now.
func StatusOf(egg creature.Egg, now time.Time) Status {
	if CalculateProgress(egg, now).IsReady {
		return StatusReady
	}
	return StatusIncubating
}

// WarmUp returns a copy of egg with LastWarmedAt = now and the hatch duration
// reduced by one step, never below the floor and never increased.
// The argument is not modified.
func WarmUp(egg creature.Egg, now time.Time, s Settings) creature.Egg {
	out := egg.Clone()
	out.LastWarmedAt = clock.Millis(now)

	reduced := egg.HatchDurationMs - s.WarmUpMs
	if reduced < s.FloorMs {
		reduced = s.FloorMs
	}
	if reduced < egg.HatchDurationMs {
		out.HatchDurationMs = reduced
	}
	return out
}

// FormatRemaining renders d as "1h 2m 3s", dropping leading zero units.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	total := int64((d + time.Second - 1) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if h > 0 || m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, " ")
}
