package incubation

import (
	"testing"
	"time"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/random"
)

var testSettings = Settings{
	MinHatchMs: 60_000,
	MaxHatchMs: 180_000,
	FloorMs:    30_000,
	WarmUpMs:   5_000,
}

func fixedNow() time.Time {
	return time.UnixMilli(1_700_000_000_000)
}

func TestCalculateProgress_ReadyAtFullDuration(t *testing.T) {
	now := fixedNow()
	egg := creature.Egg{
		CreatedAt:       clock.Millis(now) - 60_000,
		LastWarmedAt:    clock.Millis(now) - 60_000,
		HatchDurationMs: 60_000,
	}

	p := CalculateProgress(egg, now)
	if p.Percent != 100 || !p.IsReady {
		t.Fatalf("CalculateProgress() = %+v, want 100%% ready", p)
	}
	if StatusOf(egg, now) != StatusReady {
		t.Errorf("StatusOf() = %s, want READY", StatusOf(egg, now))
	}
}

func TestCalculateProgress_Partial(t *testing.T) {
	now := fixedNow()
	egg := creature.Egg{CreatedAt: clock.Millis(now) - 15_000, HatchDurationMs: 60_000}

	p := CalculateProgress(egg, now)
	if p.Percent != 25 {
		t.Errorf("Percent = %v, want 25", p.Percent)
	}
	if p.IsReady {
		t.Error("IsReady = true, want false")
	}
	if p.Remaining != 45*time.Second || p.RemainingMs != 45_000 {
		t.Errorf("Remaining = %v (%d ms), want 45s", p.Remaining, p.RemainingMs)
	}
}

func TestCalculateProgress_Malformed(t *testing.T) {
	now := fixedNow()
	nowMs := clock.Millis(now)

	tests := []struct {
		name string
		egg  creature.Egg
	}{
		{"zero created", creature.Egg{HatchDurationMs: 60_000}},
		{"negative created", creature.Egg{CreatedAt: -5, HatchDurationMs: 60_000}},
		{"future created", creature.Egg{CreatedAt: nowMs + 1000, HatchDurationMs: 60_000}},
		{"zero duration", creature.Egg{CreatedAt: nowMs - 1000}},
		{"negative duration", creature.Egg{CreatedAt: nowMs - 1000, HatchDurationMs: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculateProgress(tt.egg, now)
			if p.Percent != 0 || p.IsReady {
				t.Errorf("CalculateProgress() = %+v, want zero progress", p)
			}
		})
	}
}

func TestWarmUp_MonotonicAndFloored(t *testing.T) {
	now := fixedNow()
	egg := creature.Egg{CreatedAt: clock.Millis(now), HatchDurationMs: 62_000}

	prev := egg.HatchDurationMs
	for i := 0; i < 20; i++ {
		now = now.Add(time.Second)
		egg = WarmUp(egg, now, testSettings)
		if egg.HatchDurationMs > prev {
			t.Fatalf("warm-up %d increased duration: %d > %d", i, egg.HatchDurationMs, prev)
		}
		if egg.HatchDurationMs < testSettings.FloorMs {
			t.Fatalf("warm-up %d went below floor: %d", i, egg.HatchDurationMs)
		}
		if egg.LastWarmedAt != clock.Millis(now) {
			t.Fatalf("LastWarmedAt = %d, want %d", egg.LastWarmedAt, clock.Millis(now))
		}
		prev = egg.HatchDurationMs
	}
	if egg.HatchDurationMs != testSettings.FloorMs {
		t.Errorf("HatchDurationMs = %d, want floor %d", egg.HatchDurationMs, testSettings.FloorMs)
	}
}

func TestWarmUp_DoesNotModifyArgument(t *testing.T) {
	orig := creature.Egg{CreatedAt: 1, LastWarmedAt: 1, HatchDurationMs: 90_000, Parent: &creature.ParentRef{Name: "eevee"}}

	out := WarmUp(orig, fixedNow(), testSettings)
	out.Parent.Name = "flareon"

	if orig.HatchDurationMs != 90_000 || orig.LastWarmedAt != 1 {
		t.Errorf("original egg modified: %+v", orig)
	}
	if orig.Parent.Name != "eevee" {
		t.Error("WarmUp shares Parent with the original")
	}
	if out.HatchDurationMs != 85_000 {
		t.Errorf("HatchDurationMs = %d, want 85000", out.HatchDurationMs)
	}
}

func TestWarmUp_NeverRaisesBelowFloorEgg(t *testing.T) {
	egg := creature.Egg{CreatedAt: 1, HatchDurationMs: 10_000}
	out := WarmUp(egg, fixedNow(), testSettings)
	if out.HatchDurationMs != 10_000 {
		t.Errorf("HatchDurationMs = %d, want unchanged 10000", out.HatchDurationMs)
	}
}

func TestWarmUp_ReadyStaysReady(t *testing.T) {
	now := fixedNow()
	egg := creature.Egg{CreatedAt: clock.Millis(now) - 70_000, HatchDurationMs: 60_000}
	if !CalculateProgress(egg, now).IsReady {
		t.Fatal("precondition: egg should be ready")
	}
	egg = WarmUp(egg, now, testSettings)
	if !CalculateProgress(egg, now).IsReady {
		t.Error("warm-up made a ready egg incubate again")
	}
}

func TestEngine_CreateEgg(t *testing.T) {
	clk := clock.NewFake(fixedNow())

	tests := []struct {
		name  string
		float float64
		want  int64
	}{
		{"low end", 0, 60_000},
		{"high end", 0.9999999, 180_000},
		{"midpoint", 0.5, 120_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testSettings, clk, &random.Scripted{Floats: []float64{tt.float}})
			egg := e.CreateEgg(nil)

			if egg.HatchDurationMs != tt.want {
				t.Errorf("HatchDurationMs = %d, want %d", egg.HatchDurationMs, tt.want)
			}
			if egg.CreatedAt != clock.Millis(fixedNow()) || egg.LastWarmedAt != egg.CreatedAt {
				t.Errorf("timestamps = %d/%d, want both %d", egg.CreatedAt, egg.LastWarmedAt, clock.Millis(fixedNow()))
			}
			if egg.IsBreedingEgg || egg.Parent != nil {
				t.Error("egg without parent should not be a breeding egg")
			}
		})
	}
}

func TestEngine_CreateBreedingEgg(t *testing.T) {
	e := New(testSettings, clock.NewFake(fixedNow()), &random.Scripted{})
	parent := &creature.Creature{InstanceID: "p1", SpeciesID: 133, Name: "eevee"}

	egg := e.CreateEgg(parent)
	if !egg.IsBreedingEgg {
		t.Error("IsBreedingEgg = false, want true")
	}
	if egg.Parent == nil || egg.Parent.SpeciesID != 133 || egg.Parent.InstanceID != "p1" {
		t.Errorf("Parent = %+v", egg.Parent)
	}
}

func TestEngine_ProgressFollowsClock(t *testing.T) {
	clk := clock.NewFake(fixedNow())
	e := New(testSettings, clk, &random.Scripted{})
	egg := e.CreateEgg(nil)

	if e.Progress(egg).IsReady {
		t.Fatal("fresh egg should not be ready")
	}
	clk.Advance(time.Duration(egg.HatchDurationMs) * time.Millisecond)
	if !e.Progress(egg).IsReady {
		t.Error("egg should be ready after its hatch duration")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{1500 * time.Millisecond, "2s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{time.Hour + 3*time.Second, "1h 0m 3s"},
	}

	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
