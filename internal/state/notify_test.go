package state

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/critter/internal/clock"
)

func TestObservers_CalledInRegistrationOrder(t *testing.T) {
	s, _ := newTestState(t)

	var calls []string
	for _, name := range []string{"view", "persist", "log"} {
		s.AddObserver(ObserverFunc(func(Event) error {
			calls = append(calls, name)
			return nil
		}))
	}

	mustAdd(t, s, 1, "bulbasaur")

	if strings.Join(calls, ",") != "view,persist,log" {
		t.Errorf("calls = %v, want registration order", calls)
	}
}

func TestObservers_FailureIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	clk := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	s := New(testSettings, clk, log.New(&buf, "", 0))

	s.AddObserver(ObserverFunc(func(Event) error { return fmt.Errorf("disk full") }))
	s.AddObserver(ObserverFunc(func(Event) error { panic("view crashed") }))
	rec := &recorder{}
	s.AddObserver(rec)

	c, err := s.AddCreature(candidate(1, "bulbasaur"))
	if err != nil {
		t.Fatalf("AddCreature() error = %v, want failures contained", err)
	}
	if c.InstanceID == "" {
		t.Fatal("creature not added")
	}
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != CreatureAdded {
		t.Errorf("later observer events = %v, want CREATURE_ADDED", kinds)
	}

	logged := buf.String()
	if !strings.Contains(logged, "disk full") || !strings.Contains(logged, "view crashed") {
		t.Errorf("log = %q, want both failures logged", logged)
	}
}

func TestRemoveObserver(t *testing.T) {
	s, _ := newTestState(t)
	rec := &recorder{}
	id := s.AddObserver(rec)

	mustAdd(t, s, 1, "bulbasaur")
	if !s.RemoveObserver(id) {
		t.Fatal("RemoveObserver() = false for a registered observer")
	}
	if s.RemoveObserver(id) {
		t.Error("RemoveObserver() = true twice")
	}
	mustAdd(t, s, 4, "charmander")

	if len(rec.kinds()) != 1 {
		t.Errorf("events = %v, want only the one before removal", rec.kinds())
	}
}

func TestEvents_SequencedInCommitOrder(t *testing.T) {
	s, _ := newTestState(t)
	rec := &recorder{}
	s.AddObserver(rec)

	c := mustAdd(t, s, 1, "bulbasaur")
	_ = s.StartBreedingCooldown(c.InstanceID)
	s.DecrementCapsules()
	_ = s.IncrementTokens(3)

	want := []EventKind{CreatureAdded, BreedingCooldownStarted, CapsulesUpdated, TokensUpdated}
	got := rec.kinds()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := 1; i < len(rec.events); i++ {
		if rec.events[i].Seq != rec.events[i-1].Seq+1 {
			t.Errorf("seq %d follows %d", rec.events[i].Seq, rec.events[i-1].Seq)
		}
	}

	payload, ok := rec.events[0].Payload.(CreaturePayload)
	if !ok || payload.Creature.InstanceID != c.InstanceID {
		t.Errorf("payload = %#v, want CreaturePayload for %s", rec.events[0].Payload, c.InstanceID)
	}
}

func TestObserver_MayMutateStateWithoutDeadlock(t *testing.T) {
	s, _ := newTestState(t)
	rec := &recorder{}

	// Reward one token for every new creature.
	s.AddObserver(ObserverFunc(func(ev Event) error {
		if ev.Kind == CreatureAdded {
			return s.IncrementTokens(1)
		}
		return nil
	}))
	s.AddObserver(rec)

	done := make(chan struct{})
	go func() {
		_, _ = s.AddCreature(candidate(1, "bulbasaur"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("observer calling back into the state deadlocked")
	}

	if s.Tokens() != 1 {
		t.Errorf("Tokens() = %d, want 1", s.Tokens())
	}
	want := []EventKind{CreatureAdded, TokensUpdated}
	if fmt.Sprint(rec.kinds()) != fmt.Sprint(want) {
		t.Errorf("kinds = %v, want %v", rec.kinds(), want)
	}
}

func TestObservers_ConcurrentMutators(t *testing.T) {
	s, _ := newTestState(t)
	rec := &recorder{}
	s.AddObserver(rec)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddCreature(candidate(i+1, fmt.Sprintf("c%d", i)))
		}(i)
	}
	wg.Wait()

	if len(s.Creatures()) != 20 {
		t.Fatalf("len(Creatures()) = %d, want 20", len(s.Creatures()))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 20 {
		t.Fatalf("events = %d, want 20", len(rec.events))
	}
	for i := 1; i < len(rec.events); i++ {
		if rec.events[i].Seq <= rec.events[i-1].Seq {
			t.Fatalf("events delivered out of order: %d after %d", rec.events[i].Seq, rec.events[i-1].Seq)
		}
	}
}

func TestNotify_DeliversCustomEvent(t *testing.T) {
	s, _ := newTestState(t)
	rec := &recorder{}
	s.AddObserver(rec)

	s.Notify(StateHydrated, HydratedPayload{Creatures: 2})

	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != StateHydrated {
		t.Errorf("kinds = %v, want STATE_HYDRATED", kinds)
	}
}

func TestObservers_ConcurrentUpdateQueuesBehindDelivery(t *testing.T) {
	s, _ := newTestState(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	rec := &recorder{}
	s.AddObserver(ObserverFunc(func(ev Event) error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return rec.OnEvent(ev)
	}))

	first := make(chan error, 1)
	go func() {
		_, err := s.AddCreature(candidate(1, "bulbasaur"))
		first <- err
	}()
	<-entered

	mustAdd(t, s, 4, "charmander")
	if n := len(rec.kinds()); n != 0 {
		t.Fatalf("events delivered = %d while the first delivery is blocked, want 0", n)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("AddCreature() error = %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 || rec.events[0].Seq >= rec.events[1].Seq {
		t.Fatalf("events = %+v, want both in commit order", rec.events)
	}
}
