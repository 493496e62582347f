package sim

import "testing"

func TestCombatTrackerEdgeEvents(t *testing.T) {
	tracker := NewCombatTracker(5)

	entered := 0
	exited := 0
	tracker.Entered.Subscribe(func(struct{}) { entered++ })
	tracker.Exited.Subscribe(func(struct{}) { exited++ })

	tracker.MarkAction()
	if !tracker.InCombat() {
		t.Fatalf("expected in-combat after action")
	}
	if entered != 1 {
		t.Fatalf("expected one entered event, got %d", entered)
	}

	// Refreshing while already in combat is silent.
	tracker.MarkAction()
	tracker.MarkAction()
	if entered != 1 {
		t.Fatalf("expected refresh to be silent, got %d entered events", entered)
	}
	if exited != 0 {
		t.Fatalf("expected no exit yet, got %d", exited)
	}
}

func TestCombatTrackerDecay(t *testing.T) {
	tracker := NewCombatTracker(5)
	tracker.MarkAction()

	exited := 0
	tracker.Exited.Subscribe(func(struct{}) { exited++ })

	tracker.Tick(4.9)
	if !tracker.InCombat() {
		t.Fatalf("expected flag to survive until duration elapses")
	}

	// A fresh action resets the decay clock.
	tracker.MarkAction()
	tracker.Tick(4.9)
	if !tracker.InCombat() {
		t.Fatalf("expected refreshed timer to keep the flag")
	}

	tracker.Tick(0.2)
	if tracker.InCombat() {
		t.Fatalf("expected flag to drop after duration")
	}
	if exited != 1 {
		t.Fatalf("expected one exited event, got %d", exited)
	}
}

func TestCombatTrackerForceSetIsSilent(t *testing.T) {
	tracker := NewCombatTracker(5)

	entered := 0
	exited := 0
	tracker.Entered.Subscribe(func(struct{}) { entered++ })
	tracker.Exited.Subscribe(func(struct{}) { exited++ })

	tracker.ForceSet(true)
	if !tracker.InCombat() {
		t.Fatalf("expected forced in-combat")
	}
	tracker.ForceSet(false)
	if tracker.InCombat() {
		t.Fatalf("expected forced out-of-combat")
	}
	if entered != 0 || exited != 0 {
		t.Fatalf("expected force-set to fire no events, got %d entered %d exited", entered, exited)
	}
}
