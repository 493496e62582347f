package sim

import (
	"math"
	"testing"
)

func TestCooldownStartAppliesReduction(t *testing.T) {
	tests := []struct {
		name      string
		reduction float64
		base      float64
		want      float64
	}{
		{name: "no reduction", reduction: 0, base: 5, want: 5},
		{name: "forty percent", reduction: 0.4, base: 10, want: 6},
		{name: "clamped to cap", reduction: 0.9, base: 10, want: 6},
		{name: "zero base", reduction: 0.4, base: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewCooldownTracker(0, 0.4)
			tracker.SetReduction(tt.reduction)
			got := tracker.Start(0, tt.base)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected duration %v, got %v", tt.want, got)
			}
			if math.Abs(tracker.Remaining(0)-tt.want) > 1e-9 {
				t.Fatalf("expected remaining %v, got %v", tt.want, tracker.Remaining(0))
			}
		})
	}
}

func TestCooldownReductionNotifiesOnlyOnRealChange(t *testing.T) {
	tracker := NewCooldownTracker(0, 1)

	notified := 0
	tracker.ReductionChanged.Subscribe(func(float64) { notified++ })

	tracker.SetReduction(0.25)
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}

	// Within epsilon of the stored value; must stay silent.
	tracker.SetReduction(0.25 + 1e-9)
	if notified != 1 {
		t.Fatalf("expected epsilon-equal set to be silent, got %d notifications", notified)
	}

	tracker.SetReduction(0.3)
	if notified != 2 {
		t.Fatalf("expected second notification, got %d", notified)
	}
}

func TestCooldownTickDecaysToZeroAndFiresReady(t *testing.T) {
	tracker := NewCooldownTracker(0, 0)
	tracker.Start(2, 1.0)

	var ready []int
	tracker.SlotReady.Subscribe(func(slot int) { ready = append(ready, slot) })

	previous := tracker.Remaining(2)
	for i := 0; i < 3; i++ {
		tracker.Tick(0.4)
		current := tracker.Remaining(2)
		if current > previous {
			t.Fatalf("expected monotonic decay, went %v -> %v", previous, current)
		}
		previous = current
	}
	if got := tracker.Remaining(2); got != 0 {
		t.Fatalf("expected remaining 0, got %v", got)
	}
	if len(ready) != 1 || ready[0] != 2 {
		t.Fatalf("expected one ready event for slot 2, got %v", ready)
	}

	// Stays at zero without re-firing.
	tracker.Tick(0.4)
	if len(ready) != 1 {
		t.Fatalf("expected no repeat ready event, got %v", ready)
	}
}

func TestCooldownTickExpiresMultipleSlots(t *testing.T) {
	tracker := NewCooldownTracker(0, 0)
	tracker.Start(0, 0.5)
	tracker.Start(1, 0.5)
	tracker.Start(2, 5)

	tracker.Tick(1)

	if tracker.Remaining(0) != 0 || tracker.Remaining(1) != 0 {
		t.Fatalf("expected slots 0 and 1 expired, got %v and %v", tracker.Remaining(0), tracker.Remaining(1))
	}
	if got := tracker.Remaining(2); got != 4 {
		t.Fatalf("expected slot 2 at 4 seconds, got %v", got)
	}
}

func TestCooldownReadiness(t *testing.T) {
	tracker := NewCooldownTracker(0.8, 0)

	if !tracker.Ready(0) {
		t.Fatalf("expected fresh slot to be ready")
	}

	tracker.Lock(0)
	if tracker.Ready(0) {
		t.Fatalf("expected locked slot to be unready")
	}
	tracker.Unlock(0)

	tracker.TriggerGlobal()
	if tracker.Ready(0) {
		t.Fatalf("expected global cooldown to gate readiness")
	}
	tracker.Tick(1)
	if !tracker.Ready(0) {
		t.Fatalf("expected readiness after global elapsed")
	}

	tracker.Start(0, 3)
	if tracker.Ready(0) {
		t.Fatalf("expected cooling slot to be unready")
	}
}

func TestCooldownForceSetters(t *testing.T) {
	tracker := NewCooldownTracker(0.8, 0)
	tracker.Start(1, 10)

	tracker.ForceRemaining(1, 2.5)
	if got := tracker.Remaining(1); got != 2.5 {
		t.Fatalf("expected forced remaining 2.5, got %v", got)
	}

	tracker.ForceRemaining(1, 0)
	if got := tracker.Remaining(1); got != 0 {
		t.Fatalf("expected forced clear, got %v", got)
	}

	tracker.ForceGlobal(0.3)
	if got := tracker.GlobalRemaining(); got != 0.3 {
		t.Fatalf("expected forced global 0.3, got %v", got)
	}
}
