package sim

import "testing"

func TestManaPoolTryConsume(t *testing.T) {
	tests := []struct {
		name        string
		start       float64
		cost        float64
		wantOK      bool
		wantCurrent float64
	}{
		{name: "exact cost", start: 30, cost: 30, wantOK: true, wantCurrent: 0},
		{name: "partial cost", start: 100, cost: 30, wantOK: true, wantCurrent: 70},
		{name: "insufficient", start: 10, cost: 30, wantOK: false, wantCurrent: 10},
		{name: "zero cost is a no-op success", start: 50, cost: 0, wantOK: true, wantCurrent: 50},
		{name: "negative cost is a no-op success", start: 50, cost: -5, wantOK: true, wantCurrent: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewManaPool(100, 0, 1)
			pool.ForceSet(tt.start)
			if got := pool.TryConsume(tt.cost); got != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, got)
			}
			if got := pool.Current(); got != tt.wantCurrent {
				t.Fatalf("expected %v mana, got %v", tt.wantCurrent, got)
			}
		})
	}
}

func TestManaPoolFailedConsumeDoesNotNotify(t *testing.T) {
	pool := NewManaPool(100, 0, 1)
	pool.ForceSet(10)

	notified := 0
	pool.Changed.Subscribe(func(ManaChange) { notified++ })

	if pool.TryConsume(30) {
		t.Fatalf("expected consume to fail")
	}
	if notified != 0 {
		t.Fatalf("expected no notification on failed consume, got %d", notified)
	}
}

func TestManaPoolRestore(t *testing.T) {
	pool := NewManaPool(100, 0, 1)
	pool.ForceSet(90)

	notified := 0
	pool.Changed.Subscribe(func(ManaChange) { notified++ })

	pool.Restore(0)
	pool.Restore(-10)
	if notified != 0 {
		t.Fatalf("expected no notification for non-positive restore, got %d", notified)
	}
	if got := pool.Current(); got != 90 {
		t.Fatalf("expected 90 mana, got %v", got)
	}

	pool.Restore(25)
	if got := pool.Current(); got != 100 {
		t.Fatalf("expected restore to clamp at max, got %v", got)
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}

	// Already full; a further restore moves nothing and stays silent.
	pool.Restore(5)
	if notified != 1 {
		t.Fatalf("expected no notification at full pool, got %d", notified)
	}
}

func TestManaPoolRegenerateTick(t *testing.T) {
	pool := NewManaPool(100, 4, 2.5)
	pool.ForceSet(0)

	pool.RegenerateTick(1, true)
	if got := pool.Current(); got != 4 {
		t.Fatalf("expected 4 mana after in-combat tick, got %v", got)
	}

	pool.RegenerateTick(1, false)
	if got := pool.Current(); got != 14 {
		t.Fatalf("expected idle multiplier to apply, got %v", got)
	}

	pool.ForceSet(99)
	pool.RegenerateTick(10, false)
	if got := pool.Current(); got != 100 {
		t.Fatalf("expected regen to clamp at max, got %v", got)
	}
}

func TestManaPoolBoundsInvariant(t *testing.T) {
	pool := NewManaPool(100, 0, 1)

	pool.ForceSet(-50)
	if got := pool.Current(); got != 0 {
		t.Fatalf("expected clamp at zero, got %v", got)
	}
	pool.ForceSet(500)
	if got := pool.Current(); got != 100 {
		t.Fatalf("expected clamp at max, got %v", got)
	}
}

func TestManaPoolChangeCarriesPrevious(t *testing.T) {
	pool := NewManaPool(100, 0, 1)

	var change ManaChange
	pool.Changed.Subscribe(func(c ManaChange) { change = c })

	pool.TryConsume(30)
	if change.Previous != 100 || change.Current != 70 {
		t.Fatalf("expected change 100 -> 70, got %v -> %v", change.Previous, change.Current)
	}
}
