package sim

import "math"

const reductionEpsilon = 1e-6

// CooldownTracker owns per-slot cooldown decay, the per-slot channel locks,
// and the caster-wide global cooldown gate. Locks are independent per slot;
// nothing enforces exclusivity across slots.
type CooldownTracker struct {
	remaining map[int]float64
	locked    map[int]bool

	global         float64
	globalDuration float64

	reduction    float64
	maxReduction float64

	// ReductionChanged fires when the cooldown-reduction fraction actually
	// moves, using approximate comparison to absorb float noise.
	ReductionChanged Signal[float64]
	// SlotReady fires when a slot's remaining time decays to zero.
	SlotReady Signal[int]

	scratch []int
}

// NewCooldownTracker constructs a tracker with every slot ready.
// globalDuration is the universal lockout applied after any successful cast;
// maxReduction caps the cooldown-reduction fraction.
func NewCooldownTracker(globalDuration, maxReduction float64) *CooldownTracker {
	if globalDuration < 0 {
		globalDuration = 0
	}
	if maxReduction < 0 {
		maxReduction = 0
	}
	if maxReduction > 1 {
		maxReduction = 1
	}
	return &CooldownTracker{
		remaining:      make(map[int]float64),
		locked:         make(map[int]bool),
		globalDuration: globalDuration,
		maxReduction:   maxReduction,
	}
}

// Remaining reports the seconds left on a slot's cooldown, never negative.
func (t *CooldownTracker) Remaining(slot int) float64 {
	return t.remaining[slot]
}

// GlobalRemaining reports the seconds left on the global cooldown.
func (t *CooldownTracker) GlobalRemaining() float64 { return t.global }

// GlobalActive reports whether the universal lockout is still running.
func (t *CooldownTracker) GlobalActive() bool { return t.global > 0 }

// GlobalDuration reports the configured universal lockout length.
func (t *CooldownTracker) GlobalDuration() float64 { return t.globalDuration }

// Locked reports whether the slot is held by an in-flight channel.
func (t *CooldownTracker) Locked(slot int) bool { return t.locked[slot] }

// Lock marks a slot as channeling.
func (t *CooldownTracker) Lock(slot int) { t.locked[slot] = true }

// Unlock releases a channel lock. Safe to call on an unlocked slot.
func (t *CooldownTracker) Unlock(slot int) { delete(t.locked, slot) }

// Ready reports whether the slot can cast: cooldown elapsed, not locked, and
// no global cooldown outstanding.
func (t *CooldownTracker) Ready(slot int) bool {
	return t.remaining[slot] <= 0 && !t.locked[slot] && !t.GlobalActive()
}

// Reduction reports the current cooldown-reduction fraction.
func (t *CooldownTracker) Reduction() float64 { return t.reduction }

// SetReduction clamps the fraction to [0, maxReduction] and fires
// ReductionChanged only on a real change.
func (t *CooldownTracker) SetReduction(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > t.maxReduction {
		fraction = t.maxReduction
	}
	if math.Abs(fraction-t.reduction) < reductionEpsilon {
		return
	}
	t.reduction = fraction
	t.ReductionChanged.Emit(fraction)
}

// Start places a slot on cooldown for base seconds scaled by the current
// reduction, clamped to [0, base], and returns the applied duration.
func (t *CooldownTracker) Start(slot int, base float64) float64 {
	if base < 0 {
		base = 0
	}
	duration := base * (1 - t.reduction)
	if duration < 0 {
		duration = 0
	}
	if duration > base {
		duration = base
	}
	t.remaining[slot] = duration
	return duration
}

// TriggerGlobal arms the universal lockout.
func (t *CooldownTracker) TriggerGlobal() {
	t.global = t.globalDuration
}

// ForceRemaining overwrites a slot's remaining time with an authoritative
// value. Observers reconciling a CastResult use this instead of re-deriving
// the reduced duration.
func (t *CooldownTracker) ForceRemaining(slot int, seconds float64) {
	if seconds <= 0 {
		delete(t.remaining, slot)
		return
	}
	t.remaining[slot] = seconds
}

// ForceGlobal overwrites the global cooldown with an authoritative value.
func (t *CooldownTracker) ForceGlobal(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	t.global = seconds
}

// Tick decays every running cooldown by dt seconds. Expired slots are
// collected first and removed after iteration so the map is never mutated
// while being walked.
func (t *CooldownTracker) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	if t.global > 0 {
		t.global -= dt
		if t.global < 0 {
			t.global = 0
		}
	}
	t.scratch = t.scratch[:0]
	for slot, remaining := range t.remaining {
		remaining -= dt
		if remaining <= 0 {
			t.scratch = append(t.scratch, slot)
			continue
		}
		t.remaining[slot] = remaining
	}
	for _, slot := range t.scratch {
		delete(t.remaining, slot)
		t.SlotReady.Emit(slot)
	}
}
