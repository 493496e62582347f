package sim

// CombatTracker flips a caster between out-of-combat and in-combat based on
// recent hostile activity. Only the boolean edges fire events; refreshing the
// timer while already in combat is silent.
type CombatTracker struct {
	inCombat bool
	elapsed  float64
	duration float64

	Entered Signal[struct{}]
	Exited  Signal[struct{}]
}

// NewCombatTracker constructs an out-of-combat tracker. duration is how long
// the flag lingers after the last combat action.
func NewCombatTracker(duration float64) *CombatTracker {
	if duration < 0 {
		duration = 0
	}
	return &CombatTracker{duration: duration}
}

// InCombat reports the current flag.
func (t *CombatTracker) InCombat() bool { return t.inCombat }

// MarkAction records a combat action: an offensive cast, damage dealt or
// taken, or a heal landing on someone else. Self-heals must not reach here.
func (t *CombatTracker) MarkAction() {
	t.elapsed = 0
	if t.inCombat {
		return
	}
	t.inCombat = true
	t.Entered.Emit(struct{}{})
}

// ForceSet overwrites the flag with an authoritative value without firing
// edge events. Observers reconciling snapshots use this.
func (t *CombatTracker) ForceSet(inCombat bool) {
	t.inCombat = inCombat
	if !inCombat {
		t.elapsed = 0
	}
}

// Tick advances the decay timer; the flag drops only here, never inline with
// the triggering action.
func (t *CombatTracker) Tick(dt float64) {
	if !t.inCombat || dt <= 0 {
		return
	}
	t.elapsed += dt
	if t.elapsed < t.duration {
		return
	}
	t.inCombat = false
	t.elapsed = 0
	t.Exited.Emit(struct{}{})
}
