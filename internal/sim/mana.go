package sim

// ManaChange reports a mutation of a caster's mana pool.
type ManaChange struct {
	Previous float64
	Current  float64
}

// ManaPool tracks a regenerating resource pool. Regeneration runs faster out
// of combat; every mutation is clamped to [0, max].
type ManaPool struct {
	current        float64
	max            float64
	regenRate      float64
	idleMultiplier float64

	// Changed fires only when the stored value actually moves.
	Changed Signal[ManaChange]
}

// NewManaPool constructs a full pool. regenRate is mana per second while in
// combat; idleMultiplier scales it while out of combat.
func NewManaPool(max, regenRate, idleMultiplier float64) *ManaPool {
	if max < 0 {
		max = 0
	}
	if idleMultiplier < 1 {
		idleMultiplier = 1
	}
	return &ManaPool{current: max, max: max, regenRate: regenRate, idleMultiplier: idleMultiplier}
}

// Current reports the stored mana.
func (p *ManaPool) Current() float64 { return p.current }

// Max reports the pool ceiling.
func (p *ManaPool) Max() float64 { return p.max }

// HasSufficient reports whether cost could be consumed right now.
// Non-positive costs always succeed, mirroring TryConsume.
func (p *ManaPool) HasSufficient(cost float64) bool {
	return cost <= 0 || p.current >= cost
}

// TryConsume atomically subtracts cost, failing without mutation when the
// pool is short. A non-positive cost is a no-op reporting success, so free
// abilities never fail on resources.
func (p *ManaPool) TryConsume(cost float64) bool {
	if cost <= 0 {
		return true
	}
	if p.current < cost {
		return false
	}
	p.set(p.current - cost)
	return true
}

// Restore adds amount, clamped to the ceiling. Zero and negative amounts are
// silently ignored; Changed fires only when the value actually moved.
func (p *ManaPool) Restore(amount float64) {
	if amount <= 0 {
		return
	}
	p.set(p.current + amount)
}

// RegenerateTick advances passive regeneration by dt seconds.
func (p *ManaPool) RegenerateTick(dt float64, inCombat bool) {
	if dt <= 0 || p.regenRate <= 0 {
		return
	}
	gain := p.regenRate * dt
	if !inCombat {
		gain *= p.idleMultiplier
	}
	p.set(p.current + gain)
}

// ForceSet overwrites the stored value with an authoritative one. Observers
// reconciling a CastResult use this instead of re-deriving consumption.
func (p *ManaPool) ForceSet(value float64) {
	p.set(value)
}

func (p *ManaPool) set(value float64) {
	if value < 0 {
		value = 0
	}
	if value > p.max {
		value = p.max
	}
	if value == p.current {
		return
	}
	previous := p.current
	p.current = value
	p.Changed.Emit(ManaChange{Previous: previous, Current: value})
}
