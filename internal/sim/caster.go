package sim

import (
	"time"

	"riftward/server/internal/ability"
)

// ActiveBuff is a timed modifier applied through the buff capability.
type ActiveBuff struct {
	Kind      string
	Value     float64
	Remaining float64
}

// Caster owns one actor's mutable casting state. A Caster is mutated only by
// the simulation goroutine that owns its world; it also implements the target
// capabilities so casters can hit each other.
type Caster struct {
	ID   string
	Team int
	X    float64
	Y    float64

	Mana      *ManaPool
	Cooldowns *CooldownTracker
	Combat    *CombatTracker

	health    float64
	maxHealth float64

	slots []*ability.Definition
	buffs []ActiveBuff

	// HealthChanged fires on damage and healing; BuffApplied on each buff.
	HealthChanged Signal[float64]
	BuffApplied   Signal[ActiveBuff]
}

// CasterConfig bundles the tunables needed to build a caster.
type CasterConfig struct {
	ID             string
	Team           int
	X, Y           float64
	MaxHealth      float64
	MaxMana        float64
	ManaRegen      float64
	IdleRegenBoost float64
	GlobalCooldown float64
	MaxReduction   float64
	CombatDuration float64
}

// NewCaster builds a caster at full health and mana with every slot empty.
func NewCaster(cfg CasterConfig) *Caster {
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = 1
	}
	return &Caster{
		ID:        cfg.ID,
		Team:      cfg.Team,
		X:         cfg.X,
		Y:         cfg.Y,
		Mana:      NewManaPool(cfg.MaxMana, cfg.ManaRegen, cfg.IdleRegenBoost),
		Cooldowns: NewCooldownTracker(cfg.GlobalCooldown, cfg.MaxReduction),
		Combat:    NewCombatTracker(cfg.CombatDuration),
		health:    cfg.MaxHealth,
		maxHealth: cfg.MaxHealth,
	}
}

// SetAbility assigns a definition to a slot, growing the slot container as
// needed. New slots created by growth stay explicitly empty.
func (c *Caster) SetAbility(slot int, def *ability.Definition) bool {
	if slot < 0 {
		return false
	}
	if slot >= len(c.slots) {
		grown := make([]*ability.Definition, slot+1)
		copy(grown, c.slots)
		c.slots = grown
	}
	c.slots[slot] = def
	return true
}

// AddAbility appends a definition to the first free slot, growing if none is
// free, and reports the slot index used.
func (c *Caster) AddAbility(def *ability.Definition) int {
	for i, existing := range c.slots {
		if existing == nil {
			c.slots[i] = def
			return i
		}
	}
	c.slots = append(c.slots, def)
	return len(c.slots) - 1
}

// AbilityAt reports the definition slotted at the index, if any.
func (c *Caster) AbilityAt(slot int) (*ability.Definition, bool) {
	if slot < 0 || slot >= len(c.slots) {
		return nil, false
	}
	def := c.slots[slot]
	return def, def != nil
}

// SlotCount reports the current size of the slot container.
func (c *Caster) SlotCount() int { return len(c.slots) }

// ActorID implements the target contract.
func (c *Caster) ActorID() string { return c.ID }

// TeamID implements the target contract.
func (c *Caster) TeamID() int { return c.Team }

// Position implements the target contract.
func (c *Caster) Position() (float64, float64) { return c.X, c.Y }

// Health reports remaining health.
func (c *Caster) Health() float64 { return c.health }

// MaxHealth reports the health ceiling.
func (c *Caster) MaxHealth() float64 { return c.maxHealth }

// Dead reports whether health has been exhausted.
func (c *Caster) Dead() bool { return c.health <= 0 }

// TakeDamage subtracts health, clamped at zero, and marks the victim as in
// combat.
func (c *Caster) TakeDamage(amount float64) {
	if amount <= 0 || c.Dead() {
		return
	}
	c.health -= amount
	if c.health < 0 {
		c.health = 0
	}
	c.Combat.MarkAction()
	c.HealthChanged.Emit(c.health)
}

// Heal restores health, clamped to the ceiling. Whether the healer enters
// combat is the engine's call; receiving a heal never flips the target.
func (c *Caster) Heal(amount float64) {
	if amount <= 0 || c.Dead() || c.health >= c.maxHealth {
		return
	}
	c.health += amount
	if c.health > c.maxHealth {
		c.health = c.maxHealth
	}
	c.HealthChanged.Emit(c.health)
}

// ForceHealth overwrites health with an authoritative value. Observers apply
// server verdicts through this path instead of re-deriving damage locally.
func (c *Caster) ForceHealth(value float64) {
	if value < 0 {
		value = 0
	}
	if value > c.maxHealth {
		value = c.maxHealth
	}
	if value == c.health {
		return
	}
	c.health = value
	c.HealthChanged.Emit(c.health)
}

// ApplyBuff records a timed modifier. Reapplying a kind refreshes its value
// and duration rather than stacking.
func (c *Caster) ApplyBuff(kind string, value float64, duration time.Duration) {
	buff := ActiveBuff{Kind: kind, Value: value, Remaining: duration.Seconds()}
	for i := range c.buffs {
		if c.buffs[i].Kind == kind {
			c.buffs[i] = buff
			c.BuffApplied.Emit(buff)
			return
		}
	}
	c.buffs = append(c.buffs, buff)
	c.BuffApplied.Emit(buff)
}

// Buffs reports a copy of the active buff list.
func (c *Caster) Buffs() []ActiveBuff {
	if len(c.buffs) == 0 {
		return nil
	}
	copied := make([]ActiveBuff, len(c.buffs))
	copy(copied, c.buffs)
	return copied
}

// Tick advances regeneration, cooldown decay, combat decay, and buff expiry.
// Decay runs before cast processing each tick so a cooldown reaching zero now
// is castable this same tick.
func (c *Caster) Tick(dt float64) {
	c.Cooldowns.Tick(dt)
	c.Combat.Tick(dt)
	c.Mana.RegenerateTick(dt, c.Combat.InCombat())
	c.tickBuffs(dt)
}

func (c *Caster) tickBuffs(dt float64) {
	if dt <= 0 || len(c.buffs) == 0 {
		return
	}
	kept := c.buffs[:0]
	for _, buff := range c.buffs {
		buff.Remaining -= dt
		if buff.Remaining > 0 {
			kept = append(kept, buff)
		}
	}
	c.buffs = kept
}
