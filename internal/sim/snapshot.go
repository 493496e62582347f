package sim

// CasterSnapshot is the wire-friendly copy of one caster's casting state,
// used for join payloads and periodic keyframes. Cooldowns are keyed by slot
// index and carry seconds remaining.
type CasterSnapshot struct {
	ID             string          `json:"id"`
	Team           int             `json:"team"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Health         float64         `json:"health"`
	MaxHealth      float64         `json:"maxHealth"`
	Mana           float64         `json:"mana"`
	MaxMana        float64         `json:"maxMana"`
	InCombat       bool            `json:"inCombat"`
	Cooldowns      map[int]float64 `json:"cooldowns,omitempty"`
	GlobalCooldown float64         `json:"globalCooldown,omitempty"`
	Reduction      float64         `json:"reduction,omitempty"`
	Abilities      []string        `json:"abilities"`
	Buffs          []ActiveBuff    `json:"buffs,omitempty"`
}

// Snapshot copies every caster in join order.
func (e *Engine) Snapshot() []CasterSnapshot {
	snapshots := make([]CasterSnapshot, 0, len(e.order))
	for _, id := range e.order {
		snapshots = append(snapshots, e.casters[id].Snapshot())
	}
	return snapshots
}

// Snapshot copies the caster's observable state.
func (c *Caster) Snapshot() CasterSnapshot {
	abilities := make([]string, len(c.slots))
	for i, def := range c.slots {
		if def != nil {
			abilities[i] = def.ID
		}
	}
	var cooldowns map[int]float64
	if len(c.Cooldowns.remaining) > 0 {
		cooldowns = make(map[int]float64, len(c.Cooldowns.remaining))
		for slot, remaining := range c.Cooldowns.remaining {
			cooldowns[slot] = remaining
		}
	}
	return CasterSnapshot{
		ID:             c.ID,
		Team:           c.Team,
		X:              c.X,
		Y:              c.Y,
		Health:         c.health,
		MaxHealth:      c.maxHealth,
		Mana:           c.Mana.Current(),
		MaxMana:        c.Mana.Max(),
		InCombat:       c.Combat.InCombat(),
		Cooldowns:      cooldowns,
		GlobalCooldown: c.Cooldowns.GlobalRemaining(),
		Reduction:      c.Cooldowns.Reduction(),
		Abilities:      abilities,
		Buffs:          c.Buffs(),
	}
}
