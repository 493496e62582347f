package ability

import "time"

// Kind routes an ability's resolved hits to the matching effect sink.
type Kind string

const (
	KindInstant    Kind = "instant"
	KindArea       Kind = "area"
	KindProjectile Kind = "projectile"
	KindHeal       Kind = "heal"
	KindBuff       Kind = "buff"
)

// Affinity restricts which candidates an ability may affect.
type Affinity string

const (
	AffinityEnemy Affinity = "enemy"
	AffinityAlly  Affinity = "ally"
	AffinitySelf  Affinity = "self"
	AffinityAll   Affinity = "all"
)

// Definition is an immutable ability template. Instances are authored once,
// validated at startup, and shared by reference across every caster that
// slots them; runtime code must never mutate a Definition.
type Definition struct {
	ID             string        `json:"id" jsonschema:"required"`
	Name           string        `json:"name" jsonschema:"required"`
	Kind           Kind          `json:"kind" jsonschema:"required"`
	Affinity       Affinity      `json:"affinity"`
	ManaCost       float64       `json:"manaCost"`
	Cooldown       time.Duration `json:"cooldown"`
	CastTime       time.Duration `json:"castTime"`
	BasePower      float64       `json:"basePower"`
	Radius         float64       `json:"radius"`
	MaxTargets     int           `json:"maxTargets"`
	CritChance     float64       `json:"critChance"`
	CritMultiplier float64       `json:"critMultiplier"`

	// Buff payload, consulted only when Kind is KindBuff.
	BuffKind     string        `json:"buffKind,omitempty"`
	BuffValue    float64       `json:"buffValue,omitempty"`
	BuffDuration time.Duration `json:"buffDuration,omitempty"`

	// Presentation metadata forwarded verbatim to effect sinks. The core
	// never interprets these fields.
	Color     string `json:"color,omitempty"`
	SoundClip string `json:"soundClip,omitempty"`
}

// Offensive reports whether resolved hits deal damage rather than heal or buff.
func (d *Definition) Offensive() bool {
	switch d.Kind {
	case KindInstant, KindArea, KindProjectile:
		return true
	default:
		return false
	}
}
