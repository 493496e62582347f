package ability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	errEmptyID            = errors.New("ability id must not be empty")
	errUnknownKind        = errors.New("ability kind is not recognised")
	errUnknownAffinity    = errors.New("ability affinity is not recognised")
	errNegativeCost       = errors.New("mana cost must not be negative")
	errNegativeCooldown   = errors.New("cooldown must not be negative")
	errNegativeCastTime   = errors.New("cast time must not be negative")
	errNonPositiveRadius  = errors.New("effect radius must be positive")
	errNonPositiveTargets = errors.New("max targets must be positive")
	errCritChanceRange    = errors.New("crit chance must lie in [0, 1]")
	errCritMultiplier     = errors.New("crit multiplier must be at least 1")
	errMissingBuffKind    = errors.New("buff abilities must name a buff kind")
)

// Registry is an ordered collection of ability templates. Callers should
// Validate before indexing; slot assignment elsewhere references entries by ID.
type Registry []*Definition

// Validate ensures every definition is structurally sound and IDs are unique.
func (r Registry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, def := range r {
		if def == nil {
			return errors.New("ability: nil definition")
		}
		if err := def.validate(); err != nil {
			return fmt.Errorf("ability %q: %w", def.ID, err)
		}
		if _, exists := seen[def.ID]; exists {
			return fmt.Errorf("ability: duplicate definition id %q", def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	return nil
}

// ByID indexes the registry. Validate must have succeeded first.
func (r Registry) ByID() map[string]*Definition {
	index := make(map[string]*Definition, len(r))
	for _, def := range r {
		index[def.ID] = def
	}
	return index
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errEmptyID
	}
	switch d.Kind {
	case KindInstant, KindArea, KindProjectile, KindHeal, KindBuff:
	default:
		return errUnknownKind
	}
	switch d.Affinity {
	case AffinityEnemy, AffinityAlly, AffinitySelf, AffinityAll:
	default:
		return errUnknownAffinity
	}
	if d.ManaCost < 0 {
		return errNegativeCost
	}
	if d.Cooldown < 0 {
		return errNegativeCooldown
	}
	if d.CastTime < 0 {
		return errNegativeCastTime
	}
	if d.Radius <= 0 {
		return errNonPositiveRadius
	}
	if d.MaxTargets <= 0 {
		return errNonPositiveTargets
	}
	if d.CritChance < 0 || d.CritChance > 1 {
		return errCritChanceRange
	}
	if d.CritChance > 0 && d.CritMultiplier < 1 {
		return errCritMultiplier
	}
	if d.Kind == KindBuff && strings.TrimSpace(d.BuffKind) == "" {
		return errMissingBuffKind
	}
	return nil
}

// Canonical ability IDs shipped with the server. Gameplay code references
// these constants instead of duplicating string literals.
const (
	AbilityIDFireball    = "fireball"
	AbilityIDSmite       = "smite"
	AbilityIDShockwave   = "shockwave"
	AbilityIDMend        = "mend"
	AbilityIDBattleHymn  = "battle-hymn"
	AbilityIDArcaneBolt  = "arcane-bolt"
)

// BuiltInRegistry materialises the stock ability set. Callers receive fresh
// definitions so tests can tweak fields without bleeding into other suites.
func BuiltInRegistry() Registry {
	return Registry{
		{
			ID:             AbilityIDFireball,
			Name:           "Fireball",
			Kind:           KindProjectile,
			Affinity:       AffinityEnemy,
			ManaCost:       30,
			Cooldown:       5 * time.Second,
			CastTime:       650 * time.Millisecond,
			BasePower:      42,
			Radius:         96,
			MaxTargets:     1,
			CritChance:     0.15,
			CritMultiplier: 1.75,
			Color:          "#ff6a00",
			SoundClip:      "fireball-launch",
		},
		{
			ID:             AbilityIDSmite,
			Name:           "Smite",
			Kind:           KindInstant,
			Affinity:       AffinityEnemy,
			ManaCost:       12,
			Cooldown:       1200 * time.Millisecond,
			BasePower:      18,
			Radius:         48,
			MaxTargets:     1,
			CritChance:     0.05,
			CritMultiplier: 1.5,
			Color:          "#ffe08a",
			SoundClip:      "smite-crack",
		},
		{
			ID:         AbilityIDShockwave,
			Name:       "Shockwave",
			Kind:       KindArea,
			Affinity:   AffinityEnemy,
			ManaCost:   45,
			Cooldown:   9 * time.Second,
			CastTime:   400 * time.Millisecond,
			BasePower:  28,
			Radius:     160,
			MaxTargets: 5,
			Color:      "#7ad0ff",
			SoundClip:  "shockwave-boom",
		},
		{
			ID:         AbilityIDMend,
			Name:       "Mend",
			Kind:       KindHeal,
			Affinity:   AffinityAlly,
			ManaCost:   25,
			Cooldown:   6 * time.Second,
			CastTime:   900 * time.Millisecond,
			BasePower:  35,
			Radius:     120,
			MaxTargets: 2,
			Color:      "#9effa0",
			SoundClip:  "mend-chime",
		},
		{
			ID:           AbilityIDBattleHymn,
			Name:         "Battle Hymn",
			Kind:         KindBuff,
			Affinity:     AffinityAlly,
			ManaCost:     40,
			Cooldown:     15 * time.Second,
			Radius:       200,
			MaxTargets:   4,
			BuffKind:     "attack-power",
			BuffValue:    0.2,
			BuffDuration: 8 * time.Second,
			Color:        "#d7a0ff",
			SoundClip:    "hymn-swell",
		},
		{
			ID:         AbilityIDArcaneBolt,
			Name:       "Arcane Bolt",
			Kind:       KindProjectile,
			Affinity:   AffinityEnemy,
			ManaCost:   8,
			Cooldown:   700 * time.Millisecond,
			BasePower:  11,
			Radius:     64,
			MaxTargets: 1,
			Color:      "#b3c7ff",
			SoundClip:  "bolt-snap",
		},
	}
}
