package combat

import (
	"context"

	"riftward/server/logging"
)

const (
	// EventDamage is emitted when an ability deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when a hit exhausts the target's health.
	EventDefeat logging.EventType = "combat.defeat"
)

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Ability      string  `json:"ability,omitempty"`
	Amount       float64 `json:"amount"`
	Critical     bool    `json:"critical,omitempty"`
	TargetHealth float64 `json:"targetHealth"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	Ability string `json:"ability,omitempty"`
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "combat",
		Payload:  payload,
	})
}

// Defeat publishes a combat defeat event for the eliminated actor.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DefeatPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "combat",
		Payload:  payload,
	})
}
