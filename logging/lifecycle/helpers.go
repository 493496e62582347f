package lifecycle

import (
	"context"

	"riftward/server/logging"
)

const (
	// EventCasterJoined is emitted when a caster joins the arena.
	EventCasterJoined logging.EventType = "lifecycle.caster_joined"
	// EventCasterDisconnected is emitted when a caster leaves the arena.
	EventCasterDisconnected logging.EventType = "lifecycle.caster_disconnected"
)

// CasterJoinedPayload captures spawn metadata for a new caster.
type CasterJoinedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Team   int     `json:"team"`
}

// CasterDisconnectedPayload captures the reason a caster left.
type CasterDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// CasterJoined publishes a caster join event.
func CasterJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CasterJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCasterJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	})
}

// CasterDisconnected publishes a caster disconnect event.
func CasterDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CasterDisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCasterDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	})
}
