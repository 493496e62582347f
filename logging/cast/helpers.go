package cast

import (
	"context"

	"riftward/server/logging"
)

const (
	// EventCastResolved is emitted once per approved cast after effects apply.
	EventCastResolved logging.EventType = "cast.resolved"
	// EventCastRejected is emitted once per rejected cast request.
	EventCastRejected logging.EventType = "cast.rejected"
	// EventCastChannelStarted is emitted when a cast-time ability locks its slot.
	EventCastChannelStarted logging.EventType = "cast.channel_started"
	// EventEffectFault is emitted when effect application degrades mid-cast.
	EventEffectFault logging.EventType = "cast.effect_fault"
)

// ResolvedPayload captures the authoritative result of an approved cast.
type ResolvedPayload struct {
	Ability  string  `json:"ability"`
	Slot     int     `json:"slot"`
	Mana     float64 `json:"mana"`
	Cooldown float64 `json:"cooldown"`
	Hits     int     `json:"hits"`
}

// RejectedPayload captures why a cast request was refused.
type RejectedPayload struct {
	Slot    int    `json:"slot"`
	Failure string `json:"failure"`
}

// ChannelPayload captures the scheduled completion of a cast-time ability.
type ChannelPayload struct {
	Ability string `json:"ability"`
	Slot    int    `json:"slot"`
	DueTick uint64 `json:"dueTick"`
}

// FaultPayload captures a degraded effect application.
type FaultPayload struct {
	Ability string `json:"ability"`
	Slot    int    `json:"slot"`
	Detail  string `json:"detail"`
}

// Resolved publishes a cast-resolved event.
func Resolved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string, payload ResolvedPayload, targets []logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventCastResolved,
		Tick:      tick,
		Actor:     actor,
		Targets:   targets,
		Severity:  logging.SeverityInfo,
		Category:  logging.CategoryCast,
		Payload:   payload,
		RequestID: requestID,
	})
}

// Rejected publishes a cast-rejected event at warning severity; every refused
// request must leave an observable trace.
func Rejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string, payload RejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventCastRejected,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityWarn,
		Category:  logging.CategoryCast,
		Payload:   payload,
		RequestID: requestID,
	})
}

// ChannelStarted publishes a channel-start event.
func ChannelStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string, payload ChannelPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventCastChannelStarted,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityDebug,
		Category:  logging.CategoryCast,
		Payload:   payload,
		RequestID: requestID,
	})
}

// EffectFault publishes an error-severity event for a degraded application.
// Spent resources are not refunded; the fault is recorded and the cast
// continues with the remaining targets.
func EffectFault(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string, payload FaultPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventEffectFault,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityError,
		Category:  logging.CategoryCast,
		Payload:   payload,
		RequestID: requestID,
	})
}
