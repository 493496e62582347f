package conditions

import (
	"context"

	"riftward/server/logging"
)

const (
	// EventBuffApplied is emitted when a buff lands on a target.
	EventBuffApplied logging.EventType = "conditions.buff_applied"
)

// BuffAppliedPayload captures details about a buff application.
type BuffAppliedPayload struct {
	Kind       string  `json:"kind"`
	Value      float64 `json:"value"`
	DurationMs int64   `json:"durationMs,omitempty"`
}

// BuffApplied publishes a buff application event.
func BuffApplied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload BuffAppliedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBuffApplied,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "conditions",
		Payload:  payload,
	})
}
