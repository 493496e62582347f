package network

import (
	"context"

	"riftward/server/logging"
)

const (
	// EventBroadcastFailed is emitted when a result or snapshot write fails.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
	// EventRequestDropped is emitted when the command queue refuses a request.
	EventRequestDropped logging.EventType = "network.request_dropped"
	// EventSignatureRejected is emitted when a result signature fails to verify.
	EventSignatureRejected logging.EventType = "network.signature_rejected"
)

// BroadcastFailedPayload captures the failing message kind and error detail.
type BroadcastFailedPayload struct {
	MessageType string `json:"messageType"`
	Detail      string `json:"detail"`
}

// RequestDroppedPayload captures queue rejection details.
type RequestDroppedPayload struct {
	Reason string `json:"reason"`
	Drops  uint64 `json:"drops"`
}

// BroadcastFailed publishes a broadcast failure at warning severity.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BroadcastFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBroadcastFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// RequestDropped publishes a queue rejection at warning severity.
func RequestDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string, payload RequestDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventRequestDropped,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityWarn,
		Category:  logging.CategoryNetwork,
		Payload:   payload,
		RequestID: requestID,
	})
}

// SignatureRejected publishes a verification failure at warning severity.
func SignatureRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, requestID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventSignatureRejected,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityWarn,
		Category:  logging.CategoryNetwork,
		RequestID: requestID,
	})
}
