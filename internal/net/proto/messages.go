package proto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"riftward/server/internal/ability"
	"riftward/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Client message type identifiers.
const (
	TypeCast          = "cast"
	TypeHeartbeat     = "heartbeat"
	TypeResultRequest = "resultRequest"
)

// Server message type identifiers.
const (
	TypeResult       = "result"
	TypeReject       = "reject"
	TypeKeyframe     = "keyframe"
	TypeResultNack   = "resultNack"
	TypeHeartbeatAck = "heartbeatAck"
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver       int     `json:"ver,omitempty"`
	Type      string  `json:"type"`
	RequestID string  `json:"requestId,omitempty"`
	Slot      int     `json:"slot"`
	TargetX   float64 `json:"targetX"`
	TargetY   float64 `json:"targetY"`
	DirX      float64 `json:"dirX"`
	DirY      float64 `json:"dirY"`
	SentAt    int64   `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// CastRequest converts a cast message into a simulation request. The caster
// identity always comes from the session, never the payload, and the
// correlation id must be a well-formed UUID so the authority can trust it as
// a broadcast key.
func CastRequest(casterID string, msg ClientMessage) (sim.CastRequest, bool) {
	if msg.Type != TypeCast || casterID == "" {
		return sim.CastRequest{}, false
	}
	if uuid.Validate(msg.RequestID) != nil {
		return sim.CastRequest{}, false
	}
	return sim.CastRequest{
		RequestID: msg.RequestID,
		CasterID:  casterID,
		Slot:      msg.Slot,
		TargetX:   msg.TargetX,
		TargetY:   msg.TargetY,
		DirX:      msg.DirX,
		DirY:      msg.DirY,
	}, true
}

// NewRequestID mints a correlation id for a locally originated request.
func NewRequestID() string {
	return uuid.NewString()
}

// JoinResponse is the HTTP payload answering a join request.
type JoinResponse struct {
	Ver              int                   `json:"ver"`
	ID               string                `json:"id"`
	Casters          []sim.CasterSnapshot  `json:"casters"`
	Abilities        []*ability.Definition `json:"abilities"`
	TickRate         int                   `json:"tickRate"`
	KeyframeInterval int                   `json:"keyframeInterval,omitempty"`
}

// ResultMessage wraps an authoritative CastResult with its signature.
type ResultMessage struct {
	Ver    int            `json:"ver"`
	Type   string         `json:"type"`
	Result sim.CastResult `json:"result"`
	Sig    string         `json:"sig,omitempty"`
}

// EncodeResult renders a signed result envelope. An empty key skips signing.
func EncodeResult(key []byte, result sim.CastResult) ([]byte, error) {
	msg := ResultMessage{Ver: Version, Type: TypeResult, Result: result}
	if len(key) > 0 {
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("proto: marshal result: %w", err)
		}
		sig, err := Sign(key, payload)
		if err != nil {
			return nil, fmt.Errorf("proto: sign result: %w", err)
		}
		msg.Sig = sig
	}
	return json.Marshal(msg)
}

// VerifyResultMessage checks the envelope signature against the key. With an
// empty key every envelope verifies.
func VerifyResultMessage(key []byte, msg ResultMessage) bool {
	if len(key) == 0 {
		return true
	}
	payload, err := json.Marshal(msg.Result)
	if err != nil {
		return false
	}
	return Verify(key, payload, msg.Sig)
}

// KeyframeMessage is the periodic full snapshot broadcast.
type KeyframeMessage struct {
	Ver        int                  `json:"ver"`
	Type       string               `json:"type"`
	Tick       uint64               `json:"t"`
	ServerTime int64                `json:"serverTime"`
	Casters    []sim.CasterSnapshot `json:"casters"`
}

// EncodeKeyframe renders a keyframe payload.
func EncodeKeyframe(msg KeyframeMessage) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeKeyframe
	return json.Marshal(msg)
}

// RejectMessage reports a request refused before it reached the simulation.
type RejectMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Reason    string `json:"reason"`
}

// EncodeReject renders a queue or intake rejection.
func EncodeReject(requestID, reason string) ([]byte, error) {
	return json.Marshal(RejectMessage{Ver: Version, Type: TypeReject, RequestID: requestID, Reason: reason})
}

// ResultNackMessage answers a resultRequest whose correlation id fell out of
// the retained window.
type ResultNackMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

// EncodeResultNack renders a result-window miss.
func EncodeResultNack(requestID, reason string) ([]byte, error) {
	return json.Marshal(ResultNackMessage{Ver: Version, Type: TypeResultNack, RequestID: requestID, Reason: reason})
}

// ServerMessage is the decoded union of server payloads, used by observers.
type ServerMessage struct {
	Ver       int                  `json:"ver"`
	Type      string               `json:"type"`
	Result    *sim.CastResult      `json:"result,omitempty"`
	Sig       string               `json:"sig,omitempty"`
	Tick      uint64               `json:"t,omitempty"`
	Casters   []sim.CasterSnapshot `json:"casters,omitempty"`
	RequestID string               `json:"requestId,omitempty"`
	Reason    string               `json:"reason,omitempty"`
}

// DecodeServerMessage parses a server payload on the observer side.
func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported server protocol version %d", msg.Ver)
	}
	return msg, nil
}
