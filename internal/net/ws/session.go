package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"riftward/server/internal/arena"
	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
)

type heartbeatAckMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// serve runs a caster session: seed the client with a keyframe, then relay
// messages until the connection drops. Cast verdicts are never written here;
// they arrive through the hub broadcast so every peer sees the same result.
func (h *Handler) serve(casterID string, conn *websocket.Conn) {
	sub, snapshot, ok := h.hub.Subscribe(casterID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown caster")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	tick, _, _ := h.hub.TickInfo()
	seed, err := proto.EncodeKeyframe(proto.KeyframeMessage{
		Tick:       tick,
		ServerTime: time.Now().UnixMilli(),
		Casters:    snapshot,
	})
	if err != nil {
		h.logger.Printf("failed to encode initial keyframe for %s: %v", casterID, err)
		h.hub.Disconnect(casterID)
		return
	}
	if err := sub.Write(seed); err != nil {
		h.hub.Disconnect(casterID)
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(casterID)
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", casterID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeCast:
			reason, staged := h.hub.StageCast(casterID, msg)
			if staged {
				continue
			}
			if reason == sim.CommandRejectUnknownActor {
				h.logger.Printf("cast ignored for unknown caster %s", casterID)
			}
			data, err := proto.EncodeReject(msg.RequestID, reason)
			if err != nil {
				h.logger.Printf("failed to encode reject for %s: %v", casterID, err)
				continue
			}
			if err := sub.Write(data); err != nil {
				h.hub.Disconnect(casterID)
				return
			}
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(casterID, now, msg.SentAt)
			if !ok {
				continue
			}
			ack := heartbeatAckMessage{
				Ver:        proto.Version,
				Type:       proto.TypeHeartbeatAck,
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			data, err := json.Marshal(ack)
			if err != nil {
				h.logger.Printf("failed to marshal heartbeat ack for %s: %v", casterID, err)
				continue
			}
			if err := sub.Write(data); err != nil {
				h.hub.Disconnect(casterID)
				return
			}
		case proto.TypeResultRequest:
			if msg.RequestID == "" {
				continue
			}
			data, err := h.replayResult(msg.RequestID)
			if err != nil {
				h.logger.Printf("failed to encode replay for %s: %v", casterID, err)
				continue
			}
			if err := sub.Write(data); err != nil {
				h.hub.Disconnect(casterID)
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, casterID)
		}
	}
}

// replayResult answers a resultRequest from the retained window, or nacks
// when the verdict has aged out.
func (h *Handler) replayResult(requestID string) ([]byte, error) {
	result, ok := h.hub.ResultByID(requestID)
	if !ok {
		return proto.EncodeResultNack(requestID, "expired")
	}
	return proto.EncodeResult(h.hub.Config().SigningKey, result)
}

var _ arena.Conn = (*websocket.Conn)(nil)
