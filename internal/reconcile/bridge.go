package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
)

// Role distinguishes the two ends of the reconciliation bridge.
type Role int

const (
	// RoleAuthority validates and commits casts against the real arena.
	RoleAuthority Role = iota
	// RoleObserver predicts locally and forwards requests to the authority.
	RoleObserver
)

// SendFunc delivers an encoded client payload to the authority.
type SendFunc func(payload []byte) error

// Bridge gives callers one cast entry point regardless of role. On the
// authority it stages straight into the engine; on an observer it prechecks
// locally and forwards the request upstream.
type Bridge struct {
	role     Role
	engine   *sim.Engine
	observer *Observer
	send     SendFunc
}

// NewAuthorityBridge wraps the authoritative engine.
func NewAuthorityBridge(engine *sim.Engine) *Bridge {
	return &Bridge{role: RoleAuthority, engine: engine}
}

// NewObserverBridge wraps a predicting observer and its uplink.
func NewObserverBridge(observer *Observer, send SendFunc) *Bridge {
	return &Bridge{role: RoleObserver, observer: observer, send: send}
}

// Role reports which end of the bridge this is.
func (b *Bridge) Role() Role { return b.role }

// TryCast requests a cast without blocking. The returned request id
// correlates the eventual authoritative result; a non-empty failure code
// means the request was refused locally and never committed.
func (b *Bridge) TryCast(casterID string, slot int, targetX, targetY float64) (string, sim.FailureCode, error) {
	switch b.role {
	case RoleAuthority:
		return b.stageAuthoritative(casterID, slot, targetX, targetY)
	case RoleObserver:
		return b.forwardPredicted(casterID, slot, targetX, targetY)
	default:
		return "", sim.FailureNetwork, fmt.Errorf("reconcile: unknown bridge role %d", b.role)
	}
}

func (b *Bridge) stageAuthoritative(casterID string, slot int, targetX, targetY float64) (string, sim.FailureCode, error) {
	requestID := proto.NewRequestID()
	request := sim.CastRequest{
		RequestID: requestID,
		CasterID:  casterID,
		Slot:      slot,
		TargetX:   targetX,
		TargetY:   targetY,
	}
	ok, reason := b.engine.Enqueue(sim.Command{
		OriginTick: b.engine.Tick(),
		ActorID:    casterID,
		Type:       sim.CommandCast,
		IssuedAt:   time.Now(),
		Cast:       &request,
	})
	if !ok {
		return "", sim.FailureNetwork, fmt.Errorf("reconcile: cast refused: %s", reason)
	}
	return requestID, sim.FailureNone, nil
}

func (b *Bridge) forwardPredicted(casterID string, slot int, targetX, targetY float64) (string, sim.FailureCode, error) {
	if code := b.observer.Predict(casterID, slot); code != sim.FailureNone {
		return "", code, nil
	}
	requestID := proto.NewRequestID()
	payload, err := json.Marshal(proto.ClientMessage{
		Ver:       proto.Version,
		Type:      proto.TypeCast,
		RequestID: requestID,
		Slot:      slot,
		TargetX:   targetX,
		TargetY:   targetY,
	})
	if err != nil {
		return "", sim.FailureNetwork, err
	}
	if b.send == nil {
		return "", sim.FailureNetwork, fmt.Errorf("reconcile: observer bridge has no uplink")
	}
	if err := b.send(payload); err != nil {
		return "", sim.FailureNetwork, err
	}
	return requestID, sim.FailureNone, nil
}
