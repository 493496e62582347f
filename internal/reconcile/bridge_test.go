package reconcile

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
)

func TestAuthorityBridgeStagesCommand(t *testing.T) {
	authority, _ := newAuthority(t)
	bridge := NewAuthorityBridge(authority)

	if bridge.Role() != RoleAuthority {
		t.Fatalf("expected authority role")
	}
	requestID, code, err := bridge.TryCast("caster-1", 0, 120, 100)
	if err != nil || code != sim.FailureNone {
		t.Fatalf("expected staged cast, got code=%s err=%v", code, err)
	}
	if uuid.Validate(requestID) != nil {
		t.Fatalf("expected uuid request id, got %s", requestID)
	}
	if authority.Pending() != 1 {
		t.Fatalf("expected 1 staged command, got %d", authority.Pending())
	}

	authority.Step(1.0 / 15)
	results := authority.DrainResults()
	if len(results) != 1 || results[0].RequestID != requestID {
		t.Fatalf("expected result for %s, got %+v", requestID, results)
	}
}

func TestAuthorityBridgeSurfacesQueueRefusal(t *testing.T) {
	engine := sim.NewEngine(sim.Deps{}, sim.EngineConfig{PerActorLimit: 1})
	bridge := NewAuthorityBridge(engine)

	if _, code, err := bridge.TryCast("caster-1", 0, 0, 0); err != nil || code != sim.FailureNone {
		t.Fatalf("expected first cast staged, got code=%s err=%v", code, err)
	}
	_, code, err := bridge.TryCast("caster-1", 0, 0, 0)
	if err == nil || code != sim.FailureNetwork {
		t.Fatalf("expected throttled cast to fail, got code=%s err=%v", code, err)
	}
}

func TestObserverBridgeForwardsPredictedCasts(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	var sent [][]byte
	bridge := NewObserverBridge(observer, func(payload []byte) error {
		sent = append(sent, payload)
		return nil
	})

	requestID, code, err := bridge.TryCast("caster-1", 0, 120, 100)
	if err != nil || code != sim.FailureNone {
		t.Fatalf("expected forwarded cast, got code=%s err=%v", code, err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected one uplink payload, got %d", len(sent))
	}
	msg, err := proto.DecodeClientMessage(sent[0])
	if err != nil {
		t.Fatalf("decode uplink: %v", err)
	}
	if msg.Type != proto.TypeCast || msg.RequestID != requestID || msg.Slot != 0 {
		t.Fatalf("unexpected uplink message %+v", msg)
	}
	if msg.TargetX != 120 || msg.TargetY != 100 {
		t.Fatalf("expected target forwarded, got (%.0f, %.0f)", msg.TargetX, msg.TargetY)
	}
}

func TestObserverBridgeShortCircuitsDoomedCasts(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	called := false
	bridge := NewObserverBridge(observer, func([]byte) error {
		called = true
		return nil
	})

	local, _ := observer.Engine().CasterByID("caster-1")
	local.Mana.ForceSet(0)

	requestID, code, err := bridge.TryCast("caster-1", 0, 120, 100)
	if err != nil {
		t.Fatalf("local refusal is not an error, got %v", err)
	}
	if code != sim.FailureInsufficientMana || requestID != "" {
		t.Fatalf("expected doomed cast refused locally, got code=%s id=%s", code, requestID)
	}
	if called {
		t.Fatalf("expected no uplink traffic for doomed cast")
	}
}

func TestObserverBridgeUplinkFailure(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	bridge := NewObserverBridge(observer, func([]byte) error {
		return errors.New("uplink down")
	})
	_, code, err := bridge.TryCast("caster-1", 0, 120, 100)
	if err == nil || code != sim.FailureNetwork {
		t.Fatalf("expected network failure, got code=%s err=%v", code, err)
	}

	noUplink := NewObserverBridge(observer, nil)
	if _, code, err := noUplink.TryCast("caster-1", 0, 120, 100); err == nil || code != sim.FailureNetwork {
		t.Fatalf("expected missing uplink error, got code=%s err=%v", code, err)
	}
}
