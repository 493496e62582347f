package reconcile

import (
	"math/rand"
	"strings"
	"testing"

	"riftward/server/internal/ability"
	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
)

var testKey = []byte("observer-test-key")

func testDefaults() CasterDefaults {
	return CasterDefaults{
		ManaRegen:      4,
		IdleRegenBoost: 2.5,
		GlobalCooldown: 0.8,
		MaxReduction:   0.4,
		CombatDuration: 5,
	}
}

func newAuthority(t *testing.T) (*sim.Engine, ability.Registry) {
	t.Helper()
	registry := ability.BuiltInRegistry()
	index := registry.ByID()
	engine := sim.NewEngine(sim.Deps{RNG: rand.New(rand.NewSource(3))}, sim.EngineConfig{TickRate: 15})

	for i, spec := range []struct {
		id   string
		team int
		x    float64
	}{
		{id: "caster-1", team: 0, x: 100},
		{id: "caster-2", team: 1, x: 120},
	} {
		caster := sim.NewCaster(sim.CasterConfig{
			ID: spec.id, Team: spec.team, X: spec.x, Y: 100,
			MaxHealth: 200, MaxMana: 100, ManaRegen: 4, IdleRegenBoost: 2.5,
			GlobalCooldown: 0.8, MaxReduction: 0.4, CombatDuration: 5,
		})
		caster.SetAbility(0, index[ability.AbilityIDSmite])
		caster.SetAbility(1, index[ability.AbilityIDFireball])
		if err := engine.AddCaster(caster); err != nil {
			t.Fatalf("add caster %d: %v", i, err)
		}
	}
	return engine, registry
}

func newSyncedObserver(t *testing.T, authority *sim.Engine, registry ability.Registry) *Observer {
	t.Helper()
	observer, err := NewObserver(ObserverConfig{
		SigningKey: testKey,
		Abilities:  registry,
		Defaults:   testDefaults(),
	})
	if err != nil {
		t.Fatalf("new observer: %v", err)
	}
	observer.ApplyKeyframe(authority.Snapshot())
	return observer
}

func TestObserverConvergesOnAuthoritativeResult(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	result, ok := authority.TryCast(sim.CastRequest{
		RequestID: proto.NewRequestID(), CasterID: "caster-1", Slot: 0, TargetX: 120, TargetY: 100,
	})
	if !ok {
		t.Fatalf("expected authoritative cast to succeed, got %+v", result)
	}
	payload, err := proto.EncodeResult(testKey, result)
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	if err := observer.HandleMessage(payload); err != nil {
		t.Fatalf("handle result: %v", err)
	}

	authCaster, _ := authority.CasterByID("caster-1")
	localCaster, ok := observer.Engine().CasterByID("caster-1")
	if !ok {
		t.Fatalf("expected mirrored caster")
	}
	if localCaster.Mana.Current() != authCaster.Mana.Current() {
		t.Fatalf("mana diverged: local %.2f authority %.2f", localCaster.Mana.Current(), authCaster.Mana.Current())
	}
	if localCaster.Cooldowns.Remaining(0) != authCaster.Cooldowns.Remaining(0) {
		t.Fatalf("cooldown diverged: local %.2f authority %.2f",
			localCaster.Cooldowns.Remaining(0), authCaster.Cooldowns.Remaining(0))
	}
	if localCaster.Cooldowns.GlobalRemaining() != authCaster.Cooldowns.GlobalRemaining() {
		t.Fatalf("global cooldown diverged")
	}

	authTarget, _ := authority.CasterByID("caster-2")
	localTarget, _ := observer.Engine().CasterByID("caster-2")
	if localTarget.Health() != authTarget.Health() {
		t.Fatalf("target health diverged: local %.2f authority %.2f", localTarget.Health(), authTarget.Health())
	}
}

func TestObserverRejectsTamperedResult(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	result, ok := authority.TryCast(sim.CastRequest{
		RequestID: proto.NewRequestID(), CasterID: "caster-1", Slot: 0, TargetX: 120, TargetY: 100,
	})
	if !ok {
		t.Fatalf("expected authoritative cast to succeed")
	}

	tampered := result
	tampered.Mana = 100
	payload, err := proto.EncodeResult(testKey, result)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sig := extractSig(t, payload)

	err = observer.ApplyResult(proto.ResultMessage{Ver: proto.Version, Type: proto.TypeResult, Result: tampered, Sig: sig})
	if err == nil || !strings.Contains(err.Error(), "signature") {
		t.Fatalf("expected signature rejection, got %v", err)
	}

	localCaster, _ := observer.Engine().CasterByID("caster-1")
	if localCaster.Mana.Current() != 100 {
		t.Fatalf("expected state untouched after rejection, got mana %.2f", localCaster.Mana.Current())
	}
}

func extractSig(t *testing.T, payload []byte) string {
	t.Helper()
	msg, err := proto.DecodeServerMessage(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg.Sig
}

func TestObserverIgnoresResultForUnknownCaster(t *testing.T) {
	observer, err := NewObserver(ObserverConfig{SigningKey: testKey})
	if err != nil {
		t.Fatalf("new observer: %v", err)
	}
	payload, err := proto.EncodeResult(testKey, sim.CastResult{RequestID: "r1", CasterID: "stranger", Approved: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := observer.HandleMessage(payload); err != nil {
		t.Fatalf("expected unknown caster tolerated, got %v", err)
	}
}

func TestKeyframeCreatesOverwritesAndRemoves(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	local, ok := observer.Engine().CasterByID("caster-1")
	if !ok {
		t.Fatalf("expected keyframe to create caster-1")
	}
	if def, ok := local.AbilityAt(0); !ok || def.ID != ability.AbilityIDSmite {
		t.Fatalf("expected smite mirrored into slot 0, got %+v", def)
	}

	// Locally predicted cooldown drift is cleared by the next keyframe.
	local.Cooldowns.ForceRemaining(1, 9)
	local.Mana.ForceSet(10)
	observer.ApplyKeyframe(authority.Snapshot())
	if local.Cooldowns.Remaining(1) != 0 {
		t.Fatalf("expected stale cooldown cleared, got %.2f", local.Cooldowns.Remaining(1))
	}
	if local.Mana.Current() != 100 {
		t.Fatalf("expected mana reconciled to 100, got %.2f", local.Mana.Current())
	}

	// A keyframe missing a caster drops the local mirror.
	snapshot := authority.Snapshot()
	observer.ApplyKeyframe(snapshot[:1])
	if observer.Engine().HasCaster("caster-2") {
		t.Fatalf("expected absent caster removed")
	}
	if !observer.Engine().HasCaster("caster-1") {
		t.Fatalf("expected retained caster to survive")
	}
}

func TestRejectForUnknownCasterKeepsLocalValues(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	// The authority dropped caster-1, so its rejection carries no resource
	// values. The stale mirror must keep its predicted state until the next
	// keyframe rather than zero out.
	authority.RemoveCaster("caster-1")
	result, ok := authority.TryCast(sim.CastRequest{
		RequestID: proto.NewRequestID(), CasterID: "caster-1", Slot: 0, TargetX: 120, TargetY: 100,
	})
	if ok || result.Failure != sim.FailureInvalidTarget {
		t.Fatalf("expected invalid_target rejection, got ok=%v failure=%s", ok, result.Failure)
	}

	local, _ := observer.Engine().CasterByID("caster-1")
	local.Mana.ForceSet(70)
	local.Cooldowns.ForceRemaining(0, 3)
	local.Cooldowns.ForceGlobal(0.5)

	payload, err := proto.EncodeResult(testKey, result)
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	if err := observer.HandleMessage(payload); err != nil {
		t.Fatalf("handle result: %v", err)
	}
	if local.Mana.Current() != 70 {
		t.Fatalf("expected mana untouched at 70, got %.2f", local.Mana.Current())
	}
	if local.Cooldowns.Remaining(0) != 3 {
		t.Fatalf("expected cooldown untouched at 3, got %.2f", local.Cooldowns.Remaining(0))
	}
	if local.Cooldowns.GlobalRemaining() != 0.5 {
		t.Fatalf("expected global cooldown untouched at 0.5, got %.2f", local.Cooldowns.GlobalRemaining())
	}

	// Rejections from a caster the authority knows still carry the real
	// pool and reconcile as usual.
	authCaster, _ := authority.CasterByID("caster-2")
	authCaster.Mana.ForceSet(5)
	result, ok = authority.TryCast(sim.CastRequest{
		RequestID: proto.NewRequestID(), CasterID: "caster-2", Slot: 1, TargetX: 100, TargetY: 100,
	})
	if ok || result.Failure != sim.FailureInsufficientMana {
		t.Fatalf("expected insufficient_mana rejection, got ok=%v failure=%s", ok, result.Failure)
	}
	payload, err = proto.EncodeResult(testKey, result)
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	if err := observer.HandleMessage(payload); err != nil {
		t.Fatalf("handle result: %v", err)
	}
	mirror, _ := observer.Engine().CasterByID("caster-2")
	if mirror.Mana.Current() != 5 {
		t.Fatalf("expected rejection to reconcile mana to 5, got %.2f", mirror.Mana.Current())
	}
}

func TestHandleMessageDispatch(t *testing.T) {
	observer, err := NewObserver(ObserverConfig{SigningKey: testKey})
	if err != nil {
		t.Fatalf("new observer: %v", err)
	}

	nack, _ := proto.EncodeResultNack("r1", "expired")
	if err := observer.HandleMessage(nack); err != nil {
		t.Fatalf("expected nack ignored, got %v", err)
	}
	reject, _ := proto.EncodeReject("r1", "queue_limit")
	if err := observer.HandleMessage(reject); err != nil {
		t.Fatalf("expected reject ignored, got %v", err)
	}
	if err := observer.HandleMessage([]byte(`{"ver":1,"type":"mystery"}`)); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if err := observer.HandleMessage([]byte(`{broken`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPredictFlagsDoomedRequests(t *testing.T) {
	authority, registry := newAuthority(t)
	observer := newSyncedObserver(t, authority, registry)

	if code := observer.Predict("ghost", 0); code != sim.FailureInvalidTarget {
		t.Fatalf("expected invalid target, got %s", code)
	}
	if code := observer.Predict("caster-1", 7); code != sim.FailureInvalidAbility {
		t.Fatalf("expected invalid ability, got %s", code)
	}
	if code := observer.Predict("caster-1", 0); code != sim.FailureNone {
		t.Fatalf("expected clean prediction, got %s", code)
	}

	local, _ := observer.Engine().CasterByID("caster-1")
	local.Mana.ForceSet(0)
	if code := observer.Predict("caster-1", 0); code != sim.FailureInsufficientMana {
		t.Fatalf("expected insufficient mana, got %s", code)
	}
}
