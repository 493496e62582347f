package reconcile

import (
	"context"
	"fmt"

	"riftward/server/internal/ability"
	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
	"riftward/server/internal/telemetry"
	"riftward/server/logging"
	networklog "riftward/server/logging/network"
)

// CasterDefaults carries the tunables a snapshot does not transmit. They only
// affect prediction between keyframes; authoritative values overwrite any
// drift.
type CasterDefaults struct {
	ManaRegen      float64
	IdleRegenBoost float64
	GlobalCooldown float64
	MaxReduction   float64
	CombatDuration float64
}

// ObserverConfig bundles the observer's collaborators.
type ObserverConfig struct {
	SigningKey []byte
	Abilities  ability.Registry
	Defaults   CasterDefaults
	Effects    sim.EffectSink
	Publisher  logging.Publisher
	Logger     telemetry.Logger
}

// Observer mirrors the authoritative arena on a predicting client. It runs a
// local engine for optimistic checks and rendering, but authoritative results
// and keyframes always win: values are force-set, never re-derived.
type Observer struct {
	key       []byte
	abilities map[string]*ability.Definition
	defaults  CasterDefaults
	engine    *sim.Engine
	effects   sim.EffectSink
	publisher logging.Publisher
	logger    telemetry.Logger
}

// NewObserver builds an observer with its own local prediction engine.
func NewObserver(cfg ObserverConfig) (*Observer, error) {
	if len(cfg.Abilities) == 0 {
		cfg.Abilities = ability.BuiltInRegistry()
	}
	if err := cfg.Abilities.Validate(); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	effects := cfg.Effects
	if effects == nil {
		effects = sim.NopEffectSink{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	engine := sim.NewEngine(sim.Deps{
		Logger:    cfg.Logger,
		Publisher: publisher,
		Effects:   effects,
	}, sim.EngineConfig{})
	return &Observer{
		key:       cfg.SigningKey,
		abilities: cfg.Abilities.ByID(),
		defaults:  cfg.Defaults,
		engine:    engine,
		effects:   effects,
		publisher: publisher,
		logger:    cfg.Logger,
	}, nil
}

// Engine exposes the local prediction engine for rendering and tests.
func (o *Observer) Engine() *sim.Engine { return o.engine }

// Step advances local prediction between server messages.
func (o *Observer) Step(dt float64) { o.engine.Step(dt) }

// Predict runs the non-mutating validation chain against local state. A
// failure here means the request is doomed and need not be sent; success is
// only a guess.
func (o *Observer) Predict(casterID string, slot int) sim.FailureCode {
	return o.engine.Precheck(casterID, slot)
}

// HandleMessage dispatches one raw server payload.
func (o *Observer) HandleMessage(payload []byte) error {
	msg, err := proto.DecodeServerMessage(payload)
	if err != nil {
		return err
	}
	switch msg.Type {
	case proto.TypeResult:
		if msg.Result == nil {
			return fmt.Errorf("reconcile: result message without body")
		}
		return o.ApplyResult(proto.ResultMessage{Ver: msg.Ver, Type: msg.Type, Result: *msg.Result, Sig: msg.Sig})
	case proto.TypeKeyframe:
		o.ApplyKeyframe(msg.Casters)
		return nil
	case proto.TypeReject, proto.TypeResultNack, proto.TypeHeartbeatAck:
		return nil
	default:
		return fmt.Errorf("reconcile: unknown server message type %q", msg.Type)
	}
}

// ApplyResult verifies and applies one authoritative cast verdict. Resource
// and cooldown values come straight from the result; hit outcomes overwrite
// target health. Approved casts trigger the cosmetic effect sink.
func (o *Observer) ApplyResult(msg proto.ResultMessage) error {
	if !proto.VerifyResultMessage(o.key, msg) {
		networklog.SignatureRejected(context.Background(), o.publisher, o.engine.Tick(),
			logging.EntityRef{ID: msg.Result.CasterID, Kind: logging.EntityKindCaster},
			msg.Result.RequestID)
		return fmt.Errorf("reconcile: bad signature on result %s", msg.Result.RequestID)
	}

	result := msg.Result
	caster, ok := o.engine.CasterByID(result.CasterID)
	if !ok {
		// Result for a caster we have not seen yet. The next keyframe
		// introduces it.
		return nil
	}

	if result.Rejected() && result.Failure == sim.FailureInvalidTarget {
		// The authority rejected a caster it never knew, so the result
		// carries no resource values worth mirroring.
		return nil
	}

	caster.Mana.ForceSet(result.Mana)
	caster.Cooldowns.ForceRemaining(result.Slot, result.CooldownRemaining)
	caster.Cooldowns.ForceGlobal(result.GlobalCooldown)

	if result.Rejected() {
		return nil
	}

	for _, hit := range result.Hits {
		target, ok := o.engine.CasterByID(hit.TargetID)
		if !ok {
			continue
		}
		target.ForceHealth(hit.RemainingHealth)
	}

	if def, ok := caster.AbilityAt(result.Slot); ok {
		o.effects.CastEffect(caster.ID, def, caster.X, caster.Y)
	}
	return nil
}

// ApplyKeyframe reconciles the local roster against a full snapshot. Unknown
// casters are created, known ones are overwritten, absent ones are dropped.
func (o *Observer) ApplyKeyframe(casters []sim.CasterSnapshot) {
	seen := make(map[string]struct{}, len(casters))
	for _, snapshot := range casters {
		seen[snapshot.ID] = struct{}{}
		o.applySnapshot(snapshot)
	}
	for _, id := range o.engine.CasterIDs() {
		if _, ok := seen[id]; !ok {
			o.engine.RemoveCaster(id)
		}
	}
}

func (o *Observer) applySnapshot(snapshot sim.CasterSnapshot) {
	caster, ok := o.engine.CasterByID(snapshot.ID)
	if !ok {
		caster = sim.NewCaster(sim.CasterConfig{
			ID:             snapshot.ID,
			Team:           snapshot.Team,
			X:              snapshot.X,
			Y:              snapshot.Y,
			MaxHealth:      snapshot.MaxHealth,
			MaxMana:        snapshot.MaxMana,
			ManaRegen:      o.defaults.ManaRegen,
			IdleRegenBoost: o.defaults.IdleRegenBoost,
			GlobalCooldown: o.defaults.GlobalCooldown,
			MaxReduction:   o.defaults.MaxReduction,
			CombatDuration: o.defaults.CombatDuration,
		})
		if err := o.engine.AddCaster(caster); err != nil {
			o.logf("failed to mirror caster %s: %v", snapshot.ID, err)
			return
		}
	}

	for slot, abilityID := range snapshot.Abilities {
		if abilityID == "" {
			caster.SetAbility(slot, nil)
			continue
		}
		def, ok := o.abilities[abilityID]
		if !ok {
			o.logf("keyframe references unknown ability %q", abilityID)
			continue
		}
		caster.SetAbility(slot, def)
	}

	o.engine.MoveCaster(snapshot.ID, snapshot.X, snapshot.Y)
	caster.ForceHealth(snapshot.Health)
	caster.Mana.ForceSet(snapshot.Mana)
	caster.Combat.ForceSet(snapshot.InCombat)
	caster.Cooldowns.SetReduction(snapshot.Reduction)
	caster.Cooldowns.ForceGlobal(snapshot.GlobalCooldown)
	for slot := 0; slot < caster.SlotCount(); slot++ {
		caster.Cooldowns.ForceRemaining(slot, snapshot.Cooldowns[slot])
	}
}

func (o *Observer) logf(format string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Printf(format, args...)
}
