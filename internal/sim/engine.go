package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"riftward/server/internal/ability"
	"riftward/server/logging"
	castlog "riftward/server/logging/cast"
	combatlog "riftward/server/logging/combat"
	conditionslog "riftward/server/logging/conditions"
	networklog "riftward/server/logging/network"
)

const (
	// CommandRejectQueueLimit indicates a request was dropped due to
	// per-actor queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectUnknownActor indicates the requester is not registered.
	CommandRejectUnknownActor = "unknown_actor"
)

// EngineConfig tunes the command queue and tick orchestration.
type EngineConfig struct {
	TickRate        int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// DefaultEngineConfig mirrors the tuning the arena hub ships with.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:        15,
		CommandCapacity: 256,
		PerActorLimit:   8,
		WarningStep:     64,
	}
}

type pendingCast struct {
	dueTick uint64
	request CastRequest
	def     *ability.Definition
}

// Engine owns the authoritative casting simulation: every caster, the spatial
// index, the staged request queue, and the in-flight channeled casts. All
// mutation happens on the goroutine driving Step.
type Engine struct {
	deps     Deps
	cfg      EngineConfig
	grid     *TargetGrid
	resolver *HitResolver

	casters map[string]*Caster
	order   []string

	buffer        *CommandBuffer
	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	pending []pendingCast
	results []CastResult

	// tick is read from websocket reader goroutines via Enqueue and Tick
	// while the simulation goroutine advances it in Step.
	tick atomic.Uint64

	// CastCompleted fires once per produced CastResult, approved or not.
	CastCompleted Signal[CastResult]
}

// NewEngine constructs an empty simulation.
func NewEngine(deps Deps, cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultEngineConfig().TickRate
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultEngineConfig().CommandCapacity
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.RNG == nil {
		deps.RNG = rand.New(rand.NewSource(deps.Clock.Now().UnixNano()))
	}
	if deps.Effects == nil {
		deps.Effects = NopEffectSink{}
	}
	grid := NewTargetGrid(gridDefaultCellSize, gridDefaultMaxPerCell)
	return &Engine{
		deps:          deps,
		cfg:           cfg,
		grid:          grid,
		resolver:      NewHitResolver(grid, deps.RNG),
		casters:       make(map[string]*Caster),
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Deps exposes the injected dependencies.
func (e *Engine) Deps() Deps { return e.deps }

// Tick reports the last processed tick. Safe to call concurrently with Step.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// AddCaster registers a caster and places it on the spatial grid. Join order
// fixes the deterministic iteration order for ticks and queries.
func (e *Engine) AddCaster(c *Caster) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("sim: caster must carry an id")
	}
	if _, exists := e.casters[c.ID]; exists {
		return fmt.Errorf("sim: caster %q already registered", c.ID)
	}
	e.casters[c.ID] = c
	e.order = append(e.order, c.ID)
	e.grid.Upsert(c)
	return nil
}

// RemoveCaster drops a caster from the simulation and the spatial grid.
func (e *Engine) RemoveCaster(id string) bool {
	if _, ok := e.casters[id]; !ok {
		return false
	}
	delete(e.casters, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.grid.Remove(id)
	e.releaseActorSlot(id)
	return true
}

// CasterByID looks up a registered caster.
func (e *Engine) CasterByID(id string) (*Caster, bool) {
	c, ok := e.casters[id]
	return c, ok
}

// HasCaster reports whether the id is registered.
func (e *Engine) HasCaster(id string) bool {
	_, ok := e.casters[id]
	return ok
}

// CasterCount reports the number of registered casters.
func (e *Engine) CasterCount() int { return len(e.casters) }

// CasterIDs copies the registered ids in join order.
func (e *Engine) CasterIDs() []string {
	ids := make([]string, len(e.order))
	copy(ids, e.order)
	return ids
}

// MoveCaster updates a caster's position and re-indexes it.
func (e *Engine) MoveCaster(id string, x, y float64) bool {
	c, ok := e.casters[id]
	if !ok {
		return false
	}
	c.X = x
	c.Y = y
	e.grid.Upsert(c)
	return true
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits. Safe to call from websocket reader goroutines.
func (e *Engine) Enqueue(cmd Command) (bool, string) {
	reason := ""
	var dropCount uint64
	e.queueMu.Lock()
	if e.cfg.PerActorLimit > 0 && cmd.ActorID != "" {
		count := e.perActorCount[cmd.ActorID]
		if count >= e.cfg.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = e.incrementDropLocked(cmd.ActorID)
		} else {
			e.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !e.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
		dropCount = e.incrementDropLocked(cmd.ActorID)
	}
	e.queueMu.Unlock()

	if reason != "" {
		requestID := ""
		if cmd.Cast != nil {
			requestID = cmd.Cast.RequestID
		}
		networklog.RequestDropped(context.Background(), e.deps.Publisher, e.tick.Load(),
			logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindCaster},
			requestID,
			networklog.RequestDroppedPayload{Reason: reason, Drops: dropCount})
		return false, reason
	}
	if e.cfg.WarningStep > 0 {
		if length := e.buffer.Len(); length >= e.cfg.WarningStep && length%e.cfg.WarningStep == 0 {
			e.logf("cast queue backlog reached %d commands", length)
		}
	}
	return true, ""
}

// Pending reports the number of staged commands.
func (e *Engine) Pending() int { return e.buffer.Len() }

// PendingChannels reports the number of in-flight channeled casts.
func (e *Engine) PendingChannels() int { return len(e.pending) }

func (e *Engine) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	e.dropCounts[actorID]++
	return e.dropCounts[actorID]
}

func (e *Engine) releaseActorSlot(actorID string) {
	if actorID == "" {
		return
	}
	e.queueMu.Lock()
	delete(e.perActorCount, actorID)
	delete(e.dropCounts, actorID)
	e.queueMu.Unlock()
}

// Step advances the simulation by dt seconds. Within a tick, cooldown decay
// and regeneration run before cast processing, so an ability reaching zero
// remaining this tick is castable this same tick. Channeled casts whose delay
// expires resolve before newly staged requests.
func (e *Engine) Step(dt float64) {
	e.tick.Add(1)

	for _, id := range e.order {
		e.casters[id].Tick(dt)
	}

	e.resolveDueChannels()

	commands := e.buffer.Drain()
	for _, cmd := range commands {
		e.consumeActorSlot(cmd.ActorID)
		if cmd.Type != CommandCast || cmd.Cast == nil {
			continue
		}
		e.TryCast(*cmd.Cast)
	}
}

func (e *Engine) consumeActorSlot(actorID string) {
	if actorID == "" {
		return
	}
	e.queueMu.Lock()
	if count := e.perActorCount[actorID]; count > 1 {
		e.perActorCount[actorID] = count - 1
	} else {
		delete(e.perActorCount, actorID)
	}
	e.queueMu.Unlock()
}

// DrainResults returns the results produced since the last drain.
func (e *Engine) DrainResults() []CastResult {
	if len(e.results) == 0 {
		return nil
	}
	drained := e.results
	e.results = nil
	return drained
}

// TryCast validates and executes a request immediately. It is the entry point
// for both staged commands and authority-side direct calls; the returned
// result is final unless the ability has a cast time, in which case ok
// reports acceptance and the result arrives on a later tick through
// CastCompleted and DrainResults. Every produced result, immediate or
// deferred, reaches both channels exactly once.
func (e *Engine) TryCast(req CastRequest) (CastResult, bool) {
	result, deferred := e.beginCast(req)
	if deferred {
		return CastResult{}, true
	}
	e.finishResult(result)
	return result, result.Approved
}

// Precheck runs the validation chain without mutating anything. Predicting
// clients use it to fail obviously doomed requests locally; passing it is
// never a promise, the authority re-validates from scratch.
func (e *Engine) Precheck(casterID string, slot int) FailureCode {
	caster, ok := e.casters[casterID]
	if !ok {
		return FailureInvalidTarget
	}
	if slot < 0 || slot >= caster.SlotCount() {
		return FailureInvalidAbility
	}
	def, ok := caster.AbilityAt(slot)
	if !ok {
		return FailureAbilityNotFound
	}
	if caster.Cooldowns.Locked(slot) {
		return FailureAbilityLocked
	}
	if caster.Cooldowns.Remaining(slot) > 0 {
		return FailureOnCooldown
	}
	if caster.Cooldowns.GlobalActive() {
		return FailureGlobalCooldown
	}
	if !caster.Mana.HasSufficient(def.ManaCost) {
		return FailureInsufficientMana
	}
	return FailureNone
}

// beginCast runs the validation chain and either completes the cast, defers
// it behind a channel lock, or rejects it. The second return reports
// deferral.
func (e *Engine) beginCast(req CastRequest) (CastResult, bool) {
	caster, ok := e.casters[req.CasterID]
	if !ok {
		return e.reject(nil, req, FailureInvalidTarget), false
	}

	if req.Slot < 0 || req.Slot >= caster.SlotCount() {
		return e.reject(caster, req, FailureInvalidAbility), false
	}
	def, ok := caster.AbilityAt(req.Slot)
	if !ok {
		return e.reject(caster, req, FailureAbilityNotFound), false
	}
	if caster.Cooldowns.Locked(req.Slot) {
		return e.reject(caster, req, FailureAbilityLocked), false
	}
	if caster.Cooldowns.Remaining(req.Slot) > 0 {
		return e.reject(caster, req, FailureOnCooldown), false
	}
	if caster.Cooldowns.GlobalActive() {
		return e.reject(caster, req, FailureGlobalCooldown), false
	}
	if !caster.Mana.HasSufficient(def.ManaCost) {
		return e.reject(caster, req, FailureInsufficientMana), false
	}

	// Commit point. The lock is taken before consumption so a concurrent
	// mutation cannot slip a second cast in; if consumption still fails the
	// slot is unlocked again on the way out.
	channeled := def.CastTime > 0
	if channeled {
		caster.Cooldowns.Lock(req.Slot)
	}
	if !caster.Mana.TryConsume(def.ManaCost) {
		if channeled {
			caster.Cooldowns.Unlock(req.Slot)
		}
		return e.reject(caster, req, FailureInsufficientMana), false
	}
	if def.Offensive() {
		caster.Combat.MarkAction()
	}

	if channeled {
		due := e.tick.Load() + e.ticksFor(def.CastTime)
		e.pending = append(e.pending, pendingCast{dueTick: due, request: req, def: def})
		castlog.ChannelStarted(context.Background(), e.deps.Publisher, e.tick.Load(),
			e.casterRef(caster), req.RequestID,
			castlog.ChannelPayload{Ability: def.ID, Slot: req.Slot, DueTick: due})
		return CastResult{}, true
	}

	return e.completeCast(caster, req, def), false
}

func (e *Engine) ticksFor(d time.Duration) uint64 {
	ticks := uint64(d.Seconds() * float64(e.cfg.TickRate))
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

func (e *Engine) resolveDueChannels() {
	if len(e.pending) == 0 {
		return
	}
	kept := e.pending[:0]
	for _, p := range e.pending {
		if p.dueTick > e.tick.Load() {
			kept = append(kept, p)
			continue
		}
		caster, ok := e.casters[p.request.CasterID]
		if !ok {
			// Caster left mid-channel; nothing to unlock or refund.
			continue
		}
		e.finishResult(e.completeCast(caster, p.request, p.def))
	}
	e.pending = kept
}

// completeCast resolves hits, applies effects, starts cooldowns, and builds
// the approved result. The channel lock, if held, is released on every path.
func (e *Engine) completeCast(caster *Caster, req CastRequest, def *ability.Definition) CastResult {
	defer caster.Cooldowns.Unlock(req.Slot)

	hits := e.resolver.Resolve(caster, def, nil)
	outcomes := e.applyHits(caster, req, def, hits)

	cooldown := caster.Cooldowns.Start(req.Slot, def.Cooldown.Seconds())
	caster.Cooldowns.TriggerGlobal()

	e.deps.Effects.CastEffect(caster.ID, def, req.TargetX, req.TargetY)

	result := CastResult{
		RequestID:         req.RequestID,
		CasterID:          caster.ID,
		Slot:              req.Slot,
		Tick:              e.tick.Load(),
		Approved:          true,
		Mana:              caster.Mana.Current(),
		CooldownRemaining: cooldown,
		GlobalCooldown:    caster.Cooldowns.GlobalRemaining(),
		Hits:              outcomes,
	}

	targets := make([]logging.EntityRef, 0, len(outcomes))
	for _, outcome := range outcomes {
		targets = append(targets, logging.EntityRef{ID: outcome.TargetID, Kind: logging.EntityKindCaster})
	}
	castlog.Resolved(context.Background(), e.deps.Publisher, e.tick.Load(),
		e.casterRef(caster), req.RequestID,
		castlog.ResolvedPayload{
			Ability:  def.ID,
			Slot:     req.Slot,
			Mana:     result.Mana,
			Cooldown: cooldown,
			Hits:     len(outcomes),
		}, targets)
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add("casts_approved_total", 1)
	}
	return result
}

// applyHits dispatches each pending hit by ability kind. A fault on one
// target degrades that hit only: resources already spent stay spent and the
// remaining targets still apply.
func (e *Engine) applyHits(caster *Caster, req CastRequest, def *ability.Definition, hits []PendingHit) []HitOutcome {
	if len(hits) == 0 {
		return nil
	}
	outcomes := make([]HitOutcome, 0, len(hits))
	for _, hit := range hits {
		outcome, ok := e.applyHit(caster, req, def, hit)
		if ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

func (e *Engine) applyHit(caster *Caster, req CastRequest, def *ability.Definition, hit PendingHit) (outcome HitOutcome, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			castlog.EffectFault(context.Background(), e.deps.Publisher, e.tick.Load(),
				e.casterRef(caster), req.RequestID,
				castlog.FaultPayload{Ability: def.ID, Slot: req.Slot, Detail: fmt.Sprint(r)})
			ok = false
		}
	}()

	target := hit.Target
	if target == nil {
		castlog.EffectFault(context.Background(), e.deps.Publisher, e.tick.Load(),
			e.casterRef(caster), req.RequestID,
			castlog.FaultPayload{Ability: def.ID, Slot: req.Slot, Detail: "nil target"})
		return HitOutcome{}, false
	}

	targetRef := logging.EntityRef{ID: target.ActorID(), Kind: logging.EntityKindCaster}

	switch def.Kind {
	case ability.KindInstant, ability.KindArea, ability.KindProjectile:
		target.TakeDamage(hit.Amount)
		caster.Combat.MarkAction()
		combatlog.Damage(context.Background(), e.deps.Publisher, e.tick.Load(),
			e.casterRef(caster), targetRef,
			combatlog.DamagePayload{Ability: def.ID, Amount: hit.Amount, Critical: hit.Critical, TargetHealth: target.Health()})
		if target.Dead() {
			combatlog.Defeat(context.Background(), e.deps.Publisher, e.tick.Load(),
				e.casterRef(caster), targetRef,
				combatlog.DefeatPayload{Ability: def.ID})
		}
	case ability.KindHeal:
		target.Heal(hit.Amount)
		// Healing someone else is a combat action; patching yourself up
		// is not.
		if target.ActorID() != caster.ID {
			caster.Combat.MarkAction()
		}
	case ability.KindBuff:
		target.ApplyBuff(def.BuffKind, def.BuffValue, def.BuffDuration)
		if target.ActorID() != caster.ID {
			caster.Combat.MarkAction()
		}
		conditionslog.BuffApplied(context.Background(), e.deps.Publisher, e.tick.Load(),
			e.casterRef(caster), targetRef,
			conditionslog.BuffAppliedPayload{Kind: def.BuffKind, Value: def.BuffValue, DurationMs: def.BuffDuration.Milliseconds()})
	}

	return HitOutcome{
		TargetID:        target.ActorID(),
		Amount:          hit.Amount,
		Critical:        hit.Critical,
		RemainingHealth: target.Health(),
		Fatal:           target.Dead(),
	}, true
}

func (e *Engine) reject(caster *Caster, req CastRequest, code FailureCode) CastResult {
	result := CastResult{
		RequestID: req.RequestID,
		CasterID:  req.CasterID,
		Slot:      req.Slot,
		Tick:      e.tick.Load(),
		Approved:  false,
		Failure:   code,
	}
	actor := logging.EntityRef{ID: req.CasterID, Kind: logging.EntityKindCaster}
	if caster != nil {
		result.Mana = caster.Mana.Current()
		result.CooldownRemaining = caster.Cooldowns.Remaining(req.Slot)
		result.GlobalCooldown = caster.Cooldowns.GlobalRemaining()
		actor = e.casterRef(caster)
	}
	castlog.Rejected(context.Background(), e.deps.Publisher, e.tick.Load(), actor, req.RequestID,
		castlog.RejectedPayload{Slot: req.Slot, Failure: string(code)})
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add("casts_rejected_total", 1)
	}
	return result
}

func (e *Engine) finishResult(result CastResult) {
	e.results = append(e.results, result)
	e.CastCompleted.Emit(result)
}

func (e *Engine) casterRef(c *Caster) logging.EntityRef {
	return logging.EntityRef{ID: c.ID, Kind: logging.EntityKindCaster}
}

func (e *Engine) logf(format string, args ...any) {
	if e.deps.Logger == nil {
		return
	}
	e.deps.Logger.Printf(format, args...)
}
