package arena

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"riftward/server/internal/ability"
	"riftward/server/internal/net/proto"
	"riftward/server/internal/sim"
	"riftward/server/internal/telemetry"
	"riftward/server/logging"
	lifecyclelog "riftward/server/logging/lifecycle"
	networklog "riftward/server/logging/network"
	simulationlog "riftward/server/logging/simulation"
)

const writeWait = 10 * time.Second

// alarmStreak is the number of consecutive tick budget overruns that
// escalates the warning into an alarm.
const alarmStreak = 5

// Conn is the subset of the websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// HubConfig tunes the arena: tick cadence, broadcast behaviour, caster
// defaults, and the ability set granted at join.
type HubConfig struct {
	TickRate          int
	KeyframeInterval  int
	ResultWindow      int
	HeartbeatInterval time.Duration
	DisconnectAfter   time.Duration
	SigningKey        []byte
	Seed              int64

	ArenaWidth  float64
	ArenaHeight float64

	MaxHealth      float64
	MaxMana        float64
	ManaRegen      float64
	IdleRegenBoost float64
	GlobalCooldown float64
	MaxReduction   float64
	CombatDuration float64

	Abilities ability.Registry
	Loadout   []string

	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// DefaultHubConfig mirrors the stock arena tuning.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		TickRate:          15,
		KeyframeInterval:  30,
		ResultWindow:      256,
		HeartbeatInterval: 2 * time.Second,
		DisconnectAfter:   6 * time.Second,
		ArenaWidth:        800,
		ArenaHeight:       600,
		MaxHealth:         200,
		MaxMana:           100,
		ManaRegen:         4,
		IdleRegenBoost:    2.5,
		GlobalCooldown:    0.8,
		MaxReduction:      0.4,
		CombatDuration:    5,
		Abilities:         ability.BuiltInRegistry(),
		Loadout: []string{
			ability.AbilityIDSmite,
			ability.AbilityIDFireball,
			ability.AbilityIDShockwave,
			ability.AbilityIDMend,
		},
	}
}

// Subscriber is one attached client connection. Writes are serialized so the
// tick loop and the session goroutine never interleave frames.
type Subscriber struct {
	conn          Conn
	mu            sync.Mutex
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Write sends one text frame to the client.
func (s *Subscriber) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wsConn, ok := s.conn.(*websocket.Conn); ok {
		wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the authoritative engine, every live subscriber, and the retained
// result window. It is the only component that crosses the network trust
// boundary: requests are re-validated by the engine no matter what the client
// claims.
type Hub struct {
	mu          sync.Mutex
	cfg         HubConfig
	engine      *sim.Engine
	abilities   map[string]*ability.Definition
	subscribers map[string]*Subscriber
	results     *resultWindow
	nextID      atomic.Uint64
	rng         *rand.Rand
	publisher   logging.Publisher
	logger      telemetry.Logger

	overrunStreak uint64
}

// NewHub validates the ability registry and builds the simulation.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultHubConfig().TickRate
	}
	if cfg.ResultWindow <= 0 {
		cfg.ResultWindow = DefaultHubConfig().ResultWindow
	}
	if len(cfg.Abilities) == 0 {
		cfg.Abilities = ability.BuiltInRegistry()
	}
	if err := cfg.Abilities.Validate(); err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}
	index := cfg.Abilities.ByID()
	for _, id := range cfg.Loadout {
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("arena: loadout references unknown ability %q", id)
		}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := sim.NewEngine(sim.Deps{
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
		Publisher: publisher,
		RNG:       rand.New(rand.NewSource(seed)),
	}, sim.EngineConfig{TickRate: cfg.TickRate})

	return &Hub{
		cfg:         cfg,
		engine:      engine,
		abilities:   index,
		subscribers: make(map[string]*Subscriber),
		results:     newResultWindow(cfg.ResultWindow),
		rng:         rand.New(rand.NewSource(seed + 1)),
		publisher:   publisher,
		logger:      cfg.Logger,
	}, nil
}

// Join registers a new caster and returns the join payload: assigned id, the
// current snapshot, and the ability catalog the client renders from.
func (h *Hub) Join() proto.JoinResponse {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := fmt.Sprintf("caster-%d", h.nextID.Add(1))
	team := int(h.nextID.Load()) % 2
	caster := sim.NewCaster(sim.CasterConfig{
		ID:             id,
		Team:           team,
		X:              h.rng.Float64() * h.cfg.ArenaWidth,
		Y:              h.rng.Float64() * h.cfg.ArenaHeight,
		MaxHealth:      h.cfg.MaxHealth,
		MaxMana:        h.cfg.MaxMana,
		ManaRegen:      h.cfg.ManaRegen,
		IdleRegenBoost: h.cfg.IdleRegenBoost,
		GlobalCooldown: h.cfg.GlobalCooldown,
		MaxReduction:   h.cfg.MaxReduction,
		CombatDuration: h.cfg.CombatDuration,
	})
	for slot, abilityID := range h.cfg.Loadout {
		caster.SetAbility(slot, h.abilities[abilityID])
	}
	if err := h.engine.AddCaster(caster); err != nil {
		h.logf("failed to register caster %s: %v", id, err)
	}

	lifecyclelog.CasterJoined(context.Background(), h.publisher, h.engine.Tick(),
		logging.EntityRef{ID: id, Kind: logging.EntityKindCaster},
		lifecyclelog.CasterJoinedPayload{SpawnX: caster.X, SpawnY: caster.Y, Team: team})

	return proto.JoinResponse{
		Ver:              proto.Version,
		ID:               id,
		Casters:          h.engine.Snapshot(),
		Abilities:        h.cfg.Abilities,
		TickRate:         h.cfg.TickRate,
		KeyframeInterval: h.cfg.KeyframeInterval,
	}
}

// Subscribe attaches a connection to an existing caster and returns the
// snapshot to seed the client. Unknown ids are refused.
func (h *Hub) Subscribe(casterID string, conn Conn) (*Subscriber, []sim.CasterSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.engine.HasCaster(casterID) {
		return nil, nil, false
	}
	sub := &Subscriber{conn: conn, lastHeartbeat: time.Now()}
	h.subscribers[casterID] = sub
	return sub, h.engine.Snapshot(), true
}

// Disconnect removes a caster and its subscription, reporting whether the
// caster existed.
func (h *Hub) Disconnect(casterID string) bool {
	h.mu.Lock()
	sub, hadSub := h.subscribers[casterID]
	delete(h.subscribers, casterID)
	removed := h.engine.RemoveCaster(casterID)
	tick := h.engine.Tick()
	h.mu.Unlock()

	if hadSub {
		sub.conn.Close()
	}
	if removed {
		lifecyclelog.CasterDisconnected(context.Background(), h.publisher, tick,
			logging.EntityRef{ID: casterID, Kind: logging.EntityKindCaster},
			lifecyclelog.CasterDisconnectedPayload{Reason: "connection_closed"})
	}
	return removed
}

// StageCast validates intake and stages a request for the next tick. The
// returned reason is non-empty on refusal.
func (h *Hub) StageCast(casterID string, msg proto.ClientMessage) (string, bool) {
	request, ok := proto.CastRequest(casterID, msg)
	if !ok {
		return sim.CommandRejectUnknownActor, false
	}
	h.mu.Lock()
	known := h.engine.HasCaster(casterID)
	tick := h.engine.Tick()
	h.mu.Unlock()
	if !known {
		return sim.CommandRejectUnknownActor, false
	}
	cmd := sim.Command{
		OriginTick: tick,
		ActorID:    casterID,
		Type:       sim.CommandCast,
		IssuedAt:   time.Now(),
		Cast:       &request,
	}
	if ok, reason := h.engine.Enqueue(cmd); !ok {
		return reason, false
	}
	return "", true
}

// UpdateHeartbeat records connectivity metadata and reports the round trip.
func (h *Hub) UpdateHeartbeat(casterID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[casterID]
	if !ok {
		return 0, false
	}
	sub.lastHeartbeat = receivedAt
	if clientSent > 0 {
		sent := time.UnixMilli(clientSent)
		if rtt := receivedAt.Sub(sent); rtt > 0 {
			sub.lastRTT = rtt
		}
	}
	return sub.lastRTT, true
}

// ResultByID answers a replay request from the retained window.
func (h *Hub) ResultByID(requestID string) (sim.CastResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.results.Get(requestID)
}

// TickInfo reports the engine tick and queue depths under the hub lock.
func (h *Hub) TickInfo() (tick uint64, staged, pendingCasts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Tick(), h.engine.Pending(), h.engine.PendingChannels()
}

// ResultWindow reports the retained capacity and current occupancy.
func (h *Hub) ResultWindow() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.results.Capacity(), h.results.Len()
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(h.cfg.TickRate)
			}
			last = now
			h.advance(now, dt)
		}
	}
}

func (h *Hub) advance(now time.Time, dt float64) {
	started := time.Now()
	h.mu.Lock()
	h.engine.Step(dt)
	tick := h.engine.Tick()
	results := h.engine.DrainResults()
	for _, result := range results {
		h.results.Add(result)
	}
	var keyframe []sim.CasterSnapshot
	if h.cfg.KeyframeInterval > 0 && tick%uint64(h.cfg.KeyframeInterval) == 0 {
		keyframe = h.engine.Snapshot()
	}
	stale := h.staleSubscribersLocked(now)
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.logf("disconnecting %s after missed heartbeats", id)
		h.Disconnect(id)
		delete(subs, id)
	}
	for _, result := range results {
		h.broadcastResult(subs, result, tick)
	}
	if keyframe != nil {
		h.broadcastKeyframe(subs, keyframe, tick, now)
	}

	h.reportTickBudget(tick, time.Since(started))
}

// reportTickBudget compares one tick's wall time against the cadence budget
// and escalates sustained overruns.
func (h *Hub) reportTickBudget(tick uint64, elapsed time.Duration) {
	budget := time.Second / time.Duration(h.cfg.TickRate)
	if elapsed <= budget {
		h.overrunStreak = 0
		return
	}
	h.overrunStreak++
	ratio := float64(elapsed) / float64(budget)
	if h.overrunStreak >= alarmStreak {
		simulationlog.TickBudgetAlarm(context.Background(), h.publisher, tick,
			simulationlog.TickBudgetAlarmPayload{
				DurationMillis: elapsed.Milliseconds(),
				BudgetMillis:   budget.Milliseconds(),
				Ratio:          ratio,
				Streak:         h.overrunStreak,
			})
		return
	}
	simulationlog.TickBudgetOverrun(context.Background(), h.publisher, tick,
		simulationlog.TickBudgetOverrunPayload{
			DurationMillis: elapsed.Milliseconds(),
			BudgetMillis:   budget.Milliseconds(),
			Ratio:          ratio,
			Streak:         h.overrunStreak,
		})
}

func (h *Hub) staleSubscribersLocked(now time.Time) []string {
	if h.cfg.DisconnectAfter <= 0 {
		return nil
	}
	var stale []string
	for id, sub := range h.subscribers {
		if now.Sub(sub.lastHeartbeat) > h.cfg.DisconnectAfter {
			stale = append(stale, id)
		}
	}
	return stale
}

// broadcastResult fans one signed result out to every subscriber. Results go
// to all peers, not just the requester, so every observer converges.
func (h *Hub) broadcastResult(subs map[string]*Subscriber, result sim.CastResult, tick uint64) {
	data, err := proto.EncodeResult(h.cfg.SigningKey, result)
	if err != nil {
		h.logf("failed to encode result %s: %v", result.RequestID, err)
		return
	}
	for id, sub := range subs {
		if err := sub.Write(data); err != nil {
			h.reportWriteFailure(id, proto.TypeResult, err, tick)
		}
	}
}

func (h *Hub) broadcastKeyframe(subs map[string]*Subscriber, casters []sim.CasterSnapshot, tick uint64, now time.Time) {
	data, err := proto.EncodeKeyframe(proto.KeyframeMessage{
		Tick:       tick,
		ServerTime: now.UnixMilli(),
		Casters:    casters,
	})
	if err != nil {
		h.logf("failed to encode keyframe: %v", err)
		return
	}
	for id, sub := range subs {
		if err := sub.Write(data); err != nil {
			h.reportWriteFailure(id, proto.TypeKeyframe, err, tick)
		}
	}
}

func (h *Hub) reportWriteFailure(casterID, messageType string, err error, tick uint64) {
	networklog.BroadcastFailed(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: casterID, Kind: logging.EntityKindCaster},
		networklog.BroadcastFailedPayload{MessageType: messageType, Detail: err.Error()})
	h.Disconnect(casterID)
}

// DiagnosticsEntry exposes heartbeat data for the diagnostics endpoint.
type DiagnosticsEntry struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// DiagnosticsSnapshot copies per-subscriber connectivity metadata.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := make([]DiagnosticsEntry, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		entries = append(entries, DiagnosticsEntry{
			Ver:           proto.Version,
			ID:            id,
			LastHeartbeat: sub.lastHeartbeat.UnixMilli(),
			RTTMillis:     sub.lastRTT.Milliseconds(),
		})
	}
	return entries
}

// Engine exposes the underlying simulation for white-box tests.
func (h *Hub) Engine() *sim.Engine { return h.engine }

// Config reports the hub configuration.
func (h *Hub) Config() HubConfig { return h.cfg }

// AdvanceForTest runs one locked tick without the wall-clock loop.
func (h *Hub) AdvanceForTest(dt float64) {
	h.advance(time.Now(), dt)
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}
