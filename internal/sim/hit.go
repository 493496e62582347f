package sim

import (
	"math/rand"
	"sync"
	"time"

	"riftward/server/internal/ability"
)

// Damageable is the health capability consumed from targets.
type Damageable interface {
	TakeDamage(amount float64)
	Health() float64
	Dead() bool
}

// Healable is the healing capability consumed from targets.
type Healable interface {
	Heal(amount float64)
}

// Buffable is the buff capability consumed from targets.
type Buffable interface {
	ApplyBuff(kind string, value float64, duration time.Duration)
}

// Target is the full contract a spatial-query candidate must satisfy.
type Target interface {
	ActorID() string
	TeamID() int
	Position() (x, y float64)
	Damageable
	Healable
	Buffable
}

// HitOutcome records the resolved effect of an ability on one target.
type HitOutcome struct {
	TargetID        string  `json:"targetId"`
	Amount          float64 `json:"amount"`
	Critical        bool    `json:"critical,omitempty"`
	RemainingHealth float64 `json:"remainingHealth"`
	Fatal           bool    `json:"fatal,omitempty"`
}

// PendingHit pairs a selected target with its rolled magnitude before effect
// application. The engine owns application so that a fault on one target
// cannot abort target selection bookkeeping.
type PendingHit struct {
	Target   Target
	Amount   float64
	Critical bool
}

// candidateBufferSize caps how many colliders a single query may return.
const candidateBufferSize = 32

// HitResolver selects and rolls targets for an ability shape. Candidate
// buffers are rented from a pool and returned after every resolve so the hot
// cast path does not allocate.
type HitResolver struct {
	index SpatialQuerier
	rng   *rand.Rand
	pool  sync.Pool
}

// NewHitResolver constructs a resolver over the provided spatial service.
// The rng drives critical rolls; passing nil seeds one from the clock.
func NewHitResolver(index SpatialQuerier, rng *rand.Rand) *HitResolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r := &HitResolver{index: index, rng: rng}
	r.pool.New = func() any {
		buf := make([]Target, candidateBufferSize)
		return &buf
	}
	return r
}

// Resolve queries the spatial service around the caster and returns up to
// MaxTargets pending hits. Selection is first-match-wins in the service's
// enumeration order; candidates are never distance-sorted. The caster itself
// is excluded except for self-affinity abilities, which bypass the query and
// target the caster directly.
func (r *HitResolver) Resolve(caster *Caster, def *ability.Definition, hits []PendingHit) []PendingHit {
	if caster == nil || def == nil {
		return hits
	}
	if def.Affinity == ability.AffinitySelf {
		return append(hits, r.roll(caster, def))
	}
	if r.index == nil {
		return hits
	}

	bufPtr := r.pool.Get().(*[]Target)
	buf := (*bufPtr)[:candidateBufferSize]
	count := r.index.FindWithinRadius(caster.X, caster.Y, def.Radius, buf)

	accepted := 0
	for i := 0; i < count && accepted < def.MaxTargets; i++ {
		candidate := buf[i]
		if candidate == nil || candidate.ActorID() == caster.ID {
			continue
		}
		if !affinityMatches(def.Affinity, caster, candidate) {
			continue
		}
		hits = append(hits, r.roll(candidate, def))
		accepted++
	}

	for i := range buf {
		buf[i] = nil
	}
	r.pool.Put(bufPtr)
	return hits
}

func (r *HitResolver) roll(target Target, def *ability.Definition) PendingHit {
	amount := def.BasePower
	critical := false
	if def.CritChance > 0 && r.rng.Float64() < def.CritChance {
		amount *= def.CritMultiplier
		critical = true
	}
	return PendingHit{Target: target, Amount: amount, Critical: critical}
}

func affinityMatches(affinity ability.Affinity, caster *Caster, candidate Target) bool {
	switch affinity {
	case ability.AffinityEnemy:
		return candidate.TeamID() != caster.Team
	case ability.AffinityAlly:
		return candidate.TeamID() == caster.Team
	case ability.AffinityAll:
		return true
	default:
		return false
	}
}
