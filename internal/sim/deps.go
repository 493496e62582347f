package sim

import (
	"math/rand"

	"riftward/server/internal/ability"
	"riftward/server/internal/telemetry"
	"riftward/server/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation
// engine. Every service is passed explicitly so tests can substitute fakes;
// nothing here is ambient.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
	RNG       *rand.Rand
	Effects   EffectSink
}

// EffectSink receives fire-and-forget presentation notifications. The core
// never waits on it; implementations must not block the tick.
type EffectSink interface {
	CastEffect(casterID string, def *ability.Definition, x, y float64)
}

// NopEffectSink discards every notification.
type NopEffectSink struct{}

// CastEffect implements EffectSink.
func (NopEffectSink) CastEffect(string, *ability.Definition, float64, float64) {}
