package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandCast CommandType = "Cast"
)

// Command represents an intent captured for processing on the next tick.
// Heartbeats never reach the simulation; the hub consumes them directly.
type Command struct {
	OriginTick uint64
	ActorID    string
	Type       CommandType
	IssuedAt   time.Time
	Cast       *CastRequest
}

// CastRequest carries one attempted cast. It is created on input, consumed by
// validation, and discarded once the matching CastResult exists.
type CastRequest struct {
	RequestID string
	CasterID  string
	Slot      int
	TargetX   float64
	TargetY   float64
	DirX      float64
	DirY      float64
}
