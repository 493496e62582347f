package sim

// CastResult is the authoritative outcome of one processed CastRequest. It is
// produced exactly once, broadcast to every reconciling peer, applied, and
// discarded; results are never persisted.
type CastResult struct {
	RequestID string      `json:"requestId"`
	CasterID  string      `json:"casterId"`
	Slot      int         `json:"slot"`
	Tick      uint64      `json:"t"`
	Approved  bool        `json:"approved"`
	Failure   FailureCode `json:"failure,omitempty"`

	// Authoritative post-mutation values. Observers set these directly
	// instead of re-deriving them.
	Mana              float64 `json:"mana"`
	CooldownRemaining float64 `json:"cooldown"`
	GlobalCooldown    float64 `json:"globalCooldown"`

	Hits []HitOutcome `json:"hits,omitempty"`
}

// Rejected reports whether the result carries a validation failure.
func (r CastResult) Rejected() bool {
	return !r.Approved
}
