package sim

// FailureCode identifies why a cast request was rejected. Failures are
// expected, frequent outcomes surfaced to the caller and the UI; they are
// never modelled as errors.
type FailureCode string

const (
	FailureNone             FailureCode = ""
	FailureInvalidAbility   FailureCode = "invalid_ability"
	FailureAbilityNotFound  FailureCode = "ability_not_found"
	FailureAbilityLocked    FailureCode = "ability_locked"
	FailureOnCooldown       FailureCode = "on_cooldown"
	FailureGlobalCooldown   FailureCode = "global_cooldown"
	FailureInsufficientMana FailureCode = "insufficient_mana"
	FailureInvalidTarget    FailureCode = "invalid_target"
	FailureOutOfRange       FailureCode = "out_of_range"
	FailureNetwork          FailureCode = "network_error"
)

// Reason renders the code as a human-readable rejection message for UI layers.
func (c FailureCode) Reason() string {
	switch c {
	case FailureNone:
		return ""
	case FailureInvalidAbility:
		return "invalid ability slot"
	case FailureAbilityNotFound:
		return "no ability in that slot"
	case FailureAbilityLocked:
		return "ability is channeling"
	case FailureOnCooldown:
		return "ability on cooldown"
	case FailureGlobalCooldown:
		return "global cooldown active"
	case FailureInsufficientMana:
		return "insufficient mana"
	case FailureInvalidTarget:
		return "invalid target"
	case FailureOutOfRange:
		return "target out of range"
	case FailureNetwork:
		return "network error"
	default:
		return string(c)
	}
}
