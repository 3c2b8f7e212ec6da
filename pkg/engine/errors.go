package engine

import "time"

// TurnState tracks a turn through its lifecycle. The engine holds no
// state across turns; these values appear in results and logs only.
type TurnState string

const (
	StateIdle       TurnState = "idle"
	StateValidating TurnState = "validating"
	StateResolving  TurnState = "resolving"
	StateCommitting TurnState = "committing"
	StateDone       TurnState = "done"
	StateRejected   TurnState = "rejected"
	StateFaulted    TurnState = "faulted"
)

// RejectKind classifies user-visible rejections. Unexpected failures
// (persistence errors) are not rejections; they surface as Faulted
// results with a wrapped error.
type RejectKind string

const (
	// RejectNotFound covers unknown users, parts, and items that are
	// not auto-healed by provisioning.
	RejectNotFound RejectKind = "not_found"
	// RejectInvalidInput covers out-of-range choice indexes and other
	// caller mistakes.
	RejectInvalidInput RejectKind = "invalid_input"
	// RejectRequirementNotMet is returned when a choice requirement or
	// an item precondition fails. No state is mutated.
	RejectRequirementNotMet RejectKind = "requirement_not_met"
	// RejectCooldownActive is returned for an early daily claim. The
	// remaining wait is part of the rejection.
	RejectCooldownActive RejectKind = "cooldown_active"
)

// Rejection is an explicit, user-facing refusal. Every rejection
// carries a specific, actionable reason.
type Rejection struct {
	Kind    RejectKind `json:"kind"`
	Message string     `json:"message"`

	// Stat, Need, Have identify a failing stat floor.
	Stat string `json:"stat,omitempty"`
	Need int    `json:"need,omitempty"`
	Have int    `json:"have,omitempty"`
	// Flag identifies a failing flag gate.
	Flag string `json:"flag,omitempty"`

	// RetryAfter is the remaining cooldown for RejectCooldownActive.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}
