package domain

import "errors"

// Error kinds surfaced by the lifecycle engine. Callers branch on them
// with errors.Is; services wrap them with additional context.
var (
	// ErrInvalidScoreRange rejects RPN factors outside [1,10].
	ErrInvalidScoreRange = errors.New("risk factor outside allowed range [1,10]")

	// ErrInvalidTransition rejects a status move the transition table
	// does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTerminalStateViolation rejects any transition request against
	// a record already in its terminal state.
	ErrTerminalStateViolation = errors.New("record is in a terminal state")

	// ErrComplianceGateNotSatisfied blocks progression past investigation
	// until the compliance check is approved.
	ErrComplianceGateNotSatisfied = errors.New("compliance check not approved")

	// ErrClassificationIncomplete blocks CAPA planning while any RPN
	// factor is unset.
	ErrClassificationIncomplete = errors.New("risk classification incomplete")

	// ErrCannotDeleteInProgressAction protects audit completeness: only
	// open CAPA actions may be removed.
	ErrCannotDeleteInProgressAction = errors.New("capa action is past open state")

	// ErrStaleWriteConflict means the record changed since it was read;
	// the caller must re-read and re-validate before retrying.
	ErrStaleWriteConflict = errors.New("record changed since read")

	// ErrExternalServiceUnavailable reports a collaborator failure
	// (text generation, compliance review); retryable.
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrNotFound means no record with the given id exists.
	ErrNotFound = errors.New("record not found")
)
