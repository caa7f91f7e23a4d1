package approval

import (
	"fmt"

	"github.com/google/uuid"
)

// The workflow surfaces every failure as one of the typed errors below
// so callers branch with errors.As instead of string matching. None of
// them is retried inside the core: each one reflects either a business
// rule violation or a concurrent write the caller must resolve.

// NotFoundError: the referenced approval does not exist.
type NotFoundError struct {
	ApprovalID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("approval %s not found", e.ApprovalID)
}

// InvalidStatusError: the action is not legal from the cycle's current
// status (including any action on a terminal record).
type InvalidStatusError struct {
	Current Status
	Action  Action
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("cannot %s an approval in status %s", e.Action, e.Current)
}

// UnauthorizedError: the actor's role does not meet the authority the
// action requires.
type UnauthorizedError struct {
	ApprovalID uuid.UUID
	UserID     uuid.UUID
	Action     Action
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("user %s is not authorized to %s approval %s", e.UserID, e.Action, e.ApprovalID)
}

// QuotationLockedError: the quotation already has an open approval, so
// neither a new request nor a field edit may proceed.
type QuotationLockedError struct {
	QuotationID uuid.UUID
	ApprovalID  uuid.UUID
}

func (e *QuotationLockedError) Error() string {
	return fmt.Sprintf("quotation %s is locked by open approval %s", e.QuotationID, e.ApprovalID)
}

// ConflictError: the optimistic-concurrency version check failed; the
// record changed between read and write.
type ConflictError struct {
	ApprovalID uuid.UUID
	Version    int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("approval %s was modified concurrently (version %d is stale)", e.ApprovalID, e.Version)
}

// ValidationError: malformed input rejected before any state is read.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
