package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError means the input is malformed or out of range; the caller
// must fix the request and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError means a referenced id does not exist.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFoundError(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError means the operation is not legal in the entity's current
// state, e.g. re-deciding a decided proof or re-certifying a certified
// project. Callers should treat it as "someone already acted on this".
type InvalidStateError struct {
	Entity string
	ID     uuid.UUID
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %s", e.Op, e.Entity, e.ID, e.State)
}

// IneligibleError means certification was attempted without sufficient
// verified proofs. Reason is safe to surface verbatim.
type IneligibleError struct {
	ProjectID uuid.UUID
	Reason    string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("project %s is not eligible for certification: %s", e.ProjectID, e.Reason)
}

// UnauthorizedError means the actor's role does not permit the operation.
type UnauthorizedError struct {
	ActorID string
	Op      string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s is not authorized to %s", e.ActorID, e.Op)
}
