package services

import (
	"fmt"

	"github.com/poolworks/poolcare-api/models"
)

// ValidationError reports a malformed or missing field on create or patch.
// It is raised before any mutation or network call happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// PermissionError reports a role gate violation. It names the offending
// field and the role that would have been required.
type PermissionError struct {
	Field        string
	RequiredRole models.UserRole
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s role required to modify %s", e.RequiredRole, e.Field)
}

// ConflictError reports that the entity changed underneath the caller.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// TransportError wraps a network or backend failure during a flush. The
// operation can be retried; nothing in this package retries on its own.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
