package taggedcontent

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError indicates a requested entity is absent.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError for the given entity kind and identity.
func NotFound(entity string, id uuid.UUID) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AlreadyExistsError indicates a uniqueness violation, such as a duplicate
// email address or tag name.
type AlreadyExistsError struct {
	Entity     string
	Identifier string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with %s already exists", e.Entity, e.Identifier)
}

// AlreadyExists builds an AlreadyExistsError.
func AlreadyExists(entity, identifier string) error {
	return &AlreadyExistsError{Entity: entity, Identifier: identifier}
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae *AlreadyExistsError
	return errors.As(err, &ae)
}

// UnauthenticatedError indicates a missing or invalid session, or
// insufficient privilege to even attempt the operation. The reason is
// optional and safe to show to the caller.
type UnauthenticatedError struct {
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	if e.Reason == "" {
		return "unauthenticated"
	}
	return e.Reason
}

// Unauthenticated builds an UnauthenticatedError with an optional reason.
func Unauthenticated(reason string) error {
	return &UnauthenticatedError{Reason: reason}
}

// IsUnauthenticated reports whether err is an UnauthenticatedError.
func IsUnauthenticated(err error) bool {
	var ua *UnauthenticatedError
	return errors.As(err, &ua)
}

// InvalidInputError indicates caller-supplied data fails a domain rule.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// InvalidInput builds an InvalidInputError.
func InvalidInput(message string) error {
	return &InvalidInputError{Message: message}
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ii *InvalidInputError
	return errors.As(err, &ii)
}
