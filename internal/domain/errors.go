// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType is the semantic category of a domain error. Boundaries (HTTP,
// NATS handlers) map categories to responses; business code never inspects
// status codes.
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // malformed or rejected input
	ErrorTypeNotFound                     // entity does not exist
	ErrorTypeConflict                     // concurrent update lost the race
	ErrorTypeInternal                     // bug or unexpected failure
	ErrorTypeUnavailable                  // dependency not reachable
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// DomainError carries the semantic category alongside the message and an
// optional wrapped cause.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType extracts the semantic category from any error. Errors that
// did not originate in this domain are treated as internal.
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}

func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}
