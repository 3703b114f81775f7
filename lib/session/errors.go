package session

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// the identifier of the affected document (if any) and a message.
type Error struct {
	Code  RetCode // The return code
	ID    string  // Affected document identifier, "" if not entity-scoped
	Msg   string  // The error message
	Cause error   // Underlying error, nil if none
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("SessionError (code %s, id %s): %s", e.Code, e.ID, e.Msg)
	}
	return fmt.Sprintf("SessionError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new session Error with the given code and message.
func NewError(code RetCode, id, msg string) *Error {
	return &Error{Code: code, ID: id, Msg: msg}
}

// WrapError creates a new session Error wrapping a cause.
func WrapError(code RetCode, id string, cause error) *Error {
	return &Error{Code: code, ID: id, Msg: cause.Error(), Cause: cause}
}

// CodeOf extracts the RetCode from an error chain. Returns RetCUnknown for
// errors that did not originate in this package.
func CodeOf(err error) RetCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCUnknown
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCUnknown             RetCode = iota // 0: Not a session error.
	RetCAllocationFailed                   // 1: Identifier range reservation failed.
	RetCDuplicateIdentifier                // 2: Second entity attached under one identifier.
	RetCConcurrencyConflict                // 3: Server-side version mismatch.
	RetCVetoedOperation                    // 4: A before-* listener rejected the write.
	RetCTransportFailure                   // 5: Collaborator-level failure, propagated unchanged.
	RetCInvalidOperation                   // 6: Session misuse (flush after cancellation, ...).
)

// String returns the string representation of a RetCode.
func (c RetCode) String() string {
	switch c {
	case RetCAllocationFailed:
		return "AllocationFailed"
	case RetCDuplicateIdentifier:
		return "DuplicateIdentifier"
	case RetCConcurrencyConflict:
		return "ConcurrencyConflict"
	case RetCVetoedOperation:
		return "VetoedOperation"
	case RetCTransportFailure:
		return "TransportFailure"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
