package executor

import (
	"errors"
	"fmt"

	"github.com/vellumdb/vellum/lib/document"
)

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// CommandKind is the type of a single batched write operation.
type CommandKind uint8

const (
	CommandPut    CommandKind = iota + 1 // insert or replace a document
	CommandDelete                        // remove a document
)

// String returns the string representation of a CommandKind.
func (k CommandKind) String() string {
	switch k {
	case CommandPut:
		return "put"
	case CommandDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Constraint is the optimistic concurrency constraint attached to a command.
type Constraint uint8

const (
	// ConstraintNone applies the command unconditionally (last writer wins).
	ConstraintNone Constraint = iota
	// ConstraintMatchVersion applies the command only if the stored
	// document's version equals Command.Expected.
	ConstraintMatchVersion
	// ConstraintMustNotExist applies the command only if no document is
	// stored under the identifier.
	ConstraintMustNotExist
)

// String returns the string representation of a Constraint.
func (c Constraint) String() string {
	switch c {
	case ConstraintNone:
		return "none"
	case ConstraintMatchVersion:
		return "match-version"
	case ConstraintMustNotExist:
		return "must-not-exist"
	default:
		return "unknown"
	}
}

// Command is one write in a batch. Commands are ephemeral: constructed per
// flush by the session layer, consumed by the executor, and discarded.
type Command struct {
	Kind       CommandKind           `json:"kind"`
	ID         string                `json:"id"`
	Body       document.Body         `json:"body,omitempty"`     // Put only
	Metadata   document.Metadata     `json:"metadata,omitempty"` // Put only
	Constraint Constraint            `json:"constraint"`
	Expected   document.VersionToken `json:"expected,omitempty"` // ConstraintMatchVersion only
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// CommandStatus is the per-command outcome of a batch submission.
type CommandStatus uint8

const (
	StatusApplied  CommandStatus = iota + 1 // command took effect
	StatusConflict                          // version constraint violated
	StatusFailed                            // rejected because a sibling command conflicted
)

// String returns the string representation of a CommandStatus.
func (s CommandStatus) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusConflict:
		return "conflict"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CommandResult is the outcome of one command, in submission order. Version
// is the new token for applied Put commands and empty otherwise.
type CommandResult struct {
	ID      string                `json:"id"`
	Status  CommandStatus         `json:"status"`
	Version document.VersionToken `json:"version,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IExecutor is the remote executor the session layer writes through. The
// transport behind it (in-process, tcp, unix socket, http) is opaque to
// callers.
type IExecutor interface {
	// SubmitBatch applies all commands atomically and returns one result
	// per command, order-preserving. If any command's constraint is
	// violated, no command takes effect: violating commands report
	// StatusConflict and the remaining commands StatusFailed. The error
	// return is reserved for transport and executor failures - a rejected
	// batch is a valid response, not an error.
	SubmitBatch(commands []Command) ([]CommandResult, error)

	// Load returns the document stored under the identifier. The boolean
	// return value indicates whether the document was found.
	Load(id string) (doc *document.Document, loaded bool, err error)

	// Has returns whether a document exists under the identifier.
	Has(id string) (loaded bool, err error)
}

// Range is a reserved identifier range for one collection: values in
// [Low, High) belong exclusively to the holder of the lease.
type Range struct {
	Collection string `json:"collection"`
	Low        uint64 `json:"low"`
	High       uint64 `json:"high"` // exclusive
	Lease      string `json:"lease"`
}

// IRangeReserver hands out identifier ranges. Implementations must never
// issue overlapping ranges for the same collection to two callers, even
// concurrently. Ranges abandoned by a crashed holder are not reclaimed -
// identifiers need not be dense, so gaps are acceptable.
type IRangeReserver interface {
	ReserveRange(collection string, capacity uint64) (Range, error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ExecutorError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new executor Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the return code from an error chain. Errors that are not
// executor errors map to RetCInternalError.
func CodeOf(err error) RetCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Command executed successfully.
	RetCInternalError                // 1: Command failed due to an internal error.
	RetCInvalidBatch                 // 2: Batch was structurally invalid.
	RetCTransport                    // 3: Transport-level failure.
)

// String returns the string representation of a RetCode.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidBatch:
		return "InvalidBatch"
	case RetCTransport:
		return "Transport"
	default:
		return "Unknown"
	}
}
