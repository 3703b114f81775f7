package listener

import (
	"fmt"

	"github.com/vellumdb/vellum/lib/document"
)

// --------------------------------------------------------------------------
// Extension Points
// --------------------------------------------------------------------------

// Point identifies a lifecycle extension point at which listeners run.
type Point uint8

const (
	PointBeforeStore Point = iota // before a dirty entity is written
	PointAfterStore               // after a batch write succeeded
	PointBeforeDelete             // before a deletion is written
	PointBeforeQuery              // before a load is issued
	PointConvertIn                // after a body was loaded, before deserialization
	PointConvertOut               // after an entity was serialized, before batching
	PointReplicationConflict      // when the server reports a replication conflict
)

// String returns the string representation of a Point.
func (p Point) String() string {
	switch p {
	case PointBeforeStore:
		return "before-store"
	case PointAfterStore:
		return "after-store"
	case PointBeforeDelete:
		return "before-delete"
	case PointBeforeQuery:
		return "before-query"
	case PointConvertIn:
		return "convert-in"
	case PointConvertOut:
		return "convert-out"
	case PointReplicationConflict:
		return "replication-conflict"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Events and Callbacks
// --------------------------------------------------------------------------

// Event carries the mutable state a listener may inspect or amend. Which
// fields are populated depends on the extension point: store and delete
// points see the identifier, body and metadata of the affected document,
// query points only the identifier, conversion points the body.
type Event struct {
	Point    Point
	ID       string
	Body     document.Body
	Metadata document.Metadata
	Entity   any
}

// Callback is a single listener. A before-* callback may veto the operation
// by returning an error; the error aborts only the affected entity's
// operation, never the whole batch. Errors returned from after-* callbacks
// are reported but cannot undo the write.
type Callback func(e *Event) error

// VetoError marks an operation as rejected by a listener. The session layer
// reports it distinctly from a server-side conflict.
type VetoError struct {
	Point Point
	ID    string
	Cause error
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("operation on %q vetoed at %s: %v", e.ID, e.Point, e.Cause)
}

func (e *VetoError) Unwrap() error { return e.Cause }

// Veto wraps a cause into a VetoError for the given point and identifier.
func Veto(point Point, id string, cause error) error {
	return &VetoError{Point: point, ID: id, Cause: cause}
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// Pipeline is an ordered chain of listeners per extension point. Listeners
// are registered at construction time and invoked in registration order.
//
// Thread-safety: Register must not be called concurrently with Invoke. The
// expected usage is to register all listeners before the owning session
// store is used.
type Pipeline struct {
	callbacks map[Point][]Callback
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		callbacks: make(map[Point][]Callback),
	}
}

// Register appends a callback to the chain for the given point.
func (p *Pipeline) Register(point Point, cb Callback) {
	p.callbacks[point] = append(p.callbacks[point], cb)
}

// Invoke runs all callbacks registered for the point in order. The first
// error stops the chain and is returned; before-* errors are wrapped as
// VetoError so callers can distinguish a veto from an infrastructure error.
// A nil pipeline invokes nothing.
func (p *Pipeline) Invoke(e *Event) error {
	if p == nil {
		return nil
	}
	for _, cb := range p.callbacks[e.Point] {
		if err := cb(e); err != nil {
			if isBeforePoint(e.Point) {
				return Veto(e.Point, e.ID, err)
			}
			return err
		}
	}
	return nil
}

// isBeforePoint reports whether errors at this point carry veto semantics
func isBeforePoint(point Point) bool {
	switch point {
	case PointBeforeStore, PointBeforeDelete, PointBeforeQuery:
		return true
	default:
		return false
	}
}
