package session

import (
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

// --------------------------------------------------------------------------
// Concurrency Guard
// --------------------------------------------------------------------------

// concurrencyGuard decides the optimistic concurrency constraint stamped on
// each command.
//
// Policy: every command carries the version token recorded at attach/load
// time, so the executor rejects it if another writer modified the document
// since it was read. New entities are stamped must-not-exist instead,
// preventing a silent overwrite of a document created concurrently under a
// colliding identifier. Force-written entities carry no constraint - that
// is last-writer-wins and must be requested explicitly per entity, never
// defaulted, since it discards concurrent edits silently.
type concurrencyGuard struct{}

// checkAndStamp sets the constraint fields of the command from the tracked
// entity's state.
func (g concurrencyGuard) checkAndStamp(cmd *executor.Command, tracked *trackedEntity) {
	switch {
	case tracked.forced:
		cmd.Constraint = executor.ConstraintNone
	case tracked.isNew:
		cmd.Constraint = executor.ConstraintMustNotExist
	case tracked.version == document.VersionNone:
		// No token is known (e.g. deletion of a never-loaded identifier):
		// there is nothing to compare against, so no constraint is carried.
		cmd.Constraint = executor.ConstraintNone
	default:
		cmd.Constraint = executor.ConstraintMatchVersion
		cmd.Expected = tracked.version
	}
}
