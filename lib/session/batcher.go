package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/lib/listener"
)

// --------------------------------------------------------------------------
// Command Batching
// --------------------------------------------------------------------------

// pendingCommand pairs a built command with its tracked entity so results
// can be mapped back after submission. snapshot is the raw marshal output
// of the entity: dirty checking compares against codec output, so the
// refreshed snapshot must not contain listener amendments to the wire body.
type pendingCommand struct {
	cmd      executor.Command
	tracked  *trackedEntity
	snapshot document.Body
}

// SaveChanges flushes the session: it diffs every tracked entity against
// its snapshot, runs the listener pipeline, allocates identifiers for new
// entities, stamps concurrency constraints and submits all resulting
// commands as one atomic batch.
//
// Commands are emitted in attach order - determinism is the only goal, the
// session enforces no cross-document invariants. A flush with nothing to do
// submits no batch at all.
//
// On a batch rejection the returned error has code ConcurrencyConflict, the
// result lists the conflicting identifiers and the tracker is left
// untouched: conflicted entities stay dirty until the caller reloads or
// force-writes them. Cancelling the context while the batch is in flight
// leaves the session in an unknown state and permanently fails it - the
// remote effect of the cancelled batch is indeterminate.
func (s *Session) SaveChanges(ctx context.Context) (*FlushResult, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	diffs, err := s.tracker.snapshotAll(s.codec)
	if err != nil {
		return nil, err
	}

	result := &FlushResult{}
	pending := make([]pendingCommand, 0, len(diffs))

	for i := range diffs {
		diff := &diffs[i]
		if !diff.dirty {
			continue
		}
		cmd, veto, err := s.buildCommand(diff)
		if err != nil {
			return nil, err
		}
		if veto != nil {
			result.Vetoed = append(result.Vetoed, *veto)
			continue
		}
		pending = append(pending, pendingCommand{cmd: *cmd, tracked: diff.tracked, snapshot: diff.body})
	}

	// Idempotence: nothing dirty, nothing deleted - no remote side effects
	if len(pending) == 0 {
		return result, nil
	}

	commands := make([]executor.Command, len(pending))
	for i, p := range pending {
		commands[i] = p.cmd
	}

	results, err := s.submit(ctx, commands)
	if err != nil {
		return result, err
	}
	if len(results) != len(commands) {
		return result, NewError(RetCTransportFailure, "",
			fmt.Sprintf("executor returned %d results for %d commands", len(results), len(commands)))
	}

	// A rejected batch applies nothing: report conflicts, leave the
	// tracker untouched so conflicted entities stay dirty.
	if conflicted := conflictedIDs(results); len(conflicted) > 0 {
		result.Conflicted = conflicted
		return result, NewError(RetCConcurrencyConflict, conflicted[0],
			fmt.Sprintf("batch rejected, conflicting identifiers: %s", strings.Join(conflicted, ", ")))
	}

	s.applyResults(pending, results, result)
	Logger.Debugf("flushed %s", result)
	return result, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// buildCommand turns one dirty diff into a stamped command, running the
// before-* and conversion-out listeners. A veto excludes the entity from
// the batch without failing the flush.
func (s *Session) buildCommand(diff *entityDiff) (*executor.Command, *VetoRecord, error) {
	tracked := diff.tracked

	if tracked.deleted {
		e := &listener.Event{Point: listener.PointBeforeDelete, ID: tracked.id, Metadata: tracked.metadata}
		if err := s.listeners.Invoke(e); err != nil {
			return nil, &VetoRecord{ID: tracked.id, Cause: err}, nil
		}
		cmd := &executor.Command{Kind: executor.CommandDelete, ID: tracked.id}
		s.guard.checkAndStamp(cmd, tracked)
		return cmd, nil, nil
	}

	// New entities without an identifier get one now, from the shared
	// allocator. Allocation failure fails the flush - there is no command
	// to build without an identifier.
	if tracked.id == "" {
		id, err := s.allocateID(tracked)
		if err != nil {
			return nil, nil, err
		}
		if err := s.tracker.assignID(tracked, id); err != nil {
			return nil, nil, err
		}
	}

	e := &listener.Event{
		Point:    listener.PointBeforeStore,
		ID:       tracked.id,
		Body:     diff.body,
		Metadata: tracked.metadata,
		Entity:   tracked.entity,
	}
	if err := s.listeners.Invoke(e); err != nil {
		return nil, &VetoRecord{ID: tracked.id, Cause: err}, nil
	}

	// Conversion-out listeners may rewrite the serialized body last. The
	// amended body goes only into the command, never into the snapshot:
	// the snapshot must stay comparable to future codec.Marshal output.
	out := &listener.Event{Point: listener.PointConvertOut, ID: tracked.id, Body: e.Body, Metadata: e.Metadata}
	if err := s.listeners.Invoke(out); err != nil {
		return nil, nil, WrapError(RetCTransportFailure, tracked.id, err)
	}

	cmd := &executor.Command{
		Kind:     executor.CommandPut,
		ID:       tracked.id,
		Body:     out.Body,
		Metadata: out.Metadata,
	}
	s.guard.checkAndStamp(cmd, tracked)
	return cmd, nil, nil
}

// allocateID draws an identifier for a pending-id entity
func (s *Session) allocateID(tracked *trackedEntity) (string, error) {
	if s.allocator == nil {
		return "", NewError(RetCAllocationFailed, "",
			"no identifier allocator configured; use StoreWithID or set Options.Reserver")
	}
	collection := tracked.metadata[document.MetaCollection]
	id, err := s.allocator.Allocate(collection)
	if err != nil {
		return "", WrapError(RetCAllocationFailed, "", err)
	}
	return id, nil
}

// submit sends the batch, honoring context cancellation. The executor
// contract has no cancellation of its own, so an abandoned submission
// poisons the session: its remote effect is indeterminate.
func (s *Session) submit(ctx context.Context, commands []executor.Command) ([]executor.CommandResult, error) {
	type submitResult struct {
		results []executor.CommandResult
		err     error
	}
	done := make(chan submitResult, 1)
	go func() {
		results, err := s.exec.SubmitBatch(commands)
		done <- submitResult{results, err}
	}()

	select {
	case <-ctx.Done():
		s.poisoned = true
		return nil, WrapError(RetCTransportFailure, "", ctx.Err())
	case r := <-done:
		if r.err != nil {
			// Transport and executor failures propagate unchanged, never
			// reinterpreted as concurrency conflicts
			return nil, WrapError(RetCTransportFailure, "", r.err)
		}
		return r.results, nil
	}
}

// applyResults refreshes tracker state from a successful batch and runs
// the after-store listeners.
func (s *Session) applyResults(pending []pendingCommand, results []executor.CommandResult, result *FlushResult) {
	for i, p := range pending {
		res := results[i]
		result.Applied = append(result.Applied, res.ID)

		if p.cmd.Kind == executor.CommandDelete {
			s.tracker.evict(p.tracked)
			continue
		}

		// Flushed: the entity is clean again under its new token
		p.tracked.version = res.Version
		p.tracked.snapshot = p.snapshot
		p.tracked.metadata = p.cmd.Metadata
		p.tracked.isNew = false
		p.tracked.forced = false

		e := &listener.Event{
			Point:    listener.PointAfterStore,
			ID:       res.ID,
			Body:     p.cmd.Body,
			Metadata: p.cmd.Metadata,
			Entity:   p.tracked.entity,
		}
		if err := s.listeners.Invoke(e); err != nil {
			// After-store listeners observe, they cannot undo the write
			Logger.Warningf("after-store listener for %s failed: %v", res.ID, err)
		}
	}
}

// conflictedIDs extracts the identifiers of conflicting commands
func conflictedIDs(results []executor.CommandResult) []string {
	var ids []string
	for _, r := range results {
		if r.Status == executor.StatusConflict {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
