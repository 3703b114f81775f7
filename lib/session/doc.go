// Package session implements the unit-of-work layer of vellum: identity
// tracking for loaded entities, mutation detection by snapshot comparison,
// optimistic concurrency stamping and atomic batched writes.
//
// The package focuses on:
//   - Change tracking without per-mutation instrumentation: entities are
//     mutated in place by the application and the session detects the
//     change at flush time by re-serializing and comparing against the
//     snapshot taken at attach time
//   - One atomic batch per flush: SaveChanges emits all puts and deletes in
//     attach order and submits them through an executor.IExecutor, which
//     applies them all-or-nothing
//   - Optimistic concurrency: every command carries the version token
//     recorded when the entity was read; new entities carry must-not-exist;
//     last-writer-wins is available only as an explicit per-entity opt-in
//     (ForceWrite)
//   - Extension points: before/after-store, before-delete, before-query and
//     conversion listeners run at defined places in the lifecycle; a
//     before-* veto excludes only the affected entity from the batch
//
// Error Handling:
//
//	All failures surface as *Error with a typed RetCode
//	(ConcurrencyConflict, DuplicateIdentifier, AllocationFailed,
//	VetoedOperation, TransportFailure, InvalidOperation). Conflicts and
//	vetoes are additionally enumerated per entity in the FlushResult, so a
//	caller always sees exactly which entities were written, rejected or
//	excluded - nothing is swallowed.
//
// Thread Safety:
//
//	A session is single-writer and not safe for concurrent use: one session
//	per logical unit of work, never shared across goroutines. The hi-lo
//	allocator a session draws identifiers from is process-wide shared state
//	and safe for concurrent use; share one allocator across all sessions of
//	a process.
//
// Cancellation:
//
//	Cancelling SaveChanges while the batch is in flight leaves the remote
//	effect indeterminate. The session then refuses all further operations -
//	callers open a fresh session and reload to re-verify state.
package session
