// Package memexec provides the in-memory implementation of the executor
// contract: a concurrent document map with atomic batch application plus a
// range reservation service for the hi-lo allocator.
//
// Batches are applied in two phases under a write lock: first every
// command's concurrency constraint is checked, then - only if all hold -
// the commands are applied in submission order and fresh version tokens
// (ULIDs) are issued for every put. A single violated constraint rejects
// the whole batch with per-command conflict reporting and no visible
// side effects.
//
// memexec backs the RPC server's shards and is also useful directly in
// tests and embedded deployments, where a session runs against it without
// any transport in between.
package memexec
