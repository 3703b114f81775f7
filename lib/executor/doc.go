// Package executor defines the contract between the session layer and the
// remote store that applies its write batches.
//
// The package focuses on:
//   - The batched write protocol (Command, CommandResult) with per-command
//     optimistic concurrency constraints
//   - A unified interface (IExecutor) shared by the in-memory executor and
//     the RPC client, allowing sessions to switch between in-process and
//     remote execution without code changes
//   - Identifier range reservation (IRangeReserver) used by the hi-lo
//     allocator
//
// Atomicity Contract:
//
//	SubmitBatch is all-or-nothing. If any command's constraint is violated
//	the whole batch is rejected: nothing is applied, the violating commands
//	report StatusConflict and the rest StatusFailed, so the caller can see
//	exactly which entities conflicted. Transport problems are reported
//	through the error return instead and imply nothing about whether the
//	batch took effect.
//
// Implementations:
//
//   - In-memory executor: "github.com/vellumdb/vellum/lib/executor/memexec".
//     Applies batches against a concurrent in-process document map. Suitable
//     for tests, embedding and as the storage backend of the RPC server.
//
//   - RPC executor: "github.com/vellumdb/vellum/rpc/client". Forwards
//     batches to a vellum server over a pluggable transport.
package executor
