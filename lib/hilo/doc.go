// Package hilo implements distributed identifier allocation by range
// reservation ("hi-lo"): instead of one round trip per identifier, the
// allocator reserves a contiguous range per collection from a reservation
// service and hands out identifiers locally until the range is exhausted.
//
// The reservation service guarantees that ranges for the same collection
// never overlap across holders, so no consensus is needed on the client:
// each range is exclusively owned by one allocator. A process that crashes
// with identifiers left in its range simply leaves a gap - identifiers are
// unique, not dense.
//
// Failure semantics: a failed reservation is returned to the caller as
// *AllocationError, never retried internally. Only range exhaustion itself
// is handled inside Allocate, since exhaustion is expected and transient
// while reservation failure is not.
package hilo
