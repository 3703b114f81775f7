package hilo

import (
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vellumdb/vellum/lib/executor"
)

const (
	// DefaultCapacity is the range size requested from the reservation
	// service when a range is exhausted. Larger values reduce round trips
	// at the cost of more identifiers lost when a client crashes
	// mid-range.
	DefaultCapacity uint64 = 32
)

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// AllocationError reports a failed range reservation. It is surfaced to the
// caller unchanged - the allocator never retries a failed reservation, that
// policy belongs to the transport layer behind the reserver.
type AllocationError struct {
	Collection string
	Cause      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("id allocation for collection %q failed: %v", e.Collection, e.Cause)
}

func (e *AllocationError) Unwrap() error { return e.Cause }

// --------------------------------------------------------------------------
// Allocator
// --------------------------------------------------------------------------

// idRange is one reserved identifier range, exclusively owned by this
// allocator. next counts up to high (exclusive).
type idRange struct {
	mu   sync.Mutex
	low  uint64
	high uint64
	next uint64
}

// exhausted reports whether the range has no identifiers left.
// A zero idRange is exhausted, which forces a reservation on first use.
func (r *idRange) exhausted() bool {
	return r.next >= r.high
}

// Allocator issues unique string identifiers per collection using hi-lo
// range reservation. The common case is a local increment with no I/O; only
// when the local range is exhausted does the allocator perform one blocking
// reservation call.
//
// Thread-safety: Allocate may be called concurrently from any number of
// sessions. Range replacement is serialized per collection, so at a range
// boundary exactly one reservation call is made no matter how many callers
// race into it.
type Allocator struct {
	reserver executor.IRangeReserver
	capacity uint64
	ranges   *xsync.MapOf[string, *idRange]
}

// NewAllocator creates an allocator backed by the given reservation
// service. A capacity of 0 selects DefaultCapacity.
func NewAllocator(reserver executor.IRangeReserver, capacity uint64) *Allocator {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Allocator{
		reserver: reserver,
		capacity: capacity,
		ranges:   xsync.NewMapOf[string, *idRange](),
	}
}

// Allocate returns the next unique identifier for the collection, formatted
// as "collection/value". On range exhaustion it reserves a new range, which
// blocks callers for the same collection until the reservation completes.
// Reservation failure is returned as *AllocationError.
func (a *Allocator) Allocate(collection string) (string, error) {
	if collection == "" {
		return "", &AllocationError{Collection: collection, Cause: fmt.Errorf("empty collection tag")}
	}

	r, _ := a.ranges.LoadOrCompute(collection, func() *idRange {
		return &idRange{} // zero range, exhausted: first Allocate reserves
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exhausted() {
		// Exactly one caller reaches this point per boundary: the mutex is
		// held across the reservation, so racing callers wait and then see
		// the fresh range.
		reserved, err := a.reserver.ReserveRange(collection, a.capacity)
		if err != nil {
			return "", &AllocationError{Collection: collection, Cause: err}
		}
		if reserved.High <= reserved.Low {
			return "", &AllocationError{
				Collection: collection,
				Cause:      fmt.Errorf("reservation returned empty range [%d, %d)", reserved.Low, reserved.High),
			}
		}
		// Identifiers remaining in the old range are abandoned here. They
		// become permanent gaps, never reissued.
		r.low, r.high, r.next = reserved.Low, reserved.High, reserved.Low
	}

	id := fmt.Sprintf("%s/%d", collection, r.next)
	r.next++
	return id, nil
}
