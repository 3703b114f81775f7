package memexec

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vellumdb/vellum/lib/executor"
)

// --------------------------------------------------------------------------
// In-Memory Range Reserver
// --------------------------------------------------------------------------

// collectionCounter tracks the next unreserved identifier for one collection
type collectionCounter struct {
	mu   sync.Mutex
	next uint64
}

// memReserver implements executor.IRangeReserver with per-collection
// counters. Reserved ranges are never reclaimed: a holder that crashes
// leaves a gap, which is acceptable since identifiers need not be dense.
type memReserver struct {
	counters *xsync.MapOf[string, *collectionCounter]
}

// NewReserver creates a new in-memory range reservation service.
func NewReserver() executor.IRangeReserver {
	return &memReserver{
		counters: xsync.NewMapOf[string, *collectionCounter](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see executor/interface.go)
// --------------------------------------------------------------------------

func (r *memReserver) ReserveRange(collection string, capacity uint64) (executor.Range, error) {
	if collection == "" {
		return executor.Range{}, executor.NewError(executor.RetCInvalidBatch, "empty collection tag")
	}
	if capacity == 0 {
		return executor.Range{}, executor.NewError(executor.RetCInvalidBatch, "zero range capacity")
	}

	counter, _ := r.counters.LoadOrCompute(collection, func() *collectionCounter {
		return &collectionCounter{next: 1} // identifiers start at 1
	})

	// The per-collection mutex guarantees non-overlapping ranges even under
	// concurrent reservations for the same collection.
	counter.mu.Lock()
	low := counter.next
	counter.next += capacity
	high := counter.next
	counter.mu.Unlock()

	return executor.Range{
		Collection: collection,
		Low:        low,
		High:       high,
		Lease:      uuid.NewString(),
	}, nil
}
