package hilo

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/lib/executor/memexec"
)

// countingReserver wraps a real reserver and counts reservation calls
type countingReserver struct {
	inner executor.IRangeReserver
	calls atomic.Int64
}

func (c *countingReserver) ReserveRange(collection string, capacity uint64) (executor.Range, error) {
	c.calls.Add(1)
	return c.inner.ReserveRange(collection, capacity)
}

// failingReserver always fails
type failingReserver struct{ err error }

func (f *failingReserver) ReserveRange(string, uint64) (executor.Range, error) {
	return executor.Range{}, f.err
}

func TestAllocateSequential(t *testing.T) {
	a := NewAllocator(memexec.NewReserver(), 4)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := a.Allocate("orders")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
	}
}

func TestAllocateEmptyCollectionFails(t *testing.T) {
	a := NewAllocator(memexec.NewReserver(), 0)

	_, err := a.Allocate("")
	require.Error(t, err)

	var allocErr *AllocationError
	assert.True(t, errors.As(err, &allocErr))
}

func TestCollectionsAreIndependent(t *testing.T) {
	reserver := &countingReserver{inner: memexec.NewReserver()}
	a := NewAllocator(reserver, 8)

	orderID, err := a.Allocate("orders")
	require.NoError(t, err)
	userID, err := a.Allocate("users")
	require.NoError(t, err)

	assert.Equal(t, "orders/1", orderID)
	assert.Equal(t, "users/1", userID)
	assert.Equal(t, int64(2), reserver.calls.Load())
}

func TestExactlyOneReservationPerBoundary(t *testing.T) {
	const capacity = 8
	const rounds = 5

	reserver := &countingReserver{inner: memexec.NewReserver()}
	a := NewAllocator(reserver, capacity)

	// Many goroutines race across several range boundaries
	var wg sync.WaitGroup
	ids := make(chan string, capacity*rounds)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < capacity*rounds/10; i++ {
				id, err := a.Allocate("orders")
				if err != nil {
					t.Errorf("allocate failed: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	// All identifiers are unique
	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, capacity*rounds)

	// capacity*rounds allocations consume exactly rounds ranges
	assert.Equal(t, int64(rounds), reserver.calls.Load())
}

func TestReservationFailureIsSurfaced(t *testing.T) {
	cause := fmt.Errorf("reservation service unavailable")
	a := NewAllocator(&failingReserver{err: cause}, 0)

	_, err := a.Allocate("orders")
	require.Error(t, err)

	var allocErr *AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, "orders", allocErr.Collection)
	assert.True(t, errors.Is(err, cause))
}

func TestFailedReservationDoesNotPoisonCollection(t *testing.T) {
	// A reserver that fails once, then delegates to a working one
	inner := memexec.NewReserver()
	failed := false
	flaky := reserverFunc(func(collection string, capacity uint64) (executor.Range, error) {
		if !failed {
			failed = true
			return executor.Range{}, fmt.Errorf("transient failure")
		}
		return inner.ReserveRange(collection, capacity)
	})

	a := NewAllocator(flaky, 4)

	_, err := a.Allocate("orders")
	require.Error(t, err)

	// The next call retries the reservation and succeeds
	id, err := a.Allocate("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders/1", id)
}

type reserverFunc func(collection string, capacity uint64) (executor.Range, error)

func (f reserverFunc) ReserveRange(collection string, capacity uint64) (executor.Range, error) {
	return f(collection, capacity)
}
