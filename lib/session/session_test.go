package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/lib/executor/memexec"
	"github.com/vellumdb/vellum/lib/listener"
)

type order struct {
	Customer string `json:"customer"`
	Total    int    `json:"total"`
}

func newTestSession(t *testing.T, exec executor.IExecutor, opts ...func(*Options)) *Session {
	t.Helper()
	o := Options{Executor: exec, Reserver: memexec.NewReserver()}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := New(o)
	require.NoError(t, err)
	return s
}

func TestSessionRequiresExecutor(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, CodeOf(err))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	o := &order{Customer: "ada", Total: 42}
	require.NoError(t, s.StoreWithID(o, "orders/1"))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Applied)

	version, ok := s.VersionOf("orders/1")
	require.True(t, ok)
	assert.False(t, version.Equal(document.VersionNone))

	// A second session observes the flushed document
	s2 := newTestSession(t, exec)
	var loaded order
	found, err := s2.Load("orders/1", &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *o, loaded)
}

func TestLoadMissingDocument(t *testing.T) {
	s := newTestSession(t, memexec.New())

	var target order
	found, err := s.Load("orders/404", &target)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.Contains("orders/404"))
}

func TestLoadAlreadyTrackedFails(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	var target order
	_, err = s.Load("orders/1", &target)
	require.Error(t, err)
	assert.Equal(t, RetCDuplicateIdentifier, CodeOf(err))
}

func TestDirtyCheckingSkipsCleanEntities(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	require.NoError(t, s.StoreWithID(&order{Customer: "ada", Total: 1}, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	versionBefore, _ := s.VersionOf("orders/1")

	// Nothing changed: the flush is a no-op and the version stays stable
	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty())

	versionAfter, _ := s.VersionOf("orders/1")
	assert.True(t, versionBefore.Equal(versionAfter))

	dirty, err := s.HasChanges()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestMutationIsDetectedWithoutExplicitMarking(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	o := &order{Customer: "ada", Total: 1}
	require.NoError(t, s.StoreWithID(o, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	versionBefore, _ := s.VersionOf("orders/1")

	// Plain field assignment, no API call
	o.Total = 2

	dirty, err := s.HasChanges()
	require.NoError(t, err)
	assert.True(t, dirty)

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Applied)

	versionAfter, _ := s.VersionOf("orders/1")
	assert.False(t, versionBefore.Equal(versionAfter))
}

func TestDuplicateIdentifierFailsFast(t *testing.T) {
	s := newTestSession(t, memexec.New())
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))

	err := s.StoreWithID(&order{Customer: "bob"}, "orders/1")
	require.Error(t, err)
	assert.Equal(t, RetCDuplicateIdentifier, CodeOf(err))
}

func TestStoreAllocatesIdentifierAtFlush(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	o := &order{Customer: "ada"}
	require.NoError(t, s.Store(o))

	// No identifier before the first flush
	_, ok := s.IDOf(o)
	assert.False(t, ok)

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)

	id, ok := s.IDOf(o)
	require.True(t, ok)
	assert.Equal(t, result.Applied[0], id)
	assert.Equal(t, "orders", document.CollectionOf(id))
}

func TestStoreWithoutAllocatorFails(t *testing.T) {
	s, err := New(Options{Executor: memexec.New()})
	require.NoError(t, err)

	require.NoError(t, s.Store(&order{Customer: "ada"}))
	_, err = s.SaveChanges(context.Background())
	require.Error(t, err)
	assert.Equal(t, RetCAllocationFailed, CodeOf(err))
}

func TestStoreNonComparableValueFails(t *testing.T) {
	type tagged struct {
		Tags []string `json:"tags"`
	}

	s := newTestSession(t, memexec.New())

	// A struct value with a slice field cannot key the identity map
	err := s.StoreWithID(tagged{Tags: []string{"x"}}, "tags/1")
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, CodeOf(err))
	assert.False(t, s.Contains("tags/1"))

	// The pointer form of the same entity is fine
	require.NoError(t, s.StoreWithID(&tagged{Tags: []string{"x"}}, "tags/1"))
}

func TestDeleteFlushesAndEvicts(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Delete("orders/1"))
	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Applied)
	assert.False(t, s.Contains("orders/1"))

	found, err := exec.Has("orders/1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteUntrackedIsUnconstrained(t *testing.T) {
	exec := memexec.New()

	// A document created outside the session
	_, err := exec.SubmitBatch([]executor.Command{{
		Kind: executor.CommandPut, ID: "orders/9", Body: document.Body(`{}`),
	}})
	require.NoError(t, err)

	s := newTestSession(t, exec)
	require.NoError(t, s.Delete("orders/9"))
	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/9"}, result.Applied)
}

func TestConcurrentModificationConflict(t *testing.T) {
	exec := memexec.New()

	seed := newTestSession(t, exec)
	require.NoError(t, seed.StoreWithID(&order{Customer: "ada", Total: 1}, "orders/1"))
	_, err := seed.SaveChanges(context.Background())
	require.NoError(t, err)

	// Two sessions load the same document
	s1 := newTestSession(t, exec)
	var o1 order
	_, err = s1.Load("orders/1", &o1)
	require.NoError(t, err)

	s2 := newTestSession(t, exec)
	var o2 order
	_, err = s2.Load("orders/1", &o2)
	require.NoError(t, err)

	// First writer wins
	o1.Total = 2
	_, err = s1.SaveChanges(context.Background())
	require.NoError(t, err)

	// Second writer conflicts
	o2.Total = 3
	result, err := s2.SaveChanges(context.Background())
	require.Error(t, err)
	assert.Equal(t, RetCConcurrencyConflict, CodeOf(err))
	assert.Equal(t, []string{"orders/1"}, result.Conflicted)

	// The conflicted entity stays dirty until resolved
	dirty, err := s2.HasChanges()
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestMustNotExistConflict(t *testing.T) {
	exec := memexec.New()

	s1 := newTestSession(t, exec)
	require.NoError(t, s1.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	_, err := s1.SaveChanges(context.Background())
	require.NoError(t, err)

	// A second session stores a new entity under the taken identifier
	s2 := newTestSession(t, exec)
	require.NoError(t, s2.StoreWithID(&order{Customer: "bob"}, "orders/1"))
	result, err := s2.SaveChanges(context.Background())
	require.Error(t, err)
	assert.Equal(t, RetCConcurrencyConflict, CodeOf(err))
	assert.Equal(t, []string{"orders/1"}, result.Conflicted)
}

func TestBatchIsAtomicOnConflict(t *testing.T) {
	exec := memexec.New()

	seed := newTestSession(t, exec)
	require.NoError(t, seed.StoreWithID(&order{Customer: "ada", Total: 1}, "orders/1"))
	_, err := seed.SaveChanges(context.Background())
	require.NoError(t, err)

	s := newTestSession(t, exec)
	var o1 order
	_, err = s.Load("orders/1", &o1)
	require.NoError(t, err)

	// Concurrent writer bumps orders/1 behind this session's back
	other := newTestSession(t, exec)
	var o order
	_, err = other.Load("orders/1", &o)
	require.NoError(t, err)
	o.Total = 99
	_, err = other.SaveChanges(context.Background())
	require.NoError(t, err)

	// The session flushes a stale edit plus an innocent new document
	o1.Total = 2
	require.NoError(t, s.StoreWithID(&order{Customer: "bob"}, "orders/2"))
	result, err := s.SaveChanges(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Conflicted)

	// The innocent sibling must not have been applied
	found, err := exec.Has("orders/2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestForceWriteOverwritesConcurrentEdit(t *testing.T) {
	exec := memexec.New()

	seed := newTestSession(t, exec)
	require.NoError(t, seed.StoreWithID(&order{Customer: "ada", Total: 1}, "orders/1"))
	_, err := seed.SaveChanges(context.Background())
	require.NoError(t, err)

	s := newTestSession(t, exec)
	var mine order
	_, err = s.Load("orders/1", &mine)
	require.NoError(t, err)

	// Concurrent writer wins the race
	other := newTestSession(t, exec)
	var theirs order
	_, err = other.Load("orders/1", &theirs)
	require.NoError(t, err)
	theirs.Total = 50
	_, err = other.SaveChanges(context.Background())
	require.NoError(t, err)

	// Without ForceWrite this flush would conflict
	mine.Total = 2
	require.NoError(t, s.ForceWrite("orders/1"))
	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Applied)

	doc, found, err := exec.Load("orders/1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(doc.Body), `"total":2`)
}

func TestEvictDiscardsPendingChanges(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	o := &order{Customer: "ada", Total: 1}
	require.NoError(t, s.StoreWithID(o, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	o.Total = 2
	s.Evict("orders/1")
	assert.False(t, s.Contains("orders/1"))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestDeleteNeverStoredEntityFails(t *testing.T) {
	s := newTestSession(t, memexec.New())
	o := &order{Customer: "ada"}
	require.NoError(t, s.StoreWithID(o, "orders/1"))

	err := s.DeleteEntity(o)
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, CodeOf(err))
}

// --------------------------------------------------------------------------
// Listener semantics
// --------------------------------------------------------------------------

func TestBeforeStoreVetoExcludesEntityOnly(t *testing.T) {
	exec := memexec.New()

	vetoErr := errors.New("quota exceeded")
	pipeline := listener.NewPipeline()
	pipeline.Register(listener.PointBeforeStore, func(e *listener.Event) error {
		if e.ID == "orders/1" {
			return vetoErr
		}
		return nil
	})

	s := newTestSession(t, exec, func(o *Options) { o.Listeners = pipeline })
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	require.NoError(t, s.StoreWithID(&order{Customer: "bob"}, "orders/2"))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	// The vetoed entity is excluded, its sibling proceeds
	assert.Equal(t, []string{"orders/2"}, result.Applied)
	require.Len(t, result.Vetoed, 1)
	assert.Equal(t, "orders/1", result.Vetoed[0].ID)
	assert.True(t, errors.Is(result.Vetoed[0].Cause, vetoErr))

	found, err := exec.Has("orders/1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBeforeQueryVetoBlocksLoad(t *testing.T) {
	exec := memexec.New()

	seed := newTestSession(t, exec)
	require.NoError(t, seed.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	_, err := seed.SaveChanges(context.Background())
	require.NoError(t, err)

	pipeline := listener.NewPipeline()
	pipeline.Register(listener.PointBeforeQuery, func(e *listener.Event) error {
		return errors.New("access denied")
	})

	s := newTestSession(t, exec, func(o *Options) { o.Listeners = pipeline })
	var target order
	_, err = s.Load("orders/1", &target)
	require.Error(t, err)
	assert.Equal(t, RetCVetoedOperation, CodeOf(err))
	assert.False(t, s.Contains("orders/1"))
}

func TestAfterStoreListenerObservesFlush(t *testing.T) {
	exec := memexec.New()

	var seen []string
	pipeline := listener.NewPipeline()
	pipeline.Register(listener.PointAfterStore, func(e *listener.Event) error {
		seen = append(seen, e.ID)
		return nil
	})

	s := newTestSession(t, exec, func(o *Options) { o.Listeners = pipeline })
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"orders/1"}, seen)
}

func TestConvertOutAmendmentDoesNotDirtyEntity(t *testing.T) {
	exec := memexec.New()

	// The convert-out hook rewrites the wire body. The stored snapshot must
	// still match the raw marshal output, otherwise an unmutated entity
	// reads as dirty on every subsequent flush.
	pipeline := listener.NewPipeline()
	pipeline.Register(listener.PointConvertOut, func(e *listener.Event) error {
		e.Body = document.Body(`{"envelope":` + string(e.Body) + `}`)
		return nil
	})

	s := newTestSession(t, exec, func(o *Options) { o.Listeners = pipeline })
	require.NoError(t, s.StoreWithID(&order{Customer: "ada", Total: 7}, "orders/1"))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/1"}, result.Applied)

	// The amendment reached the store
	doc, found, err := exec.Load("orders/1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(doc.Body), `"envelope"`)

	// The session is clean afterwards
	changed, err := s.HasChanges()
	require.NoError(t, err)
	assert.False(t, changed)

	second, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Empty())
}

// --------------------------------------------------------------------------
// Cancellation
// --------------------------------------------------------------------------

// blockingExecutor delegates to a real executor but blocks submissions
// until released, so a flush can be cancelled mid-flight
type blockingExecutor struct {
	executor.IExecutor
	release chan struct{}
}

func (b *blockingExecutor) SubmitBatch(commands []executor.Command) ([]executor.CommandResult, error) {
	<-b.release
	return b.IExecutor.SubmitBatch(commands)
}

func TestCancelledFlushPoisonsSession(t *testing.T) {
	blocking := &blockingExecutor{IExecutor: memexec.New(), release: make(chan struct{})}
	defer close(blocking.release)

	s := newTestSession(t, blocking)
	require.NoError(t, s.StoreWithID(&order{Customer: "ada"}, "orders/1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.SaveChanges(ctx)
	require.Error(t, err)
	assert.Equal(t, RetCTransportFailure, CodeOf(err))

	// Every subsequent operation fails: the session state is unknown
	_, err = s.SaveChanges(context.Background())
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, CodeOf(err))

	err = s.StoreWithID(&order{Customer: "bob"}, "orders/2")
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, CodeOf(err))
}

// --------------------------------------------------------------------------
// Collection derivation
// --------------------------------------------------------------------------

func TestDefaultCollectionFromTypeName(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec)
	require.NoError(t, s.Store(&order{Customer: "ada"}))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "orders", document.CollectionOf(result.Applied[0]))
}

func TestCustomCollectionOf(t *testing.T) {
	exec := memexec.New()

	s := newTestSession(t, exec, func(o *Options) {
		o.CollectionOf = func(any) string { return "archive" }
	})
	require.NoError(t, s.Store(&order{Customer: "ada"}))

	result, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "archive", document.CollectionOf(result.Applied[0]))
}
