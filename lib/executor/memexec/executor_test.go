package memexec

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

func put(id, body string) executor.Command {
	return executor.Command{Kind: executor.CommandPut, ID: id, Body: document.Body(body)}
}

func TestPutAndLoad(t *testing.T) {
	e := New()

	results, err := e.SubmitBatch([]executor.Command{put("orders/1", `{"total":1}`)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, executor.StatusApplied, results[0].Status)
	assert.False(t, results[0].Version.Equal(document.VersionNone))

	doc, found, err := e.Load("orders/1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, document.Body(`{"total":1}`), doc.Body)
	assert.True(t, doc.Version.Equal(results[0].Version))
	assert.NotEmpty(t, doc.Metadata[document.MetaLastModified])
}

func TestLoadMissing(t *testing.T) {
	e := New()

	doc, found, err := e.Load("orders/404")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, doc)
}

func TestHas(t *testing.T) {
	e := New()

	found, err := e.Has("orders/1")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = e.SubmitBatch([]executor.Command{put("orders/1", `{}`)})
	require.NoError(t, err)

	found, err = e.Has("orders/1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDelete(t *testing.T) {
	e := New()

	_, err := e.SubmitBatch([]executor.Command{put("orders/1", `{}`)})
	require.NoError(t, err)

	_, err = e.SubmitBatch([]executor.Command{{Kind: executor.CommandDelete, ID: "orders/1"}})
	require.NoError(t, err)

	found, err := e.Has("orders/1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMustNotExistConstraint(t *testing.T) {
	e := New()

	cmd := put("orders/1", `{}`)
	cmd.Constraint = executor.ConstraintMustNotExist

	results, err := e.SubmitBatch([]executor.Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusApplied, results[0].Status)

	// Second write under the same constraint conflicts
	results, err = e.SubmitBatch([]executor.Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusConflict, results[0].Status)
}

func TestMatchVersionConstraint(t *testing.T) {
	e := New()

	results, err := e.SubmitBatch([]executor.Command{put("orders/1", `{"total":1}`)})
	require.NoError(t, err)
	version := results[0].Version

	// Write with the current token succeeds and rotates the token
	cmd := put("orders/1", `{"total":2}`)
	cmd.Constraint = executor.ConstraintMatchVersion
	cmd.Expected = version
	results, err = e.SubmitBatch([]executor.Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusApplied, results[0].Status)
	assert.False(t, results[0].Version.Equal(version))

	// The stale token now conflicts
	results, err = e.SubmitBatch([]executor.Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusConflict, results[0].Status)

	// The conflicting write left the document untouched
	doc, _, err := e.Load("orders/1")
	require.NoError(t, err)
	assert.Equal(t, document.Body(`{"total":2}`), doc.Body)
}

func TestMatchVersionAgainstMissingDocument(t *testing.T) {
	e := New()

	cmd := put("orders/1", `{}`)
	cmd.Constraint = executor.ConstraintMatchVersion
	cmd.Expected = document.VersionToken("bogus")

	results, err := e.SubmitBatch([]executor.Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusConflict, results[0].Status)
}

func TestBatchAtomicity(t *testing.T) {
	e := New()

	_, err := e.SubmitBatch([]executor.Command{put("orders/1", `{}`)})
	require.NoError(t, err)

	// One conflicting command rejects the whole batch
	conflicting := put("orders/1", `{}`)
	conflicting.Constraint = executor.ConstraintMustNotExist

	results, err := e.SubmitBatch([]executor.Command{
		put("orders/2", `{}`),
		conflicting,
		put("orders/3", `{}`),
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, executor.StatusFailed, results[0].Status)
	assert.Equal(t, executor.StatusConflict, results[1].Status)
	assert.Equal(t, executor.StatusFailed, results[2].Status)

	// Nothing from the rejected batch was applied
	for _, id := range []string{"orders/2", "orders/3"} {
		found, err := e.Has(id)
		require.NoError(t, err)
		assert.False(t, found, "rejected batch applied %s", id)
	}
}

func TestEmptyIdentifierRejected(t *testing.T) {
	e := New()

	_, err := e.SubmitBatch([]executor.Command{put("", `{}`)})
	require.Error(t, err)
	assert.Equal(t, executor.RetCInvalidBatch, executor.CodeOf(err))
}

func TestUnknownCommandKindRejected(t *testing.T) {
	e := New()

	_, err := e.SubmitBatch([]executor.Command{{Kind: executor.CommandKind(99), ID: "orders/1"}})
	require.Error(t, err)
	assert.Equal(t, executor.RetCInvalidBatch, executor.CodeOf(err))
}

func TestLoadReturnsCopy(t *testing.T) {
	e := New()

	_, err := e.SubmitBatch([]executor.Command{put("orders/1", `{"total":1}`)})
	require.NoError(t, err)

	doc, _, err := e.Load("orders/1")
	require.NoError(t, err)

	// Mutating the returned document must not affect the stored one
	doc.Body[0] = 'X'
	doc.Metadata["k"] = "v"

	fresh, _, err := e.Load("orders/1")
	require.NoError(t, err)
	assert.Equal(t, document.Body(`{"total":1}`), fresh.Body)
	assert.Empty(t, fresh.Metadata["k"])
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	e := New()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("orders/%d", i%10)
				_, err := e.SubmitBatch([]executor.Command{put(id, `{"w":1}`)})
				if err != nil {
					t.Errorf("put failed: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("orders/%d", i%10)
				if _, _, err := e.Load(id); err != nil {
					t.Errorf("load failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
