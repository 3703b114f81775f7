package memexec

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

// --------------------------------------------------------------------------
// In-Memory Executor
// --------------------------------------------------------------------------

// storedDoc is the stored form of one document
type storedDoc struct {
	body     document.Body
	metadata document.Metadata
	version  document.VersionToken
}

// memExecutor implements executor.IExecutor against an in-process map.
//
// Thread-safety: batches take the write lock, loads the read lock, so a
// reader never observes a partially applied batch.
type memExecutor struct {
	mu   sync.RWMutex
	docs map[string]storedDoc
}

// New creates a new in-memory executor. Use NewReserver (see reserver.go)
// for the matching in-memory range reserver.
func New() executor.IExecutor {
	return &memExecutor{
		docs: make(map[string]storedDoc),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see executor/interface.go)
// --------------------------------------------------------------------------

func (m *memExecutor) SubmitBatch(commands []executor.Command) ([]executor.CommandResult, error) {
	if err := validateBatch(commands); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Phase 1: check every constraint before touching anything. A single
	// violation rejects the whole batch.
	results := make([]executor.CommandResult, len(commands))
	rejected := false
	for i, cmd := range commands {
		results[i] = executor.CommandResult{ID: cmd.ID, Status: executor.StatusApplied}
		if !m.constraintHolds(cmd) {
			results[i].Status = executor.StatusConflict
			rejected = true
		}
	}
	if rejected {
		// Commands whose own constraint held are reported as failed, not
		// conflicted, so the caller can tell the two apart.
		for i := range results {
			if results[i].Status == executor.StatusApplied {
				results[i].Status = executor.StatusFailed
			}
		}
		return results, nil
	}

	// Phase 2: apply. Every put gets a fresh version token.
	for i, cmd := range commands {
		switch cmd.Kind {
		case executor.CommandPut:
			version := newVersionToken()
			meta := cmd.Metadata.Clone()
			if meta == nil {
				meta = document.Metadata{}
			}
			meta[document.MetaLastModified] = time.Now().UTC().Format(time.RFC3339)
			m.docs[cmd.ID] = storedDoc{
				body:     cmd.Body.Clone(),
				metadata: meta,
				version:  version,
			}
			results[i].Version = version
		case executor.CommandDelete:
			delete(m.docs, cmd.ID)
		}
	}
	return results, nil
}

func (m *memExecutor) Load(id string) (*document.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.docs[id]
	if !ok {
		return nil, false, nil
	}
	return &document.Document{
		ID:       id,
		Body:     stored.body.Clone(),
		Metadata: stored.metadata.Clone(),
		Version:  stored.version,
	}, true, nil
}

func (m *memExecutor) Has(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.docs[id]
	return ok, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// constraintHolds checks one command's constraint against the stored state.
// Caller must hold the lock.
func (m *memExecutor) constraintHolds(cmd executor.Command) bool {
	stored, exists := m.docs[cmd.ID]
	switch cmd.Constraint {
	case executor.ConstraintNone:
		return true
	case executor.ConstraintMustNotExist:
		return !exists
	case executor.ConstraintMatchVersion:
		return exists && stored.version.Equal(cmd.Expected)
	default:
		return false
	}
}

// validateBatch rejects structurally invalid batches before any locking
func validateBatch(commands []executor.Command) error {
	for i, cmd := range commands {
		if cmd.ID == "" {
			return executor.NewError(executor.RetCInvalidBatch,
				fmt.Sprintf("command %d has no identifier", i))
		}
		switch cmd.Kind {
		case executor.CommandPut, executor.CommandDelete:
		default:
			return executor.NewError(executor.RetCInvalidBatch,
				fmt.Sprintf("command %d has unknown kind %d", i, cmd.Kind))
		}
	}
	return nil
}

// newVersionToken returns a fresh opaque version token. ULIDs are unique
// and cheap; their ordering is incidental and never relied upon.
func newVersionToken() document.VersionToken {
	return document.VersionToken(ulid.Make().String())
}
