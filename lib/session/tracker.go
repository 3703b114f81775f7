package session

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/vellumdb/vellum/lib/codec"
	"github.com/vellumdb/vellum/lib/document"
)

// --------------------------------------------------------------------------
// Tracked Entities
// --------------------------------------------------------------------------

// trackedEntity is the session-scoped record for one attached entity.
//
// Lifecycle: Clean -> Dirty (detected at snapshot time) -> Clean again with
// a new version token after a successful flush, or unchanged after a
// rejected one. New entities go PendingId -> Dirty -> Clean. Deletions go
// MarkedForDeletion -> removed from the tracker on success.
type trackedEntity struct {
	id       string // "" until a pending-id entity is allocated one
	entity   any
	snapshot document.Body // serialized body at attach / last flush
	metadata document.Metadata
	version  document.VersionToken
	seq      uint64 // attach order, determines command order
	isNew    bool   // never written - flush stamps must-not-exist
	deleted  bool   // flush emits a delete command
	forced   bool   // flush stamps no constraint (last writer wins)
}

// entityDiff is the per-entity outcome of a snapshot pass
type entityDiff struct {
	tracked *trackedEntity
	body    document.Body // re-serialized current body, nil for deletions
	dirty   bool
}

// --------------------------------------------------------------------------
// Change Tracker
// --------------------------------------------------------------------------

// changeTracker is the per-session registry of attached entities. It is not
// safe for concurrent use: a session is single-writer by contract, so the
// tracker inherits that constraint instead of locking.
type changeTracker struct {
	byID     map[string]*trackedEntity
	byEntity map[any]*trackedEntity
	order    []*trackedEntity // attach order, including pending-id entities
	nextSeq  uint64
}

func newChangeTracker() *changeTracker {
	return &changeTracker{
		byID:     make(map[string]*trackedEntity),
		byEntity: make(map[any]*trackedEntity),
	}
}

// attach registers an entity under an identifier and takes a deep snapshot
// of its current body. Attaching a second entity under the same identifier
// is a programmer error and fails fast with DuplicateIdentifier; re-attaching
// the same entity is a no-op returning the existing record.
func (t *changeTracker) attach(entity any, id string, body document.Body, meta document.Metadata, version document.VersionToken, isNew bool) (*trackedEntity, error) {
	// Entities are map keys, so non-comparable values (structs carrying
	// slices or maps) would panic on lookup. Pointers are always comparable.
	if entity != nil && !reflect.TypeOf(entity).Comparable() {
		return nil, NewError(RetCInvalidOperation, id,
			fmt.Sprintf("entity type %T is not comparable, store a pointer instead", entity))
	}
	if existing, ok := t.byEntity[entity]; ok && entity != nil {
		if existing.id == id {
			return existing, nil
		}
		return nil, NewError(RetCDuplicateIdentifier, id,
			fmt.Sprintf("entity already attached as %q", existing.id))
	}
	if id != "" {
		if _, ok := t.byID[id]; ok {
			return nil, NewError(RetCDuplicateIdentifier, id, "identifier already attached in this session")
		}
	}

	tracked := &trackedEntity{
		id:       id,
		entity:   entity,
		snapshot: body.Clone(),
		metadata: meta.Clone(),
		version:  version,
		seq:      t.nextSeq,
		isNew:    isNew,
	}
	t.nextSeq++
	t.order = append(t.order, tracked)
	if id != "" {
		t.byID[id] = tracked
	}
	if entity != nil {
		t.byEntity[entity] = tracked
	}
	return tracked, nil
}

// assignID gives a pending-id entity its allocated identifier. Fails with
// DuplicateIdentifier if the identifier is already taken in this session.
func (t *changeTracker) assignID(tracked *trackedEntity, id string) error {
	if tracked.id != "" {
		return NewError(RetCInvalidOperation, tracked.id, "identifier already assigned")
	}
	if _, ok := t.byID[id]; ok {
		return NewError(RetCDuplicateIdentifier, id, "allocated identifier already attached in this session")
	}
	tracked.id = id
	t.byID[id] = tracked
	return nil
}

// markForDeletion flags a tracked identifier for deletion at the next
// flush. Unknown identifiers get a bare deletion record with no version
// constraint, so documents can be deleted without loading them first.
func (t *changeTracker) markForDeletion(id string) (*trackedEntity, error) {
	if tracked, ok := t.byID[id]; ok {
		if tracked.isNew {
			return nil, NewError(RetCInvalidOperation, id, "cannot delete an entity that was never stored")
		}
		tracked.deleted = true
		return tracked, nil
	}
	return t.attachDeletion(id)
}

// attachDeletion creates a deletion-only record for an unloaded identifier
func (t *changeTracker) attachDeletion(id string) (*trackedEntity, error) {
	tracked, err := t.attach(nil, id, nil, nil, document.VersionNone, false)
	if err != nil {
		return nil, err
	}
	tracked.deleted = true
	return tracked, nil
}

// get returns the record for an identifier.
func (t *changeTracker) get(id string) (*trackedEntity, bool) {
	tracked, ok := t.byID[id]
	return tracked, ok
}

// getByEntity returns the record an entity is attached under.
func (t *changeTracker) getByEntity(entity any) (*trackedEntity, bool) {
	// Non-comparable values are rejected at attach, so they are never keys.
	if entity != nil && !reflect.TypeOf(entity).Comparable() {
		return nil, false
	}
	tracked, ok := t.byEntity[entity]
	return tracked, ok
}

// evict removes a record from the tracker without any remote effect.
func (t *changeTracker) evict(tracked *trackedEntity) {
	if tracked.id != "" {
		delete(t.byID, tracked.id)
	}
	if tracked.entity != nil {
		delete(t.byEntity, tracked.entity)
	}
	for i, e := range t.order {
		if e == tracked {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// snapshotAll re-serializes every tracked entity and compares against the
// stored snapshot to derive dirtiness. Deleted entities skip the comparison
// but are retained so the flush can emit their delete commands. The result
// preserves attach order.
func (t *changeTracker) snapshotAll(c codec.ICodec) ([]entityDiff, error) {
	diffs := make([]entityDiff, 0, len(t.order))
	for _, tracked := range t.order {
		if tracked.deleted {
			diffs = append(diffs, entityDiff{tracked: tracked, dirty: true})
			continue
		}
		body, err := c.Marshal(tracked.entity)
		if err != nil {
			return nil, WrapError(RetCTransportFailure, tracked.id, err)
		}
		dirty := tracked.isNew || tracked.forced || !bytes.Equal(body, tracked.snapshot)
		diffs = append(diffs, entityDiff{tracked: tracked, body: body, dirty: dirty})
	}
	return diffs, nil
}
