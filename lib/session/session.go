package session

import (
	"fmt"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vellumdb/vellum/lib/codec"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/lib/hilo"
	"github.com/vellumdb/vellum/lib/listener"
)

var Logger = logger.GetLogger("session")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a session.
type Options struct {
	// Executor applies the session's batches. Required.
	Executor executor.IExecutor

	// Reserver backs identifier allocation for new entities stored without
	// an explicit identifier. Optional if Allocator is set or every entity
	// is stored via StoreWithID.
	Reserver executor.IRangeReserver

	// Allocator overrides Reserver with a shared allocator instance. Since
	// reserved ranges are process-wide state, sessions of one process
	// should share one allocator rather than each creating their own.
	Allocator *hilo.Allocator

	// RangeCapacity sizes reserved identifier ranges when the session
	// builds its own allocator from Reserver. 0 selects the default.
	RangeCapacity uint64

	// Codec serializes entities. Defaults to the JSON codec without
	// converters.
	Codec codec.ICodec

	// Listeners is the extension-point pipeline. Optional.
	Listeners *listener.Pipeline

	// CollectionOf derives the collection tag for a new entity. Defaults
	// to the lowercased logical type name with an "s" suffix
	// (Order -> "orders").
	CollectionOf func(entity any) string
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session is a unit of work: it tracks loaded entities, detects mutations
// by snapshot comparison and writes all changes as one atomic batch on
// SaveChanges.
//
// Thread-safety: a session is single-writer. Use one session per logical
// unit of work and do not share it across goroutines; the identifier
// allocator behind it, by contrast, is process-wide and safely shared.
type Session struct {
	exec         executor.IExecutor
	allocator    *hilo.Allocator
	codec        codec.ICodec
	listeners    *listener.Pipeline
	collectionOf func(entity any) string

	tracker  *changeTracker
	guard    concurrencyGuard
	poisoned bool // set when a flush was cancelled in flight
}

// New creates a session from the given options.
func New(opts Options) (*Session, error) {
	if opts.Executor == nil {
		return nil, NewError(RetCInvalidOperation, "", "options: Executor is required")
	}

	allocator := opts.Allocator
	if allocator == nil && opts.Reserver != nil {
		allocator = hilo.NewAllocator(opts.Reserver, opts.RangeCapacity)
	}

	c := opts.Codec
	if c == nil {
		c = codec.NewJSONCodec(nil)
	}

	collectionOf := opts.CollectionOf
	if collectionOf == nil {
		collectionOf = defaultCollectionOf
	}

	return &Session{
		exec:         opts.Executor,
		allocator:    allocator,
		codec:        c,
		listeners:    opts.Listeners,
		collectionOf: collectionOf,
		tracker:      newChangeTracker(),
	}, nil
}

// --------------------------------------------------------------------------
// Load Path
// --------------------------------------------------------------------------

// Load fetches the document stored under the identifier, deserializes it
// into target and attaches the entity to the session. The boolean return
// value indicates whether the document was found.
//
// Loading an identifier that is already tracked in this session fails with
// DuplicateIdentifier: an identifier maps to at most one entity per session.
func (s *Session) Load(id string, target any) (bool, error) {
	if err := s.usable(); err != nil {
		return false, err
	}
	if _, ok := s.tracker.get(id); ok {
		return false, NewError(RetCDuplicateIdentifier, id, "identifier already tracked in this session")
	}

	// A before-query listener may veto the load
	if err := s.listeners.Invoke(&listener.Event{Point: listener.PointBeforeQuery, ID: id}); err != nil {
		return false, WrapError(RetCVetoedOperation, id, err)
	}

	doc, found, err := s.exec.Load(id)
	if err != nil {
		return false, WrapError(RetCTransportFailure, id, err)
	}
	if !found {
		return false, nil
	}

	if doc.Metadata[document.MetaConflict] != "" {
		// Replicated stores may surface an unresolved conflict; give the
		// registered resolvers a chance to amend the body before use.
		e := &listener.Event{Point: listener.PointReplicationConflict, ID: id, Body: doc.Body, Metadata: doc.Metadata}
		if err := s.listeners.Invoke(e); err != nil {
			return false, WrapError(RetCTransportFailure, id, err)
		}
		doc.Body = e.Body
	}

	// Conversion-in listeners may amend the raw body before deserialization
	e := &listener.Event{Point: listener.PointConvertIn, ID: id, Body: doc.Body, Metadata: doc.Metadata}
	if err := s.listeners.Invoke(e); err != nil {
		return false, WrapError(RetCTransportFailure, id, err)
	}

	if err := s.codec.Unmarshal(e.Body, target); err != nil {
		return false, WrapError(RetCTransportFailure, id, err)
	}

	// The snapshot is the body as loaded (post conversion), so an untouched
	// entity is clean at the next flush.
	if _, err := s.tracker.attach(target, id, e.Body, doc.Metadata, doc.Version, false); err != nil {
		return false, err
	}
	Logger.Debugf("loaded %s (version %s)", id, doc.Version)
	return true, nil
}

// --------------------------------------------------------------------------
// Store / Delete Path
// --------------------------------------------------------------------------

// Store attaches a new entity. Its identifier is allocated at flush time
// from the session's hi-lo allocator; the entity is written with a
// must-not-exist constraint.
func (s *Session) Store(entity any) error {
	return s.store(entity, "")
}

// StoreWithID attaches a new entity under an explicit identifier. The
// entity is written with a must-not-exist constraint, so flushing fails
// with a conflict if a concurrent writer created the same identifier.
func (s *Session) StoreWithID(entity any, id string) error {
	if id == "" {
		return NewError(RetCInvalidOperation, "", "StoreWithID: empty identifier")
	}
	return s.store(entity, id)
}

func (s *Session) store(entity any, id string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if entity == nil {
		return NewError(RetCInvalidOperation, id, "cannot store nil entity")
	}

	collection := s.collectionOf(entity)
	if id != "" {
		if c := document.CollectionOf(id); c != "" {
			collection = c
		}
	}
	meta := document.Metadata{document.MetaCollection: collection}

	_, err := s.tracker.attach(entity, id, nil, meta, document.VersionNone, true)
	return err
}

// Delete marks the identifier for deletion at the next flush. The document
// need not be loaded: deleting an untracked identifier emits an
// unconstrained delete command, while a loaded one carries its attach-time
// version token.
func (s *Session) Delete(id string) error {
	if err := s.usable(); err != nil {
		return err
	}
	_, err := s.tracker.markForDeletion(id)
	return err
}

// DeleteEntity marks a tracked entity for deletion at the next flush.
func (s *Session) DeleteEntity(entity any) error {
	if err := s.usable(); err != nil {
		return err
	}
	tracked, ok := s.tracker.getByEntity(entity)
	if !ok {
		return NewError(RetCInvalidOperation, "", "entity is not tracked by this session")
	}
	if tracked.isNew {
		return NewError(RetCInvalidOperation, tracked.id, "cannot delete an entity that was never stored")
	}
	tracked.deleted = true
	return nil
}

// ForceWrite switches the identifier to last-writer-wins for the next
// flush: its commands carry no version constraint and overwrite concurrent
// edits silently. Never the default - callers opt in per entity.
func (s *Session) ForceWrite(id string) error {
	if err := s.usable(); err != nil {
		return err
	}
	tracked, ok := s.tracker.get(id)
	if !ok {
		return NewError(RetCInvalidOperation, id, "identifier is not tracked by this session")
	}
	tracked.forced = true
	return nil
}

// Evict detaches the identifier from the session without any remote
// effect. Pending changes to the entity are discarded.
func (s *Session) Evict(id string) {
	if tracked, ok := s.tracker.get(id); ok {
		s.tracker.evict(tracked)
	}
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Contains reports whether the identifier is tracked by this session.
func (s *Session) Contains(id string) bool {
	_, ok := s.tracker.get(id)
	return ok
}

// IDOf returns the identifier a tracked entity is attached under. Entities
// stored without an explicit identifier have none until the first flush.
func (s *Session) IDOf(entity any) (string, bool) {
	tracked, ok := s.tracker.getByEntity(entity)
	if !ok {
		return "", false
	}
	return tracked.id, tracked.id != ""
}

// VersionOf returns the last-known version token of a tracked identifier.
func (s *Session) VersionOf(id string) (document.VersionToken, bool) {
	tracked, ok := s.tracker.get(id)
	if !ok {
		return document.VersionNone, false
	}
	return tracked.version, true
}

// HasChanges reports whether a flush would submit at least one command.
func (s *Session) HasChanges() (bool, error) {
	if err := s.usable(); err != nil {
		return false, err
	}
	diffs, err := s.tracker.snapshotAll(s.codec)
	if err != nil {
		return false, err
	}
	for _, d := range diffs {
		if d.dirty {
			return true, nil
		}
	}
	return false, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// usable rejects all operations on a session whose in-flight flush was
// cancelled: the remote effect of that batch is indeterminate, so tracked
// state can no longer be trusted. Callers open a fresh session and reload.
func (s *Session) usable() error {
	if s.poisoned {
		return NewError(RetCInvalidOperation, "",
			"session state is unknown after a cancelled flush; open a fresh session and reload")
	}
	return nil
}

// defaultCollectionOf derives a collection tag from the entity's logical
// type name (Order -> "orders").
func defaultCollectionOf(entity any) string {
	name := codec.TypeNameOf(entity)
	if name == "" {
		return "entities"
	}
	return fmt.Sprintf("%ss", strings.ToLower(name))
}
