// Package document defines the core data model shared by every layer of
// vellum: documents, their serialized bodies, metadata and version tokens.
//
// A Document is an aggregate root with a unique string identifier, an opaque
// serialized body and a small metadata map. Every successful write attaches
// a new VersionToken to the document. Tokens are opaque - the session layer
// uses them solely for optimistic concurrency comparison, and the only
// operation defined on them is equality.
//
// The package has no dependencies on the rest of the module and is imported
// by the session layer (lib/session), the executor contract (lib/executor)
// and the codec (lib/codec).
package document
