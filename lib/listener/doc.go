// Package listener implements the extension-point pipeline invoked by the
// session layer during the store, delete, query and conversion lifecycle.
//
// Listeners are plain function values registered on a Pipeline under a
// Point and run in registration order. A before-* listener may veto the
// individual operation by returning an error; the veto excludes only that
// entity from the submitted batch and is reported to the caller as a
// VetoError, distinct from a server-side concurrency conflict. Unrelated
// entities in the same flush are not affected.
package listener
