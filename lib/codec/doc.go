// Package codec converts between application entities and serialized
// document bodies.
//
// The package focuses on:
//   - A unified interface (ICodec) used by the session layer for entity
//     serialization and mutation detection
//   - Customization via a converter registry keyed by logical type name
//
// Key Components:
//
//   - ICodec Interface: Marshal turns an entity into a document.Body,
//     Unmarshal populates an entity from one. Implementations must be
//     canonical - the same entity state always serializes to the same
//     bytes - because the session layer detects mutations by comparing
//     serialized snapshots.
//
//   - Registry: an optional registry of IConverter implementations keyed by
//     logical type name. A registered converter overrides the codec's
//     default path for entities of that type, allowing applications to
//     customize the wire shape of individual types without replacing the
//     whole codec.
//
// The default implementation uses json encoding (NewJSONCodec).
package codec
