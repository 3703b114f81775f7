// Package serializer provides the wire encodings for RPC messages.
//
// Three implementations of the IRPCSerializer interface are available:
//
//   - JSON (NewJSONSerializer): human-readable, interoperable, the default
//     for the http transport.
//
//   - GOB (NewGOBSerializer): Go's native binary encoding, no hand-written
//     encoding logic.
//
//   - Binary (NewBinarySerializer): a custom flag-and-length-prefix format.
//     The smallest and fastest of the three; command batches encode as flat
//     length-prefixed sequences with no per-field names.
//
// Serializers are symmetric - client and server must be configured with the
// same implementation, the wire format carries no negotiation.
package serializer
