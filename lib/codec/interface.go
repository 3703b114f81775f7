package codec

import (
	"github.com/vellumdb/vellum/lib/document"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICodec converts between application entities and serialized document
// bodies. Implementations must be canonical: marshalling the same entity
// state twice yields byte-identical bodies, so that the session layer can
// detect mutations by comparing serialized snapshots.
type ICodec interface {
	// Marshal serializes an entity into a document body.
	Marshal(entity any) (document.Body, error)
	// Unmarshal deserializes a document body into the target entity.
	// The target must be a non-nil pointer.
	Unmarshal(body document.Body, target any) error
}

// IConverter customizes serialization for one logical type. Converters are
// registered on a Registry under a logical type name and take precedence
// over the codec's default path for entities of that type.
type IConverter interface {
	// ToBody serializes the entity.
	ToBody(entity any) (document.Body, error)
	// FromBody deserializes the body into the target entity.
	FromBody(body document.Body, target any) error
}
