package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vellumdb/vellum/lib/document"
)

// NewJSONCodec creates a codec using json encoding. The registry parameter
// is optional - pass nil if no custom converters are needed.
//
// encoding/json is canonical for this purpose: struct fields serialize in
// declaration order and map keys are sorted, so identical entity state
// always produces byte-identical bodies.
func NewJSONCodec(registry *Registry) ICodec {
	return &jsonCodecImpl{registry: registry}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
	registry *Registry
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c *jsonCodecImpl) Marshal(entity any) (document.Body, error) {
	if entity == nil {
		return nil, fmt.Errorf("codec: cannot marshal nil entity")
	}

	// A registered converter takes precedence over the default path
	if conv, ok := c.registry.lookup(TypeNameOf(entity)); ok {
		return conv.ToBody(entity)
	}

	body, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %s: %w", TypeNameOf(entity), err)
	}
	return body, nil
}

func (c *jsonCodecImpl) Unmarshal(body document.Body, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}

	if conv, ok := c.registry.lookup(TypeNameOf(target)); ok {
		return conv.FromBody(body, target)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("codec: unmarshal into %s: %w", TypeNameOf(target), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// checkTarget verifies that an unmarshal target is a non-nil pointer
func checkTarget(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("codec: unmarshal target must be a non-nil pointer, got %T", target)
	}
	return nil
}
