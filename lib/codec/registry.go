package codec

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Logical Type Names
// --------------------------------------------------------------------------

// ITypeNamed can be implemented by an entity to override the logical type
// name used for converter lookup.
type ITypeNamed interface {
	LogicalType() string
}

// TypeNameOf returns the logical type name of an entity: the value returned
// by LogicalType() if the entity implements ITypeNamed, otherwise the Go
// type name with pointer indirection stripped.
func TypeNameOf(entity any) string {
	if n, ok := entity.(ITypeNamed); ok {
		return n.LogicalType()
	}
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// --------------------------------------------------------------------------
// Converter Registry
// --------------------------------------------------------------------------

// Registry maps logical type names to custom converters. A nil *Registry is
// valid and empty, so codecs can be constructed without one.
//
// Thread-safety: Register and lookup may be called concurrently, though the
// expected usage is to register all converters before first use.
type Registry struct {
	converters *xsync.MapOf[string, IConverter]
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{
		converters: xsync.NewMapOf[string, IConverter](),
	}
}

// Register binds a converter to a logical type name. Registering a second
// converter under the same name replaces the first.
func (r *Registry) Register(typeName string, conv IConverter) {
	r.converters.Store(typeName, conv)
}

// lookup returns the converter for a logical type name, if any.
func (r *Registry) lookup(typeName string) (IConverter, bool) {
	if r == nil {
		return nil, false
	}
	return r.converters.Load(typeName)
}
