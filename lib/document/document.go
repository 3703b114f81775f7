package document

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Version Tokens
// --------------------------------------------------------------------------

// VersionToken is an opaque value identifying a document revision.
// The only operation defined on it is equality - callers must not assume
// a numeric, sortable or otherwise structured format.
type VersionToken string

// VersionNone is the zero token. A document that was never written has no
// version, and a command stamped with VersionNone carries no version
// constraint.
const VersionNone VersionToken = ""

// Equal compares two tokens. Defined as a method to keep call sites honest
// about the fact that equality is the only supported comparison.
func (t VersionToken) Equal(other VersionToken) bool {
	return t == other
}

// --------------------------------------------------------------------------
// Body
// --------------------------------------------------------------------------

// Body is the serialized form of a document's content. Bodies are produced
// by a codec (see lib/codec) and are canonical: serializing the same entity
// state twice yields byte-identical bodies. Structural equality of two
// bodies is therefore byte equality.
type Body []byte

// Clone returns an independent copy of the body.
func (b Body) Clone() Body {
	if b == nil {
		return nil
	}
	c := make(Body, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Metadata
// --------------------------------------------------------------------------

// Well-known metadata keys.
const (
	MetaCollection   = "@collection"
	MetaLastModified = "@last-modified"
	MetaConflict     = "@conflict"
)

// Metadata holds string key-value pairs attached to a document alongside
// its body (collection name, audit information, ...).
type Metadata map[string]string

// Clone returns an independent copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// --------------------------------------------------------------------------
// Document
// --------------------------------------------------------------------------

// Document is an aggregate root: the unit of storage, consistency and
// reference. Its identifier is immutable once assigned. A document may
// refer to another document only via an identifier string held as a plain
// field in its body - such links are not enforced referentially.
type Document struct {
	ID       string       `json:"id"`
	Body     Body         `json:"body"`
	Metadata Metadata     `json:"metadata,omitempty"`
	Version  VersionToken `json:"version"`
}

// Collection returns the collection tag of the document, taken from the
// metadata if present, otherwise derived from the identifier prefix
// ("users/42" -> "users"). Returns "" for an identifier without a prefix.
func (d *Document) Collection() string {
	if c, ok := d.Metadata[MetaCollection]; ok {
		return c
	}
	return CollectionOf(d.ID)
}

// String implements fmt.Stringer for log output. The body is elided since
// it can be arbitrarily large.
func (d *Document) String() string {
	return fmt.Sprintf("Document{id=%s, version=%s, %d body bytes}", d.ID, d.Version, len(d.Body))
}

// CollectionOf derives the collection tag from an identifier of the form
// "collection/value". Returns "" if the identifier has no such prefix.
func CollectionOf(id string) string {
	if i := strings.IndexByte(id, '/'); i > 0 {
		return id[:i]
	}
	return ""
}
