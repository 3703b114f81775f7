package codec

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdb/vellum/lib/document"
)

type invoice struct {
	Number string `json:"number"`
	Amount int    `json:"amount"`
}

type legacyRecord struct {
	Payload string
}

func (legacyRecord) LogicalType() string { return "legacy" }

// legacyConverter wraps the payload in a versioned envelope
type legacyConverter struct{}

func (legacyConverter) ToBody(entity any) (document.Body, error) {
	r, ok := entity.(*legacyRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected entity type %T", entity)
	}
	return json.Marshal(map[string]string{"v": "1", "payload": r.Payload})
}

func (legacyConverter) FromBody(body document.Body, target any) error {
	r, ok := target.(*legacyRecord)
	if !ok {
		return fmt.Errorf("unexpected target type %T", target)
	}
	var envelope map[string]string
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	r.Payload = envelope["payload"]
	return nil
}

func TestTypeNameOf(t *testing.T) {
	assert.Equal(t, "invoice", TypeNameOf(invoice{}))
	assert.Equal(t, "invoice", TypeNameOf(&invoice{}))
	assert.Equal(t, "legacy", TypeNameOf(legacyRecord{}))
	assert.Equal(t, "", TypeNameOf(nil))
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewJSONCodec(nil)

	in := invoice{Number: "INV-7", Amount: 120}
	body, err := c.Marshal(&in)
	require.NoError(t, err)

	var out invoice
	require.NoError(t, c.Unmarshal(body, &out))
	assert.Equal(t, in, out)
}

func TestMarshalIsCanonical(t *testing.T) {
	c := NewJSONCodec(nil)

	// Same state, marshalled twice, must produce identical bytes
	a, err := c.Marshal(&invoice{Number: "INV-7", Amount: 120})
	require.NoError(t, err)
	b, err := c.Marshal(&invoice{Number: "INV-7", Amount: 120})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Maps too: key order must not leak into the body
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}
	b1, err := c.Marshal(m1)
	require.NoError(t, err)
	b2, err := c.Marshal(m2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestMarshalNilFails(t *testing.T) {
	c := NewJSONCodec(nil)
	_, err := c.Marshal(nil)
	assert.Error(t, err)
}

func TestUnmarshalTargetValidation(t *testing.T) {
	c := NewJSONCodec(nil)

	assert.Error(t, c.Unmarshal(document.Body(`{}`), nil))
	assert.Error(t, c.Unmarshal(document.Body(`{}`), invoice{}))

	var nilPtr *invoice
	assert.Error(t, c.Unmarshal(document.Body(`{}`), nilPtr))
}

func TestConverterTakesPrecedence(t *testing.T) {
	registry := NewRegistry()
	registry.Register("legacy", legacyConverter{})
	c := NewJSONCodec(registry)

	body, err := c.Marshal(&legacyRecord{Payload: "hello"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"v":"1"`)

	var out legacyRecord
	require.NoError(t, c.Unmarshal(body, &out))
	assert.Equal(t, "hello", out.Payload)

	// Types without a registered converter use the default path
	plain, err := c.Marshal(&invoice{Number: "INV-7"})
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"number":"INV-7"`)
}

func TestNilRegistryIsEmpty(t *testing.T) {
	var r *Registry
	_, found := r.lookup("anything")
	assert.False(t, found)
}
