package serializer

import (
	"reflect"
	"testing"

	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Load request
		{
			MsgType: common.MsgTLoad,
			ID:      "orders/1",
		},

		// Load response
		{
			MsgType:  common.MsgTLoad,
			ID:       "orders/1",
			Body:     document.Body(`{"total":42}`),
			Metadata: document.Metadata{"@collection": "orders"},
			Version:  document.VersionToken("01HV2K3X9GQZ"),
			Ok:       true,
		},

		// Batch request with mixed commands
		{
			MsgType: common.MsgTBatch,
			Commands: []executor.Command{
				{
					Kind:       executor.CommandPut,
					ID:         "orders/1",
					Body:       document.Body(`{"total":42}`),
					Metadata:   document.Metadata{"@collection": "orders"},
					Constraint: executor.ConstraintMatchVersion,
					Expected:   document.VersionToken("01HV2K3X9GQZ"),
				},
				{
					Kind:       executor.CommandPut,
					ID:         "orders/2",
					Body:       document.Body(`{}`),
					Constraint: executor.ConstraintMustNotExist,
				},
				{
					Kind: executor.CommandDelete,
					ID:   "orders/3",
				},
			},
		},

		// Batch response
		{
			MsgType: common.MsgTBatch,
			Results: []executor.CommandResult{
				{ID: "orders/1", Status: executor.StatusApplied, Version: document.VersionToken("01HV2K4A7T")},
				{ID: "orders/2", Status: executor.StatusConflict},
				{ID: "orders/3", Status: executor.StatusFailed},
			},
		},

		// Reserve request
		{
			MsgType:    common.MsgTReserve,
			Collection: "orders",
			Capacity:   32,
		},

		// Reserve response
		{
			MsgType: common.MsgTReserve,
			Range: &executor.Range{
				Collection: "orders",
				Low:        65,
				High:       97,
				Lease:      "9b2a6f3e-lease",
			},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with meta payload
		{
			MsgType: common.MsgTHas,
			ID:      "orders/1",
			Ok:      true,
			Meta:    []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTReserve; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: got %s, want %s",
						result.MsgType, msgType)
				}
			}
		})
	}
}

// TestDeserializeGarbage tests that invalid payloads are rejected
func TestDeserializeGarbage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			var result common.Message
			if err := serializer.Deserialize([]byte{}, &result); err == nil {
				t.Errorf("Expected error for empty payload")
			}
		})
	}
}

// TestBinaryDeserializeBogusCounts tests that wire-declared element counts
// far beyond what the frame could hold fail cleanly instead of driving a
// huge pre-allocation
func TestBinaryDeserializeBogusCounts(t *testing.T) {
	serializer := NewBinarySerializer()

	// Each frame sets exactly one field flag and claims 2^32-1 elements
	// with no payload behind the count
	frames := map[string][]byte{
		"Commands": {byte(common.MsgTBatch), 0x00, 0x02, 0xFF, 0xFF, 0xFF, 0xFF},
		"Results":  {byte(common.MsgTSuccess), 0x00, 0x04, 0xFF, 0xFF, 0xFF, 0xFF},
		"Metadata": {byte(common.MsgTSuccess), 0x00, 0x10, 0xFF, 0xFF, 0xFF, 0xFF},
	}

	for name, data := range frames {
		t.Run(name, func(t *testing.T) {
			var result common.Message
			if err := serializer.Deserialize(data, &result); err == nil {
				t.Errorf("Expected error for bogus element count")
			}
		})
	}
}
