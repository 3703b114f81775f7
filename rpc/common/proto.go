package common

import (
	"encoding/json"
	"fmt"

	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	ID         string                   `json:"id,omitempty"`         // Used for: Load, Has
	Commands   []executor.Command       `json:"commands,omitempty"`   // Used for: Batch requests
	Results    []executor.CommandResult `json:"results,omitempty"`    // Used for: Batch responses
	Body       document.Body            `json:"body,omitempty"`       // Used for: Load responses
	Metadata   document.Metadata        `json:"metadata,omitempty"`   // Used for: Load responses
	Version    document.VersionToken    `json:"version,omitempty"`    // Used for: Load responses
	Collection string                   `json:"collection,omitempty"` // Used for: Reserve requests
	Capacity   uint64                   `json:"capacity,omitempty"`   // Used for: Reserve requests
	Range      *executor.Range          `json:"range,omitempty"`      // Used for: Reserve responses

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: Load, Has responses
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional adapters
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewBatchRequest creates a new Batch request
func NewBatchRequest(commands []executor.Command) *Message {
	return &Message{
		MsgType:  MsgTBatch,
		Commands: commands,
	}
}

// NewBatchResponse creates a new Batch response
func NewBatchResponse(results []executor.CommandResult, err error) *Message {
	msg := &Message{
		MsgType: MsgTBatch,
		Results: results,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewLoadRequest creates a new Load request
func NewLoadRequest(id string) *Message {
	return &Message{
		MsgType: MsgTLoad,
		ID:      id,
	}
}

// NewLoadResponse creates a new Load response
func NewLoadResponse(doc *document.Document, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLoad,
		Ok:      ok,
	}
	if doc != nil {
		msg.ID = doc.ID
		msg.Body = doc.Body
		msg.Metadata = doc.Metadata
		msg.Version = doc.Version
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// Document reassembles the document carried by a Load response. Returns
// nil if the response reported no document.
func (m *Message) Document() *document.Document {
	if !m.Ok {
		return nil
	}
	return &document.Document{
		ID:       m.ID,
		Body:     m.Body,
		Metadata: m.Metadata,
		Version:  m.Version,
	}
}

// NewHasRequest creates a new Has request
func NewHasRequest(id string) *Message {
	return &Message{
		MsgType: MsgTHas,
		ID:      id,
	}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTHas,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewReserveRequest creates a new Reserve request
func NewReserveRequest(collection string, capacity uint64) *Message {
	return &Message{
		MsgType:    MsgTReserve,
		Collection: collection,
		Capacity:   capacity,
	}
}

// NewReserveResponse creates a new Reserve response
func NewReserveResponse(rng executor.Range, err error) *Message {
	msg := &Message{
		MsgType: MsgTReserve,
	}
	if err != nil {
		msg.Err = err.Error()
	} else {
		msg.Range = &rng
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTBatch:
		return "batch"
	case MsgTLoad:
		return "load"
	case MsgTHas:
		return "has"
	case MsgTReserve:
		return "reserve"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "batch":
		*t = MsgTBatch
	case "load":
		*t = MsgTLoad
	case "has":
		*t = MsgTHas
	case "reserve":
		*t = MsgTReserve
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Executor operations

	MsgTBatch // Submit a batch of commands
	MsgTLoad  // Load a document by identifier
	MsgTHas   // Check if a document exists

	// Range reservation operations

	MsgTReserve // Reserve an identifier range
)
