package serializer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and payload size
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasID uint16 = 1 << iota
	hasCommands
	hasResults
	hasBody
	hasMetadata
	hasVersion
	hasCollection
	hasCapacity
	hasRange
	hasOk
	hasErr
	hasMeta
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// Layout: 1 byte MsgType, 2 bytes field flags (big endian), then the present
// fields in flag order. Strings and byte slices are length-prefixed with a
// uint32, maps and command/result lists with a uint32 element count.
func (s binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	var flags uint16

	// Reserve the header, flags are patched in at the end
	buf.Write([]byte{byte(msg.MsgType), 0, 0})

	w := writer{buf: &buf}
	if msg.ID != "" {
		flags |= hasID
		w.writeString(msg.ID)
	}
	if msg.Commands != nil {
		flags |= hasCommands
		w.writeCommands(msg.Commands)
	}
	if msg.Results != nil {
		flags |= hasResults
		w.writeResults(msg.Results)
	}
	if msg.Body != nil {
		flags |= hasBody
		w.writeBytes(msg.Body)
	}
	if msg.Metadata != nil {
		flags |= hasMetadata
		w.writeMetadata(msg.Metadata)
	}
	if msg.Version != document.VersionNone {
		flags |= hasVersion
		w.writeString(string(msg.Version))
	}
	if msg.Collection != "" {
		flags |= hasCollection
		w.writeString(msg.Collection)
	}
	if msg.Capacity > 0 {
		flags |= hasCapacity
		w.writeUint64(msg.Capacity)
	}
	if msg.Range != nil {
		flags |= hasRange
		w.writeString(msg.Range.Collection)
		w.writeUint64(msg.Range.Low)
		w.writeUint64(msg.Range.High)
		w.writeString(msg.Range.Lease)
	}
	if msg.Ok {
		flags |= hasOk
		w.buf.WriteByte(1)
	}
	if msg.Err != "" {
		flags |= hasErr
		w.writeString(msg.Err)
	}
	if msg.Meta != nil {
		flags |= hasMeta
		w.writeBytes(msg.Meta)
	}

	out := buf.Bytes()
	binary.BigEndian.PutUint16(out[1:3], flags)
	return out, nil
}

func (s binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 3 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	r := reader{data: data, pos: 3}

	// Reset all optional fields, then read the present ones in flag order
	*msg = common.Message{MsgType: msg.MsgType}

	if flags&hasID != 0 {
		v, err := r.readString()
		if err != nil {
			return fmt.Errorf("id: %w", err)
		}
		msg.ID = v
	}
	if flags&hasCommands != 0 {
		v, err := r.readCommands()
		if err != nil {
			return fmt.Errorf("commands: %w", err)
		}
		msg.Commands = v
	}
	if flags&hasResults != 0 {
		v, err := r.readResults()
		if err != nil {
			return fmt.Errorf("results: %w", err)
		}
		msg.Results = v
	}
	if flags&hasBody != 0 {
		v, err := r.readBytes()
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		msg.Body = v
	}
	if flags&hasMetadata != 0 {
		v, err := r.readMetadata()
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		msg.Metadata = v
	}
	if flags&hasVersion != 0 {
		v, err := r.readString()
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		msg.Version = document.VersionToken(v)
	}
	if flags&hasCollection != 0 {
		v, err := r.readString()
		if err != nil {
			return fmt.Errorf("collection: %w", err)
		}
		msg.Collection = v
	}
	if flags&hasCapacity != 0 {
		v, err := r.readUint64()
		if err != nil {
			return fmt.Errorf("capacity: %w", err)
		}
		msg.Capacity = v
	}
	if flags&hasRange != 0 {
		rng := &executor.Range{}
		var err error
		if rng.Collection, err = r.readString(); err != nil {
			return fmt.Errorf("range collection: %w", err)
		}
		if rng.Low, err = r.readUint64(); err != nil {
			return fmt.Errorf("range low: %w", err)
		}
		if rng.High, err = r.readUint64(); err != nil {
			return fmt.Errorf("range high: %w", err)
		}
		if rng.Lease, err = r.readString(); err != nil {
			return fmt.Errorf("range lease: %w", err)
		}
		msg.Range = rng
	}
	if flags&hasOk != 0 {
		b, err := r.readByte()
		if err != nil {
			return fmt.Errorf("ok: %w", err)
		}
		msg.Ok = b != 0
	}
	if flags&hasErr != 0 {
		v, err := r.readString()
		if err != nil {
			return fmt.Errorf("err: %w", err)
		}
		msg.Err = v
	}
	if flags&hasMeta != 0 {
		v, err := r.readBytes()
		if err != nil {
			return fmt.Errorf("meta: %w", err)
		}
		msg.Meta = v
	}

	return nil
}

// --------------------------------------------------------------------------
// Writer Helpers
// --------------------------------------------------------------------------

type writer struct {
	buf *bytes.Buffer
}

func (w writer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w writer) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w writer) writeString(s string) {
	w.writeUint32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w writer) writeBytes(b []byte) {
	w.writeUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w writer) writeMetadata(m document.Metadata) {
	w.writeUint32(uint32(len(m)))
	for k, v := range m {
		w.writeString(k)
		w.writeString(v)
	}
}

// writeCommands encodes a command list. Per command: 1 byte kind, 1 byte
// constraint, then identifier, expected token, body and metadata.
func (w writer) writeCommands(commands []executor.Command) {
	w.writeUint32(uint32(len(commands)))
	for _, cmd := range commands {
		w.buf.WriteByte(byte(cmd.Kind))
		w.buf.WriteByte(byte(cmd.Constraint))
		w.writeString(cmd.ID)
		w.writeString(string(cmd.Expected))
		w.writeBytes(cmd.Body)
		w.writeMetadata(cmd.Metadata)
	}
}

// writeResults encodes a result list. Per result: 1 byte status, then
// identifier and version token.
func (w writer) writeResults(results []executor.CommandResult) {
	w.writeUint32(uint32(len(results)))
	for _, res := range results {
		w.buf.WriteByte(byte(res.Status))
		w.writeString(res.ID)
		w.writeString(string(res.Version))
	}
}

// --------------------------------------------------------------------------
// Reader Helpers
// --------------------------------------------------------------------------

type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("data too short")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short")
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short")
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("data too short")
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.data) {
		return nil, fmt.Errorf("data too short")
	}
	// Copy out of the frame buffer, it is reused by the transport
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

// capHint bounds a wire-declared element count by what the remaining bytes
// could possibly hold, so a corrupt frame cannot force a huge allocation.
// minElemSize is the encoded size of the smallest legal element.
func (r *reader) capHint(n uint32, minElemSize int) int {
	max := (len(r.data) - r.pos) / minElemSize
	if int(n) > max {
		return max
	}
	return int(n)
}

func (r *reader) readMetadata() (document.Metadata, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	// Smallest entry: two empty strings, 4 bytes of length prefix each
	m := make(document.Metadata, r.capHint(n, 8))
	for i := uint32(0); i < n; i++ {
		k, err := r.readString()
		if err != nil {
			return nil, err
		}
		v, err := r.readString()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (r *reader) readCommands() ([]executor.Command, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	// Smallest command: kind + constraint + three empty length-prefixed
	// fields + empty metadata count
	commands := make([]executor.Command, 0, r.capHint(n, 18))
	for i := uint32(0); i < n; i++ {
		var cmd executor.Command
		kind, err := r.readByte()
		if err != nil {
			return nil, err
		}
		constraint, err := r.readByte()
		if err != nil {
			return nil, err
		}
		cmd.Kind = executor.CommandKind(kind)
		cmd.Constraint = executor.Constraint(constraint)
		if cmd.ID, err = r.readString(); err != nil {
			return nil, err
		}
		expected, err := r.readString()
		if err != nil {
			return nil, err
		}
		cmd.Expected = document.VersionToken(expected)
		body, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			cmd.Body = body
		}
		meta, err := r.readMetadata()
		if err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			cmd.Metadata = meta
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

func (r *reader) readResults() ([]executor.CommandResult, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	// Smallest result: status byte + two empty length-prefixed fields
	results := make([]executor.CommandResult, 0, r.capHint(n, 9))
	for i := uint32(0); i < n; i++ {
		var res executor.CommandResult
		status, err := r.readByte()
		if err != nil {
			return nil, err
		}
		res.Status = executor.CommandStatus(status)
		if res.ID, err = r.readString(); err != nil {
			return nil, err
		}
		version, err := r.readString()
		if err != nil {
			return nil, err
		}
		res.Version = document.VersionToken(version)
		results = append(results, res)
	}
	return results, nil
}
