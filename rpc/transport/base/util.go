package base

import (
	"encoding/binary"
	"io"
	"net"
)

// frameHeaderSize is the fixed frame header:
// - 8 bytes: shardId (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: payload length (uint32, big endian)
const frameHeaderSize = 20

// writeFrame writes one framed request or response to the connection.
func writeFrame(conn net.Conn, shardID, requestID uint64, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	// One writev syscall for header plus payload
	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame from the connection into buf. If buf is nil or
// too small for the payload a fresh buffer is allocated, so callers can
// pass pooled buffers of a typical size without limiting the frame size.
func readFrame(conn net.Conn, buf []byte) (shardID, requestID uint64, data []byte, err error) {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err = io.ReadFull(conn, buf[:frameHeaderSize]); err != nil {
		return 0, 0, nil, err
	}

	shardID = binary.BigEndian.Uint64(buf[:8])
	requestID = binary.BigEndian.Uint64(buf[8:16])
	length := binary.BigEndian.Uint32(buf[16:20])

	if length == 0 {
		return shardID, requestID, []byte{}, nil
	}

	if len(buf) < int(length) {
		buf = make([]byte, length)
	}
	if _, err = io.ReadFull(conn, buf[:length]); err != nil {
		return 0, 0, nil, err
	}
	return shardID, requestID, buf[:length], nil
}
