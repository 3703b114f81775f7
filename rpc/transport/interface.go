package transport

import (
	"github.com/vellumdb/vellum/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// The transport layer calls it once per received request; routing the
// request to the appropriate shard happens behind it.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side of the RPC
// transport layer.
type IRPCServerTransport interface {
	// RegisterHandler registers the handler invoked per request. Must be
	// called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks serving requests.
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side of the RPC
// transport layer.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
