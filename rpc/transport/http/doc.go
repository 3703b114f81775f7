// Package http implements an HTTP-based transport for the vellum RPC layer.
// It provides concrete implementations of the transport interfaces defined
// in the parent package, enabling client/server communication over plain
// HTTP where socket transports are not an option.
//
// The package focuses on:
//   - Client-side HTTP transport for sending serialized RPC requests
//   - Server-side HTTP transport for receiving and handling them
//   - Round-robin load balancing across multiple server endpoints
//   - Request routing based on shard IDs in the URL path
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport, managing
//     connections to server endpoints with round-robin selection and a
//     bounded retry loop.
//
//   - httpServerTransport: Implements IRPCServerTransport, setting up an
//     HTTP server that routes POST /{shardId} requests to the registered
//     handler.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It
//	uses atomic operations for the round-robin counter.
package http
