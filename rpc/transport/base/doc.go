// Package base provides the shared foundation for the socket transports of
// the vellum RPC layer, implementing the framing, connection management and
// request correlation logic independent of the specific network protocol
// (TCP, Unix sockets). Protocol-specific packages plug in via small
// connector interfaces.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Frame-based message protocol with shardID and requestID tracking
//   - Response correlation for multiplexed requests over one connection
//   - Retries with exponential backoff on the client side
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific
//     operations that allow extending the base transport with different
//     network protocols.
//
//   - clientTransport: Core client implementation that manages multiple
//     connections with round-robin load balancing. Supports multiple
//     connections per endpoint for improved throughput.
//
//   - serverTransport: Core server implementation that accepts connections
//     and processes requests in a bounded per-connection worker pool.
//
// Performance Optimizations:
//
//   - Connection Pooling: Multiple connections per endpoint improve
//     throughput under high load. For small messages a single connection
//     per endpoint may perform better due to reduced overhead.
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse read buffers,
//     reducing GC pressure and memory allocations.
//
//   - Asynchronous Processing: The client sends requests and correlates
//     responses asynchronously using unique request IDs, so many requests
//     can be in flight on one connection.
//
//   - Frame Batching: The transport uses net.Buffers to combine header and
//     payload into a single write syscall.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport uses atomic
//	operations and mutexes to ensure concurrent access safety, while the
//	server creates a dedicated goroutine for each connection.
package base
