// Package server implements the RPC server of vellum. It provides the
// adapter handling document store requests along with the core server
// implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side handling of batch, load, has and reserve requests
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Multiple independent shards per server process
//   - Request counters exposed in Prometheus text format
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server
//     adapters, with the Handle method that processes incoming requests
//     against an executor.IExecutor and executor.IRangeReserver.
//
//   - NewExecutorServerAdapter: Factory function creating the adapter for
//     document store operations, translating RPC requests to executor
//     method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards:        []uint64{100, 200},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	  Transport: common.ServerTransportConfig{
//	    Endpoint: "0.0.0.0:8080",
//	  },
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(config.Transport.MaxWorkersPerConn),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each shard is an isolated in-memory document store with its own
// identifier reservation counters. Requests carry the shard ID in the
// transport frame, so a single server can host independent stores for
// several applications.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently. The Serve method is not thread-safe and should be
//	called only once.
package server
