// Package client implements the RPC clients of vellum. It provides
// implementations of the executor.IExecutor and executor.IRangeReserver
// interfaces that communicate with a remote vellum server, so a session
// can run against a server exactly like against an in-process executor.
//
// The package focuses on:
//   - Transparent RPC access to executor and range reserver implementations
//   - Integration with the transport and serialization layers
//   - Error checking of RPC responses (type and error field)
//
// Key Components:
//
//   - NewRPCExecutor: Factory function that creates a client implementing
//     the executor.IExecutor interface. All batches, loads and existence
//     checks are forwarded to the remote server via the configured
//     transport layer.
//
//   - NewRPCRangeReserver: Factory function that creates a client
//     implementing the executor.IRangeReserver interface, so identifier
//     ranges are reserved server-side and stay unique across processes.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create a serializer
//	serializer := serializer.NewBinarySerializer()
//
//	// Create the remote executor and open a session on it
//	exec, _ := client.NewRPCExecutor(1, config, tcp.NewTCPClientTransport(), serializer)
//	reserver, _ := client.NewRPCRangeReserver(1, config, tcp.NewTCPClientTransport(), serializer)
//	sess, _ := session.New(session.Options{Executor: exec, Reserver: reserver})
//
// Performance Considerations:
//
//   - For applications that frequently flush large batches, increasing
//     ConnectionsPerEndpoint can improve throughput by allowing parallel
//     requests.
//
//   - The choice of serializer significantly affects performance. The
//     binary serializer provides the best performance and smallest payload
//     size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently
//	from multiple goroutines without additional synchronization.
package client
