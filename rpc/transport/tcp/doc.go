// Package tcp implements the TCP socket transport for the vellum RPC
// system. It provides concrete implementations of the base package's
// connector interfaces optimized for TCP connections.
//
// This package builds on the base package's transport functionality,
// inheriting its connection pooling, buffer reuse and request correlation.
// See the base package documentation for details on the underlying
// transport mechanisms and performance characteristics.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//     that applies the TCPConf tuning knobs (no-delay, keep-alive, linger,
//     socket buffer sizes) to every established connection
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// The default server buffer size is 512 KB, which works well for typical
// document sizes.
package tcp
