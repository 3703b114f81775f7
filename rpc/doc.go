// Package rpc provides the remote procedure call framework of vellum. It
// acts as the communication layer between the client runtime and document
// servers, enabling sessions to operate across network boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC
//     system, including the Message protocol, configuration structures,
//     and logging.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting between Message objects and byte
//     arrays.
//
//   - client: RPC implementations of the executor and range reserver
//     interfaces, allowing sessions to interact with remote servers
//     transparently.
//
//   - server: RPC server components that handle incoming requests,
//     including the adapter for document store operations.
package rpc
