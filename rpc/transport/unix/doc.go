// Package unix implements the Unix domain socket transport for the vellum
// RPC system. It provides concrete implementations of the base package's
// connector interfaces for local inter-process communication.
//
// Unix sockets avoid the TCP/IP stack entirely and are the fastest option
// when client and server run on the same host. The package builds on the
// base package's transport functionality; see its documentation for the
// underlying framing and connection management.
//
// The default server buffer size is 64 KB.
package unix
