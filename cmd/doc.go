// Package cmd implements the command-line interface for vellum. It provides
// a hierarchical command structure with operations for running the server
// and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - docs: Commands for document store operations (put, get, del, has,
//     reserve) plus a benchmark tool
//   - serve: Commands for starting and configuring the vellum server
//   - util: Shared utilities for command-line processing and configuration
//     (internal use)
//
// See vellum -help for a list of all commands.
package cmd
