// Package common contains the shared pieces of the vellum RPC stack: the
// wire message structure with its factory functions, the client and server
// configuration structs and the logging setup.
//
// Key Components:
//
//   - Message: a single struct used for all requests and responses. The
//     MsgType field selects the operation (batch submission, document load,
//     existence check, range reservation); which other fields are populated
//     depends on it. Factory functions (NewBatchRequest, NewLoadResponse,
//     ...) keep call sites from filling the struct by hand.
//
//   - ClientConfig / ServerConfig: configuration for both ends of the RPC
//     connection, including transport tuning (buffer sizes, TCP knobs) and,
//     on the server, the shard list and metrics endpoint.
//
//   - Logging: a custom formatter behind the dragonboat logger facade; all
//     packages obtain their named logger via logger.GetLogger and the CLI
//     initializes levels through InitLoggers.
package common
