package server

import (
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// It is responsible for handling requests and responses.
type IRPCServerAdapter interface {
	// Handle handles a request against the shard's executor and range
	// reserver and returns a response. If an error occurs, it is set in
	// the response message.
	Handle(req *common.Message, exec executor.IExecutor, reserver executor.IRangeReserver) (resp *common.Message)
}
