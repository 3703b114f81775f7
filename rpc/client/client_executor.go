package client

import (
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
	"github.com/vellumdb/vellum/rpc/serializer"
	"github.com/vellumdb/vellum/rpc/transport"
)

// NewRPCExecutor creates a remote executor bound to one shard of a vellum
// server. The function connects the transport before returning, so a
// returned executor is ready to use.
func NewRPCExecutor(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (executor.IExecutor, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	e := rpcExecutor{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	return &e, nil
}

type rpcExecutor struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the executor package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcExecutor) SubmitBatch(commands []executor.Command) ([]executor.CommandResult, error) {
	req := common.NewBatchRequest(commands)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (i *rpcExecutor) Load(id string) (doc *document.Document, loaded bool, err error) {
	req := common.NewLoadRequest(id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Document(), resp.Ok, nil
}

func (i *rpcExecutor) Has(id string) (loaded bool, err error) {
	req := common.NewHasRequest(id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
