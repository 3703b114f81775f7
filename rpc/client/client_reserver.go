package client

import (
	"fmt"

	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
	"github.com/vellumdb/vellum/rpc/serializer"
	"github.com/vellumdb/vellum/rpc/transport"
)

// NewRPCRangeReserver creates a remote range reserver bound to one shard of
// a vellum server. All sessions that allocate identifiers against the same
// shard draw from the same reservation counters, so ids stay unique across
// processes.
func NewRPCRangeReserver(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (executor.IRangeReserver, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	r := rpcRangeReserver{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	return &r, nil
}

type rpcRangeReserver struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the executor package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcRangeReserver) ReserveRange(collection string, capacity uint64) (executor.Range, error) {
	req := common.NewReserveRequest(collection, capacity)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return executor.Range{}, err
	}
	if resp.Range == nil {
		return executor.Range{}, fmt.Errorf("reserve response carried no range")
	}
	return *resp.Range, nil
}
