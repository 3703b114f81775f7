package server

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/common"
)

var (
	batchRequests   = metrics.NewCounter(`vellum_rpc_requests_total{op="batch"}`)
	loadRequests    = metrics.NewCounter(`vellum_rpc_requests_total{op="load"}`)
	hasRequests     = metrics.NewCounter(`vellum_rpc_requests_total{op="has"}`)
	reserveRequests = metrics.NewCounter(`vellum_rpc_requests_total{op="reserve"}`)
	batchCommands   = metrics.NewCounter(`vellum_rpc_batch_commands_total`)
	batchConflicts  = metrics.NewCounter(`vellum_rpc_batch_conflicts_total`)
)

func NewExecutorServerAdapter() IRPCServerAdapter {
	return &executorServerAdapterImpl{}
}

type executorServerAdapterImpl struct{}

func (adapter *executorServerAdapterImpl) Handle(req *common.Message, exec executor.IExecutor, reserver executor.IRangeReserver) *common.Message {
	if exec == nil {
		return common.NewErrorResponse("handler: executor is nil")
	}

	switch req.MsgType {
	case common.MsgTBatch:
		batchRequests.Inc()
		batchCommands.Add(len(req.Commands))
		results, err := exec.SubmitBatch(req.Commands)
		for _, r := range results {
			if r.Status == executor.StatusConflict {
				batchConflicts.Inc()
			}
		}
		return common.NewBatchResponse(results, err)
	case common.MsgTLoad:
		loadRequests.Inc()
		doc, ok, err := exec.Load(req.ID)
		return common.NewLoadResponse(doc, ok, err)
	case common.MsgTHas:
		hasRequests.Inc()
		ok, err := exec.Has(req.ID)
		return common.NewHasResponse(ok, err)
	case common.MsgTReserve:
		reserveRequests.Inc()
		if reserver == nil {
			return common.NewErrorResponse("handler: range reserver is nil")
		}
		rng, err := reserver.ReserveRange(req.Collection, req.Capacity)
		return common.NewReserveResponse(rng, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC ExecutorAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
