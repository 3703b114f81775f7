package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/lib/executor/memexec"
	"github.com/vellumdb/vellum/rpc/common"
	"github.com/vellumdb/vellum/rpc/serializer"
	"github.com/vellumdb/vellum/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// serverShard represents one shard in the RPC server. Each shard is an
// independent document store with its own identifier reservation counters.
type serverShard struct {
	Executor executor.IExecutor
	Reserver executor.IRangeReserver
	Adapter  IRPCServerAdapter
}

// NewRPCServer creates a new RPC server.
// It takes a config, transport and serializer as parameters.
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(config.Transport.MaxWorkersPerConn),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("created RPC server")
	Logger.Infof(config.String())

	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			err := s.serializer.Deserialize(req, &msg)
			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Executor, shard.Reserver)
			}
		}

		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
			val, _ = s.serializer.Serialize(respMsg)
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// Each shard gets its own in-memory executor and reservation counters
	for _, shardID := range s.config.Shards {
		s.shards.Store(shardID, serverShard{
			Executor: memexec.New(),
			Reserver: memexec.NewReserver(),
			Adapter:  NewExecutorServerAdapter(),
		})
		Logger.Infof("created document store for shard %d", shardID)
	}

	// Optionally expose Prometheus metrics on a side listener
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	Logger.Infof("vellum setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// serveMetrics runs a plain HTTP listener that exposes the request counters
// in Prometheus text format under /metrics.
func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("starting metrics endpoint on %s", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		Logger.Errorf("metrics endpoint failed: %v", err)
	}
}

// Serve starts the RPC server. This initializes the server plus the shards
// and starts the transport layer.
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
