package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/serializer"
	"github.com/ValentinKolb/dConf/rpc/transport"
	httpTransport "github.com/ValentinKolb/dConf/rpc/transport/http"
	"github.com/ValentinKolb/dConf/rpc/transport/tcp"
	"github.com/ValentinKolb/dConf/rpc/transport/unix"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/multierr"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server serving st
// It takes a config, the store, a transport and a serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		memstore.NewStore(),
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	st store.IStore,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	Logger.Infof("Created RPC Server %s", config.InstanceID)
	Logger.Infof(config.String())

	s := &RPCServer{
		config:     config,
		store:      st,
		adapter:    NewIStoreServerAdapter(),
		transport:  transport,
		serializer: serializer,
		set:        metrics.NewSet(),
	}
	s.transport.RegisterHandler(s.Handle)
	return s
}

// RPCServer serves one store over a transport
type RPCServer struct {
	config     common.ServerConfig
	store      store.IStore
	adapter    IRPCServerAdapter
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	set        *metrics.Set
}

// Metrics returns the request metrics of the server
func (s *RPCServer) Metrics() *metrics.Set {
	return s.set
}

// Handle decodes a serialized request, runs it against the store and
// returns the serialized response. It is registered as the transport handler.
func (s *RPCServer) Handle(req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	start := time.Now()
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		ctx := context.Background()
		if s.config.TimeoutSecond > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.TimeoutSecond)*time.Second)
			defer cancel()
		}
		// Let the adapter handle the request
		respMsg = s.adapter.Handle(ctx, &msg, s.store)
	}

	op := msg.MsgType.String()
	s.set.GetOrCreateCounter(fmt.Sprintf(`dconf_rpc_requests_total{op=%q}`, op)).Inc()
	if respMsg.Err != "" {
		s.set.GetOrCreateCounter(fmt.Sprintf(`dconf_rpc_errors_total{op=%q}`, op)).Inc()
	}
	s.set.GetOrCreateHistogram(fmt.Sprintf(`dconf_rpc_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", op, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError, fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Serve starts the transport layer and blocks until Close is called
func (s *RPCServer) Serve() error {
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes the store
func (s *RPCServer) Close() error {
	return multierr.Combine(s.transport.Close(), s.store.Close())
}

// TransportByName returns the constructor of the named server transport
func TransportByName(name string) (func() transport.IRPCServerTransport, error) {
	switch name {
	case common.TransportHTTP:
		return httpTransport.NewHttpServerTransport, nil
	case common.TransportTCP:
		return tcp.NewTCPServerTransport, nil
	case common.TransportUnix:
		return unix.NewUnixServerTransport, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", common.ErrInvalidConfig, name)
	}
}
