// Package server implements the dConf development server: a single store served
// over one of the RPC transports. It is meant for local development of settings
// and for tests, the production store is an etcd cluster.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters, with
//     the Handle method that processes an incoming request against a store.IStore.
//
//   - NewIStoreServerAdapter: Adapter translating set, get, delete, list and ping
//     requests to store.IStore calls. Store errors keep their return code on the wire.
//
//   - RPCServer: Decodes requests, passes them to the adapter and encodes the
//     responses. Request counts and durations are recorded per operation in a
//     VictoriaMetrics set (see Metrics).
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  Transport:     common.DefaultTransportConf(),
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  memstore.NewStore(),
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Requests are handled concurrently, the store must be safe for concurrent use.
//	Serve should be called only once.
package server
