// Package client implements the RPC store client of dConf. It provides an
// implementation of the store.IStore interface that talks to one dConf server
// via the configured transport and serializer.
//
// Key Components:
//
//   - NewRPCStore: Creates a client for one endpoint. The endpoint is probed with a
//     ping request, so an unreachable server fails right away.
//
//   - Factory / FactoryFromConfig: Build a store.Factory, which is what the failover
//     dispatcher uses to open endpoint clients lazily.
//
// Error Handling:
//
//	Transport failures, timeouts and malformed responses are reported as store errors
//	with the code RetCUnavailable, so the failover dispatcher retries them on another
//	endpoint. Errors returned by the server keep the code set by the server's store.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Backend:       common.BackendRPC,
//	  Endpoints:     []string{"localhost:8080", "localhost:8081"},
//	  TimeoutSecond: 5,
//	  Transport:     common.DefaultTransportConf(),
//	  ...
//	}
//
//	factory, _ := client.FactoryFromConfig(config)
//	d, _ := failover.New(config.Endpoints, config.Policy(), factory)
//	value, found, err := d.Get(ctx, "/app1/name")
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
