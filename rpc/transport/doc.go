// Package transport defines the interfaces for the RPC communication between the
// dConf RPC store client and a dConf server. It provides a common contract that all
// transport implementations must fulfill, enabling protocol-agnostic communication.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations. A
//     client transport is connected to exactly one endpoint; retrying on other
//     endpoints is the job of the failover package, not of the transport.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receive requests and pass them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations: http (net/http), tcp and unix (both built on the base package).
package transport
