// Package http implements an HTTP-based transport layer for the dConf RPC protocol.
// It provides concrete implementations of the transport interfaces defined in the
// parent package.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport and posts every request
//     to the RPCPath of a single endpoint. Plain host:port endpoints are served over
//     http. The request timeout of the client configuration and the request context
//     both bound a call.
//
//   - httpServerTransport: Implements IRPCServerTransport on top of net/http.
//     NewHandler exposes the same routing as an http.Handler, which is what the
//     tests mount on an httptest server.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently.
package http
