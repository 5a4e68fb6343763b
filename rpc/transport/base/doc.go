// Package base implements the stream transport shared by the tcp and unix packages.
// The protocol specific parts (dial, listen, socket options) are injected through
// IClientConnector and IServerConnector.
//
// Every request and response is one frame: an 8 byte request id, a 4 byte payload length
// and the payload (at most 64 MB). The id lets many requests share a connection, responses
// may arrive in any order.
//
// The client keeps ConnectionsPerEndpoint connections to a single endpoint and picks one
// round robin. A broken connection fails every request waiting on it and is re-dialed by
// the next request. The client never retries, that is left to the failover dispatcher.
//
// The server runs one reader per connection and at most WorkersPerConn handlers per
// connection at a time. Read buffers come from a sync.Pool. Close stops accepting,
// closes all open connections and makes Listen return nil.
package base
