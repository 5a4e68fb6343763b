// Package unix plugs Unix domain sockets into the stream transport of the base package,
// for a client and a dconf server on the same machine. The endpoint is the socket path.
//
// The server removes a stale socket file before listening and reads into 64 KB buffers.
// The tcp specific options of common.SocketConf are ignored.
package unix
