// Package tcp plugs TCP sockets into the stream transport of the base package.
//
// It only dials, listens and applies the socket options of common.SocketConf
// (buffer sizes, TCP_NODELAY, keepalive, linger). Framing, request correlation and the
// worker pool live in base. The server reads into 512 KB buffers.
package tcp
