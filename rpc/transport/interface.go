package transport

import (
	"context"

	"github.com/ValentinKolb/dConf/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a serialized request and returns the serialized response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer of the server
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every received request
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves incoming requests.
	// It blocks until Close is called (returning nil) or the listener fails.
	Listen(config common.ServerConfig) error
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// A client transport talks to exactly one endpoint, failover between
// endpoints is done above the store interface.
type IRPCClientTransport interface {
	// Connect initializes the transport for the given endpoint
	Connect(endpoint string, config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// It returns when the response arrived, the request timeout of the
	// configuration elapsed or ctx is done.
	Send(ctx context.Context, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
