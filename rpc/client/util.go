package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/serializer"
	"github.com/ValentinKolb/dConf/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	endpoint   string
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It returns the response message and an error if any occurs.
// Failures of the transport or malformed responses are reported as store errors
// with the code RetCUnavailable, errors reported by the server keep their code.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Message) (*common.Message, error) {
	op := req.MsgType.String()

	// Serialize the request
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "failed to serialize %s request: %v", op, err)
	}

	// Send the request
	respBytes, err := a.transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, a.unavailable(op, err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, a.unavailable(op, fmt.Errorf("malformed response: %w", err))
	}

	// Check if the response is an error response
	if err := resp.AsError(); err != nil {
		return nil, err
	}
	if resp.MsgType == common.MsgTError {
		return nil, store.NewError(store.RetCInternalError, "server returned an error without message")
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, a.unavailable(op, fmt.Errorf("unexpected message type %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}

// unavailable wraps err in a store error with the code RetCUnavailable
func (a *rpcClientAdapter) unavailable(op string, err error) error {
	return fmt.Errorf("%w: %w", store.Errorf(store.RetCUnavailable, "%s on %s failed", op, a.endpoint), err)
}
