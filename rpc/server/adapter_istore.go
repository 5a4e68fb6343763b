package server

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(ctx context.Context, req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTPing:
		return common.NewPingResponse()
	case common.MsgTKVSet:
		err := s.Set(ctx, req.Key, string(req.Value), req.TTLDuration())
		return common.NewSetResponse(err)
	case common.MsgTKVDelete:
		err := s.Delete(ctx, req.Key)
		return common.NewDeleteResponse(err)
	case common.MsgTKVGet:
		val, ok, err := s.Get(ctx, req.Key)
		var value []byte
		if ok {
			value = []byte(val)
		}
		return common.NewGetResponse(value, ok, err)
	case common.MsgTKVList:
		nodes, err := s.ListChildren(ctx, req.Key)
		return common.NewListResponse(nodes, err)
	default:
		return common.NewErrorResponse(
			store.RetCUnsupportedOperation,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
