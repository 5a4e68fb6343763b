package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/serializer"
	"github.com/ValentinKolb/dConf/rpc/transport"
	httpTransport "github.com/ValentinKolb/dConf/rpc/transport/http"
	"github.com/ValentinKolb/dConf/rpc/transport/tcp"
	"github.com/ValentinKolb/dConf/rpc/transport/unix"
)

// NewRPCStore creates a new RPC store for one endpoint.
// The transport is connected and the endpoint is probed with a ping request,
// so an unreachable endpoint is reported right away.
func NewRPCStore(
	ctx context.Context,
	endpoint string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	if err := transport.Connect(endpoint, config); err != nil {
		return nil, store.Errorf(store.RetCUnavailable, "failed to connect to %s: %v", endpoint, err)
	}

	s := &rpcStore{
		rpcClientAdapter{
			endpoint:   endpoint,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	if err := s.Ping(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	Logger.Debugf("Opened rpc store for %s", endpoint)
	return s, nil
}

// Factory returns a store.Factory that opens an RPC store per endpoint.
// newTransport is called once per opened endpoint.
func Factory(config common.ClientConfig, newTransport func() transport.IRPCClientTransport, serializer serializer.IRPCSerializer) store.Factory {
	return func(ctx context.Context, endpoint string) (store.IStore, error) {
		return NewRPCStore(ctx, endpoint, config, newTransport(), serializer)
	}
}

// FactoryFromConfig returns a store.Factory using the transport and serializer
// named in config.Transport
func FactoryFromConfig(config common.ClientConfig) (store.Factory, error) {
	newTransport, err := TransportByName(config.Transport.Type)
	if err != nil {
		return nil, err
	}
	ser, err := serializer.ByName(config.Transport.Serializer)
	if err != nil {
		return nil, err
	}
	return Factory(config, newTransport, ser), nil
}

// TransportByName returns the constructor of the named client transport
func TransportByName(name string) (func() transport.IRPCClientTransport, error) {
	switch name {
	case common.TransportHTTP:
		return httpTransport.NewHttpClientTransport, nil
	case common.TransportTCP:
		return tcp.NewTCPClientTransport, nil
	case common.TransportUnix:
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", common.ErrInvalidConfig, name)
	}
}

type rpcStore struct {
	rpcClientAdapter
}

var _ store.IStore = (*rpcStore)(nil)

// Ping checks that the endpoint answers requests
func (i *rpcStore) Ping(ctx context.Context) error {
	resp, err := i.invokeRPCRequest(ctx, common.NewPingRequest())
	if err != nil {
		return err
	}
	if !resp.Ok {
		return store.Errorf(store.RetCUnavailable, "%s is not ready", i.endpoint)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	resp, err := i.invokeRPCRequest(ctx, common.NewGetRequest(key))
	if err != nil {
		return "", false, err
	}
	return string(resp.Value), resp.Ok, nil
}

func (i *rpcStore) Set(ctx context.Context, key, value string, ttl time.Duration) (err error) {
	if ttl < 0 {
		return store.Errorf(store.RetCInvalidOperation, "negative ttl %s", ttl)
	}
	_, err = i.invokeRPCRequest(ctx, common.NewSetRequest(key, []byte(value), ttl))
	return err
}

func (i *rpcStore) Delete(ctx context.Context, key string) (err error) {
	_, err = i.invokeRPCRequest(ctx, common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) ListChildren(ctx context.Context, prefix string) (nodes []store.Node, err error) {
	resp, err := i.invokeRPCRequest(ctx, common.NewListRequest(prefix))
	if err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

func (i *rpcStore) Close() (err error) {
	return i.transport.Close()
}
