package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/lib/store/memstore"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/serializer"
	"github.com/ValentinKolb/dConf/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterHandle(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	st := memstore.NewStore()
	ctx := context.Background()

	resp := adapter.Handle(ctx, common.NewSetRequest("/app1/name", []byte("dconf"), 0), st)
	assert.NoError(t, resp.AsError())

	resp = adapter.Handle(ctx, common.NewGetRequest("/app1/name"), st)
	require.NoError(t, resp.AsError())
	assert.True(t, resp.Ok)
	assert.Equal(t, "dconf", string(resp.Value))

	resp = adapter.Handle(ctx, common.NewGetRequest("/app1/missing"), st)
	require.NoError(t, resp.AsError())
	assert.False(t, resp.Ok)
	assert.Nil(t, resp.Value)

	resp = adapter.Handle(ctx, common.NewListRequest("/app1"), st)
	require.NoError(t, resp.AsError())
	assert.Equal(t, []store.Node{{Key: "/app1/name", Value: "dconf"}}, resp.Nodes)

	resp = adapter.Handle(ctx, common.NewDeleteRequest("/app1/name"), st)
	assert.NoError(t, resp.AsError())
	_, found, _ := st.Get(ctx, "/app1/name")
	assert.False(t, found)

	resp = adapter.Handle(ctx, common.NewPingRequest(), st)
	assert.Equal(t, common.MsgTPing, resp.MsgType)
	assert.True(t, resp.Ok)
}

func TestAdapterSetWithTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	st := memstore.NewStore(memstore.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	resp := NewIStoreServerAdapter().Handle(ctx, common.NewSetRequest("/app1/session", []byte("x"), 2*time.Second), st)
	require.NoError(t, resp.AsError())

	_, found, _ := st.Get(ctx, "/app1/session")
	assert.True(t, found)

	now = now.Add(2 * time.Second)
	_, found, _ = st.Get(ctx, "/app1/session")
	assert.False(t, found)
}

func TestAdapterErrors(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	ctx := context.Background()

	resp := adapter.Handle(ctx, common.NewGetRequest("/a"), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)

	resp = adapter.Handle(ctx, &common.Message{MsgType: common.MsgTSuccess}, memstore.NewStore())
	assert.Equal(t, store.RetCUnsupportedOperation, store.CodeOf(resp.AsError()))

	resp = adapter.Handle(ctx, common.NewSetRequest("", []byte("x"), 0), memstore.NewStore())
	assert.Equal(t, store.RetCInvalidOperation, store.CodeOf(resp.AsError()))
}

// stubTransport records the registered handler
type stubTransport struct {
	handler transport.ServerHandleFunc
	closed  bool
}

func (s *stubTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	s.handler = handler
}

func (s *stubTransport) Listen(common.ServerConfig) error { return nil }

func (s *stubTransport) Close() error {
	s.closed = true
	return nil
}

func newTestServer(t *testing.T, st store.IStore) (*RPCServer, *stubTransport) {
	t.Helper()
	tr := &stubTransport{}
	s := NewRPCServer(common.ServerConfig{Endpoint: "test", TimeoutSecond: 5, LogLevel: "info"}, st, tr, serializer.NewBinarySerializer())
	require.NotNil(t, tr.handler)
	return s, tr
}

func TestHandleRoundTrip(t *testing.T) {
	s, tr := newTestServer(t, memstore.NewStore())
	ser := serializer.NewBinarySerializer()

	req, err := ser.Serialize(*common.NewSetRequest("/app1/name", []byte("dconf"), 0))
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, ser.Deserialize(tr.handler(req), &resp))
	assert.Equal(t, common.MsgTKVSet, resp.MsgType)
	assert.NoError(t, resp.AsError())

	var out strings.Builder
	s.Metrics().WritePrometheus(&out)
	assert.Contains(t, out.String(), `dconf_rpc_requests_total{op="set"} 1`)
}

func TestHandleMalformedRequest(t *testing.T) {
	s, _ := newTestServer(t, memstore.NewStore())

	var resp common.Message
	require.NoError(t, serializer.NewBinarySerializer().Deserialize(s.Handle([]byte{1}), &resp))
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, store.RetCInvalidOperation, store.CodeOf(resp.AsError()))
}

func TestCloseClosesTransportAndStore(t *testing.T) {
	st := memstore.NewStore()
	s, tr := newTestServer(t, st)

	require.NoError(t, s.Close())
	assert.True(t, tr.closed)
	_, _, err := st.Get(context.Background(), "/a")
	assert.Equal(t, store.RetCUnavailable, store.CodeOf(err))
}

func TestTransportByName(t *testing.T) {
	for _, name := range []string{common.TransportHTTP, common.TransportTCP, common.TransportUnix} {
		newTransport, err := TransportByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, newTransport())
	}
	_, err := TransportByName("quic")
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}
