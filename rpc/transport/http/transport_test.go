package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientConfig() common.ClientConfig {
	return common.ClientConfig{TimeoutSecond: 5, Transport: common.DefaultTransportConf()}
}

func connect(t *testing.T, endpoint string) *httpClientTransport {
	t.Helper()
	client := NewHttpClientTransport().(*httpClientTransport)
	require.NoError(t, client.Connect(endpoint, clientConfig()))
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSendReceive(t *testing.T) {
	server := httptest.NewServer(NewHandler(bytes.ToUpper, true))
	defer server.Close()

	client := connect(t, server.URL)
	resp, err := client.Send(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(resp))
}

func TestEndpointWithoutScheme(t *testing.T) {
	server := httptest.NewServer(NewHandler(bytes.ToUpper, false))
	defer server.Close()

	client := connect(t, strings.TrimPrefix(server.URL, "http://"))
	assert.Equal(t, server.URL+RPCPath, client.requestURL)

	resp, err := client.Send(context.Background(), []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(resp))
}

func TestInvalidEndpoint(t *testing.T) {
	client := NewHttpClientTransport()
	assert.Error(t, client.Connect("http://", clientConfig()))
}

func TestNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := connect(t, server.URL)
	_, err := client.Send(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOnlyPostIsRouted(t *testing.T) {
	server := httptest.NewServer(NewHandler(bytes.ToUpper, false))
	defer server.Close()

	resp, err := http.Get(server.URL + RPCPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(NewHandler(func(req []byte) []byte {
		<-release
		return req
	}, false))
	defer server.Close()
	defer close(release)

	client := connect(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Send(ctx, []byte("slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendWithoutConnect(t *testing.T) {
	_, err := NewHttpClientTransport().Send(context.Background(), nil)
	assert.Error(t, err)
}

func TestServerTransportClose(t *testing.T) {
	server := NewHttpServerTransport()
	assert.Error(t, server.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}), "no handler registered")

	server.RegisterHandler(bytes.ToUpper)
	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0", TimeoutSecond: 5})
	}()

	// Close may happen before or after the server started, Listen returns nil in both cases
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, server.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after Close")
	}
}
