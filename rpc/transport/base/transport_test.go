package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenerConnector serves an already opened listener and dials its address
type listenerConnector struct {
	listener net.Listener
}

func (c *listenerConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return c.listener, nil
}

func (c *listenerConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

func (c *listenerConnector) GetName() string { return "test" }

func (c *listenerConnector) UpgradeConnection(net.Conn, common.SocketConf) error { return nil }

// startServer starts a server transport with handler and returns its address
func startServer(t *testing.T, handler func([]byte) []byte) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	connector := &listenerConnector{listener: listener}
	server := NewBaseServerTransport(connector, 1024)
	server.RegisterHandler(handler)

	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{
			Endpoint:      listener.Addr().String(),
			TimeoutSecond: 5,
			Transport:     common.DefaultTransportConf(),
		})
	}()
	t.Cleanup(func() {
		require.NoError(t, server.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return listener.Addr().String()
}

func connect(t *testing.T, endpoint string, connections int) *clientTransport {
	t.Helper()
	config := common.ClientConfig{TimeoutSecond: 5, Transport: common.DefaultTransportConf()}
	config.Transport.ConnectionsPerEndpoint = connections

	client := NewBaseClientTransport(&listenerConnector{}).(*clientTransport)
	require.NoError(t, client.Connect(endpoint, config))
	t.Cleanup(func() { client.Close() })
	return client
}

func upper(req []byte) []byte {
	return bytes.ToUpper(req)
}

func TestSendReceive(t *testing.T) {
	client := connect(t, startServer(t, upper), 1)

	resp, err := client.Send(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(resp))

	// empty requests are valid frames
	resp, err = client.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	client := connect(t, startServer(t, upper), 3)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("request-%d", i)
			resp, err := client.Send(context.Background(), []byte(msg))
			if assert.NoError(t, err) {
				assert.Equal(t, bytes.ToUpper([]byte(msg)), resp)
			}
		}(i)
	}
	wg.Wait()
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := connect(t, startServer(t, func(req []byte) []byte {
		<-release
		return req
	}), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Send(ctx, []byte("slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReconnectAfterBrokenConnection(t *testing.T) {
	client := connect(t, startServer(t, upper), 1)

	c := client.connections[0]
	c.mu.Lock()
	broken := c.current
	c.mu.Unlock()
	require.NotNil(t, broken)
	broken.Close()

	// the reader notices the broken connection, the next request reconnects
	require.Eventually(t, func() bool {
		resp, err := client.Send(context.Background(), []byte("again"))
		return err == nil && string(resp) == "AGAIN"
	}, 5*time.Second, 10*time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.NotSame(t, broken, c.current)
}

func TestConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := NewBaseClientTransport(&listenerConnector{})
	err = client.Connect(endpoint, common.ClientConfig{TimeoutSecond: 1})
	assert.Error(t, err)

	assert.Error(t, client.Connect("", common.ClientConfig{TimeoutSecond: 1}))
}

func TestSendAfterClose(t *testing.T) {
	client := connect(t, startServer(t, upper), 2)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Send(context.Background(), []byte("x"))
	assert.True(t, errors.Is(err, ErrTransportClosed))
}

func TestReadFrameLimit(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		// header announcing a payload above the limit
		header := []byte{0, 0, 0, 0, 0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff}
		client.Write(header)
	}()
	_, _, err := readFrame(server, nil)
	assert.Error(t, err)
}
