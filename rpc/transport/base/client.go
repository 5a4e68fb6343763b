package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrTransportClosed is returned by Send after Close was called
var ErrTransportClosed = errors.New("transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.SocketConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// liveConn is one generation of a network connection together with the
// requests waiting for a response on it
type liveConn struct {
	net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
}

// clientConnection is a slot of the connection pool. The underlying network
// connection is (re-)established lazily by the next request after it broke.
type clientConnection struct {
	mu      sync.Mutex // Protects current and serializes writes
	current *liveConn
	parent  *clientTransport
	index   int
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	endpoint      string
	config        common.ClientConfig
	connections   []*clientConnection
	nextConnIndex atomic.Uint64 // Round Robin counter
	nextRequestID atomic.Uint64 // Unique request IDs
	closed        atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(endpoint string, config common.ClientConfig) error {
	if endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.endpoint = endpoint
	t.config = config

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)

	t.connections = make([]*clientConnection, connectionsPerEP)
	connected := 0
	var lastErr error
	for i := range t.connections {
		c := &clientConnection{parent: t, index: i}
		t.connections[i] = c

		c.mu.Lock()
		_, err := c.connectLocked()
		c.mu.Unlock()
		if err != nil {
			Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
			lastErr = err
			continue
		}
		connected++
	}

	// Check if we have at least one connection
	if connected == 0 {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, lastErr)
	}

	Logger.Infof("Connected to %s with %d/%d connections using %s transport",
		endpoint, connected, connectionsPerEP, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(ctx context.Context, req []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if len(t.connections) == 0 {
		return nil, fmt.Errorf("transport is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := t.nextRequestID.Add(1)
	timeout := t.config.Timeout()
	until := deadline(ctx, timeout)
	c := t.getNextConnection()

	// Register and write while holding the lock, so that a broken connection
	// can not be replaced between the two steps
	respCh := make(chan responseResult, 1)
	c.mu.Lock()
	lc, err := c.connectLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	lc.pending.Store(requestID, respCh)
	if err = lc.SetWriteDeadline(until); err == nil {
		err = writeFrame(lc, requestID, req)
	}
	c.mu.Unlock()

	if err != nil {
		lc.pending.Delete(requestID)
		c.drop(lc, err)
		return nil, fmt.Errorf("failed to send request to %s: %w", t.endpoint, err)
	}
	defer lc.pending.Delete(requestID)

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeoutCh:
		return nil, fmt.Errorf("request to %s timed out after %s", t.endpoint, timeout)
	}
}

func (t *clientTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	for _, c := range t.connections {
		c.mu.Lock()
		lc := c.current
		c.current = nil
		c.mu.Unlock()
		if lc != nil {
			lc.Close()
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	// optimize for single connection
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := t.nextConnIndex.Add(1) % uint64(len(t.connections))
	return t.connections[index]
}

// connectLocked returns the current connection, establishing a new one if needed.
// The caller must hold c.mu.
func (c *clientConnection) connectLocked() (*liveConn, error) {
	if c.parent.closed.Load() {
		return nil, ErrTransportClosed
	}
	if c.current != nil {
		return c.current, nil
	}

	t := c.parent
	conn, err := t.connector.Connect(t.endpoint, t.config.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, t.config.Transport.SocketConf); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", t.endpoint, err)
	}

	lc := &liveConn{
		Conn:    conn,
		pending: xsync.NewMapOf[uint64, chan responseResult](),
	}
	c.current = lc
	go c.readResponses(lc)

	Logger.Debugf("Opened connection %d to %s", c.index, t.endpoint)
	return lc, nil
}

// drop closes a broken connection and fails all requests waiting on it
func (c *clientConnection) drop(lc *liveConn, cause error) {
	c.mu.Lock()
	if c.current == lc {
		c.current = nil
	}
	c.mu.Unlock()
	lc.Close()

	// no new requests can be registered on lc anymore
	lc.pending.Range(func(requestID uint64, respCh chan responseResult) bool {
		select {
		case respCh <- responseResult{err: fmt.Errorf("connection to %s lost: %w", c.parent.endpoint, cause)}:
		default:
		}
		return true
	})
}

// readResponses reads responses in a loop and distributes them to waiting requests
func (c *clientConnection) readResponses(lc *liveConn) {
	for {
		requestID, data, err := readFrame(lc, nil)
		if err != nil {
			if !c.parent.closed.Load() && !errors.Is(err, net.ErrClosed) {
				Logger.Warningf("Connection %d to %s failed: %v", c.index, c.parent.endpoint, err)
			}
			c.drop(lc, err)
			return
		}

		// Find the corresponding request channel
		respCh, found := lc.pending.LoadAndDelete(requestID)
		if !found {
			// the request timed out or was canceled in the meantime
			Logger.Debugf("Received response for unknown request ID %d", requestID)
			continue
		}
		respCh <- responseResult{data: data}
	}
}
