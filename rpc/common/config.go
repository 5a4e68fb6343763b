package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dConf/lib/health"
)

// ErrInvalidConfig is returned (wrapped) by the Validate methods
var ErrInvalidConfig = errors.New("invalid configuration")

// Supported store backends of the client
const (
	BackendEtcd = "etcd" // etcd v3 cluster (see lib/store/etcdstore)
	BackendRPC  = "rpc"  // dConf servers speaking the message protocol of this package
)

// Supported transports
const (
	TransportHTTP = "http"
	TransportTCP  = "tcp"
	TransportUnix = "unix"
)

// Supported serializers
const (
	SerializerBinary = "binary"
	SerializerJSON   = "json"
	SerializerGOB    = "gob"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// SocketConf holds the socket options applied to every stream connection (tcp, unix)
type SocketConf struct {
	WriteBufferSize int  // 0 = os default
	ReadBufferSize  int  // 0 = os default
	TCPNoDelay      bool // disable Nagle's algorithm
	TCPKeepAliveSec int  // 0 = disabled
	TCPLingerSec    int  // < 0 = os default
}

// TransportConf selects the transport and the message serializer
type TransportConf struct {
	Type       string // one of TransportHTTP, TransportTCP, TransportUnix
	Serializer string // one of SerializerBinary, SerializerJSON, SerializerGOB

	// client only
	ConnectionsPerEndpoint int

	// server only
	WorkersPerConn int

	SocketConf SocketConf
}

func (t *TransportConf) validate() error {
	switch t.Type {
	case TransportHTTP, TransportTCP, TransportUnix:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, t.Type)
	}
	switch t.Serializer {
	case SerializerBinary, SerializerJSON, SerializerGOB:
	default:
		return fmt.Errorf("%w: unknown serializer %q", ErrInvalidConfig, t.Serializer)
	}
	if t.ConnectionsPerEndpoint < 0 || t.WorkersPerConn < 0 {
		return fmt.Errorf("%w: connection and worker counts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultTransportConf returns the transport used when nothing else is configured
func DefaultTransportConf() TransportConf {
	return TransportConf{
		Type:                   TransportHTTP,
		Serializer:             SerializerBinary,
		ConnectionsPerEndpoint: 1,
		WorkersPerConn:         16,
		SocketConf: SocketConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a dConf development server.
type ServerConfig struct {
	// Endpoint the server listens on (host:port or socket path)
	Endpoint string

	// Per request timeout
	TimeoutSecond int64

	// Transport and serializer
	Transport TransportConf

	// Logging configuration
	LogLevel string

	// InstanceID identifies this server process in logs
	InstanceID string
}

// Validate checks the server configuration
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint must not be empty", ErrInvalidConfig)
	}
	if c.TimeoutSecond <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c.Transport.validate()
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := sectionPrinter(&sb)

	// RPC settings
	addSection("RPC Server")
	addField("Instance", c.InstanceID)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Transport")
	addField("Type", c.Transport.Type)
	addField("Serializer", c.Transport.Serializer)
	addField("Workers Per Conn", strconv.Itoa(max(1, c.Transport.WorkersPerConn)))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds everything a dConf client needs: the endpoint pool, the
// failover policy, the settings namespace and the backend specific options.
type ClientConfig struct {
	// Store backend, one of BackendEtcd, BackendRPC
	Backend string

	// Ordered endpoint list, the first available endpoint is preferred
	Endpoints     []string
	TimeoutSecond int

	// Settings cache
	Namespace       string
	RefreshInterval time.Duration

	// Failover policy
	MaxRetries        int
	MaxFailsToDisable int
	FailWindow        time.Duration

	// etcd credentials (both set or both empty)
	Username string
	Password string

	// RPC transport (only used by BackendRPC)
	Transport TransportConf
}

// Policy returns the failover policy described by the configuration
func (c *ClientConfig) Policy() health.Policy {
	return health.Policy{
		MaxRetries:        c.MaxRetries,
		MaxFailsToDisable: c.MaxFailsToDisable,
		FailWindow:        c.FailWindow,
	}
}

// Timeout returns the per request timeout
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks the client configuration. It never talks to the network.
func (c *ClientConfig) Validate() error {
	switch c.Backend {
	case BackendEtcd, BackendRPC:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("%w: no endpoints configured", ErrInvalidConfig)
	}
	for i, endpoint := range c.Endpoints {
		if strings.TrimSpace(endpoint) == "" {
			return fmt.Errorf("%w: endpoint %d is empty", ErrInvalidConfig, i)
		}
	}
	if c.TimeoutSecond <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", ErrInvalidConfig)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("%w: username and password must be set together", ErrInvalidConfig)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Backend == BackendRPC {
		return c.Transport.validate()
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := sectionPrinter(&sb)

	// General Client Settings
	addSection("Client Configuration")
	addField("Backend", c.Backend)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Namespace", c.Namespace)
	addField("Refresh Interval", c.RefreshInterval.String())
	if c.Username != "" {
		addField("Username", c.Username)
	}

	addSection("Failover")
	addField("Max Retries", strconv.Itoa(c.MaxRetries))
	addField("Max Fails To Disable", strconv.Itoa(c.MaxFailsToDisable))
	addField("Fail Window", c.FailWindow.String())

	if c.Backend == BackendRPC {
		addSection("Transport")
		addField("Type", c.Transport.Type)
		addField("Serializer", c.Transport.Serializer)
		addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	}

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// sectionPrinter returns helper functions for consistent formatting
func sectionPrinter(sb *strings.Builder) (addSection func(string), addField func(string, string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
	}
	return addSection, addField
}
