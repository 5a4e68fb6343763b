package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ValentinKolb/dConf/lib/failover"
	"github.com/ValentinKolb/dConf/lib/health"
	"github.com/ValentinKolb/dConf/lib/ident"
	"github.com/ValentinKolb/dConf/lib/settings"
	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/lib/store/etcdstore"
	"github.com/ValentinKolb/dConf/rpc/client"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DCONF_ENDPOINTS)
	EnvPrefix = "dconf"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SplitList splits a comma separated list and drops empty entries
func SplitList(list string) []string {
	var result []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// SetupClientFlags adds the endpoint, failover and settings flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "backend"
	flags.String(key, common.BackendEtcd, WrapString("Store backend of the endpoints (etcd, rpc)"))

	key = "endpoints"
	flags.String(key, "localhost:2379", WrapString("Comma-separated list of endpoints. The first available endpoint is preferred, the others are used as fallback"))

	key = "timeout"
	flags.Int(key, 10, WrapString("The timeout in seconds of a single request"))

	key = "namespace"
	flags.String(key, settings.DefaultNamespace, WrapString("Key prefix of the settings"))

	key = "refresh-interval"
	flags.Duration(key, settings.DefaultRefreshInterval, WrapString("Time between two background refreshes of the settings"))

	key = "max-retries"
	flags.Int(key, health.DefaultMaxRetries, WrapString("Attempts per operation before the client gives up"))

	key = "max-fails"
	flags.Int(key, health.DefaultMaxFailsToDisable, WrapString("Failures within the fail window an endpoint may have before it is disabled"))

	key = "fail-window"
	flags.Duration(key, health.DefaultFailWindow, WrapString("Time a failure counts against an endpoint"))

	key = "username"
	flags.String(key, "", WrapString("etcd user (falls back to ETCD_USER)"))

	key = "password"
	flags.String(key, "", WrapString("etcd password (falls back to ETCD_PASSWORD)"))

	key = "transport-conn-per-endpoint"
	flags.Int(key, 1, WrapString("Simultaneous connections per endpoint (rpc backend, tcp and unix only)"))

	key = "transport-write-buffer"
	flags.Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	flags.Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	flags.Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	flags.Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	flags.Int(key, -1, WrapString("The linger time for the transport (in seconds, only for tcp, -1 = os default)"))
}

// InitConfig loads .env files and maps the flags to DCONF_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	transportConf := common.DefaultTransportConf()
	transportConf.Type = viper.GetString("transport")
	transportConf.Serializer = viper.GetString("serializer")
	transportConf.ConnectionsPerEndpoint = viper.GetInt("transport-conn-per-endpoint")
	transportConf.SocketConf = common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
	}

	conf := &common.ClientConfig{
		Backend:           viper.GetString("backend"),
		Endpoints:         SplitList(viper.GetString("endpoints")),
		TimeoutSecond:     viper.GetInt("timeout"),
		Namespace:         viper.GetString("namespace"),
		RefreshInterval:   viper.GetDuration("refresh-interval"),
		MaxRetries:        viper.GetInt("max-retries"),
		MaxFailsToDisable: viper.GetInt("max-fails"),
		FailWindow:        viper.GetDuration("fail-window"),
		Username:          viper.GetString("username"),
		Password:          viper.GetString("password"),
		Transport:         transportConf,
	}

	if conf.Backend == common.BackendEtcd {
		creds := etcdstore.Config{Username: conf.Username, Password: conf.Password}.WithEnvCredentials()
		conf.Username, conf.Password = creds.Username, creds.Password
	}
	return conf
}

// NewFactory returns the store factory of the configured backend
func NewFactory(config *common.ClientConfig) (store.Factory, error) {
	switch config.Backend {
	case common.BackendEtcd:
		cfg := etcdstore.DefaultConfig()
		cfg.RequestTimeout = config.Timeout()
		cfg.DialTimeout = min(cfg.DialTimeout, config.Timeout())
		cfg.Username = config.Username
		cfg.Password = config.Password
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return etcdstore.Factory(cfg), nil
	case common.BackendRPC:
		return client.FactoryFromConfig(*config)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", common.ErrInvalidConfig, config.Backend)
	}
}

// NewDispatcher validates the configuration and creates the failover dispatcher over its endpoints
func NewDispatcher(config *common.ClientConfig, opts ...failover.Option) (*failover.Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	factory, err := NewFactory(config)
	if err != nil {
		return nil, err
	}
	opts = append([]failover.Option{failover.WithInstance(ident.New().Short())}, opts...)
	return failover.New(config.Endpoints, config.Policy(), factory, opts...)
}

// SettingsOptions returns the settings options described by the configuration
func SettingsOptions(config *common.ClientConfig) []settings.Option {
	return []settings.Option{
		settings.WithNamespace(config.Namespace),
		settings.WithRefreshInterval(config.RefreshInterval),
		settings.WithRefreshTimeout(time.Duration(config.MaxRetries) * config.Timeout()),
	}
}

// CommandContext returns a context bounded by the worst case duration of one
// operation (every retry running into the timeout)
func CommandContext(config *common.ClientConfig) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(max(1, config.MaxRetries))*config.Timeout())
}

// ServeMetrics exposes the given sets and the process metrics under /metrics on addr.
// The returned server is already listening in the background.
func ServeMetrics(addr string, sets ...*metrics.Set) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
		for _, set := range sets {
			set.WritePrometheus(w)
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics endpoint %s failed: %v\n", addr, err)
		}
	}()
	return srv
}
