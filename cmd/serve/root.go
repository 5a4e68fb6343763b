package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/dConf/cmd/util"
	"github.com/ValentinKolb/dConf/lib/ident"
	"github.com/ValentinKolb/dConf/lib/store/memstore"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/ValentinKolb/dConf/rpc/serializer"
	"github.com/ValentinKolb/dConf/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start an in-memory dConf server",
		Long: `Start an in-memory dConf server for local development. Clients connect with --backend=rpc.
The configuration can be set via command line flags or environment variables. The format of the
environment variables is DCONF_<flag> (e.g. DCONF_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", util.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/dconf.sock, ...)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, util.WrapString("Timeout of a single request in seconds"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, util.WrapString("Concurrent requests per client connection (tcp and unix only)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", util.WrapString("Optional address on which /metrics is served (e.g. localhost:9090)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	transportConf := common.DefaultTransportConf()
	transportConf.Type = viper.GetString("transport")
	transportConf.Serializer = viper.GetString("serializer")
	transportConf.WorkersPerConn = viper.GetInt("workers-per-conn")

	*serveCmdConfig = common.ServerConfig{
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt64("timeout"),
		Transport:     transportConf,
		LogLevel:      viper.GetString("log-level"),
		InstanceID:    ident.New().Short(),
	}
	return serveCmdConfig.Validate()
}

// run starts the server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := serializer.ByName(serveCmdConfig.Transport.Serializer)
	if err != nil {
		return err
	}
	newTransport, err := server.TransportByName(serveCmdConfig.Transport.Type)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, memstore.NewStore(), newTransport(), s)

	if addr := viper.GetString("metrics-endpoint"); addr != "" {
		metricsServer := util.ServeMetrics(addr, serv.Metrics())
		defer metricsServer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- serv.Serve() }()

	select {
	case err := <-done:
		// the transport failed before a signal arrived
		_ = serv.Close()
		return err
	case <-ctx.Done():
		fmt.Println("shutting down")
		closeErr := serv.Close()
		if err := <-done; err != nil {
			return err
		}
		return closeErr
	}
}
