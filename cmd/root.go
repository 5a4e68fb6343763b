package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dConf/cmd/kv"
	"github.com/ValentinKolb/dConf/cmd/serve"
	"github.com/ValentinKolb/dConf/cmd/settings"
	"github.com/ValentinKolb/dConf/cmd/util"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dconf",
		Short: "resilient settings client for clustered key-value stores",
		Long: fmt.Sprintf(`dConf (v%s)

A client for clustered key-value coordination stores (etcd or dConf servers)
that fails over between endpoints and serves namespace settings from a
periodically refreshed local snapshot.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dConf",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dConf v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(settings.SettingsCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, common.SerializerBinary, util.WrapString("serializer of the rpc backend (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, common.TransportHTTP, util.WrapString("transport of the rpc backend (http, tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
