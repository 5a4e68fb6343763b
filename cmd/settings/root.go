package settings

import (
	"context"
	"fmt"
	"os"

	"github.com/ValentinKolb/dConf/cmd/util"
	"github.com/ValentinKolb/dConf/lib/failover"
	libsettings "github.com/ValentinKolb/dConf/lib/settings"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/spf13/cobra"
)

var (
	dispatcher   *failover.Dispatcher
	clientConfig *common.ClientConfig

	// SettingsCommands represents the settings command group
	SettingsCommands = &cobra.Command{
		Use:                "settings",
		Short:              "Read the settings of a namespace through the refreshing cache",
		PersistentPreRunE:  setupSettingsClient,
		PersistentPostRunE: closeSettingsClient,
	}
)

func init() {
	util.SetupClientFlags(SettingsCommands)

	SettingsCommands.AddCommand(dumpCmd)
	SettingsCommands.AddCommand(watchCmd)
	SettingsCommands.AddCommand(benchCmd)

	dumpCmd.Flags().Bool("json", false, util.WrapString("Print the settings as JSON"))
	watchCmd.Flags().String("metrics-endpoint", "", util.WrapString("Optional address on which /metrics is served while watching (e.g. localhost:9090)"))
}

func setupSettingsClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	d, err := util.NewDispatcher(clientConfig)
	if err != nil {
		return err
	}
	dispatcher = d
	return nil
}

func closeSettingsClient(_ *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return nil
	}
	return dispatcher.Close()
}

// openSettings loads the namespace through the dispatcher, extra options are applied last
func openSettings(ctx context.Context, extra ...libsettings.Option) (*libsettings.MutableSettings, error) {
	opts := append(util.SettingsOptions(clientConfig),
		libsettings.WithErrorHandler(libsettings.ErrorHandlerFunc(func(err error) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		})),
	)
	return libsettings.NewMutable(ctx, dispatcher, append(opts, extra...)...)
}
