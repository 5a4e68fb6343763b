package kv

import (
	"github.com/ValentinKolb/dConf/cmd/util"
	"github.com/ValentinKolb/dConf/lib/failover"
	"github.com/ValentinKolb/dConf/rpc/common"
	"github.com/spf13/cobra"
)

var (
	dispatcher   *failover.Dispatcher
	clientConfig *common.ClientConfig

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations with failover between the endpoints",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(lsCmd)
	KeyValueCommands.AddCommand(statusCmd)

	setCmd.Flags().Duration("ttl", 0, util.WrapString("Time after which the key expires (0 = never)"))
	statusCmd.Flags().Int("probes", 1, util.WrapString("Number of reads sent through the pool before the status is printed"))
	statusCmd.Flags().Bool("json", false, util.WrapString("Print the status as JSON"))
}

// setupKVClient creates the failover dispatcher over the configured endpoints
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
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

func closeKVClient(_ *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return nil
	}
	return dispatcher.Close()
}
