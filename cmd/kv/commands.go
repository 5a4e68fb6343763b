package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ValentinKolb/dConf/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CommandContext(clientConfig)
			defer cancel()

			ttl := viper.GetDuration("ttl")
			if err := dispatcher.Set(ctx, args[0], args[1], ttl); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CommandContext(clientConfig)
			defer cancel()

			value, found, err := dispatcher.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], found, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CommandContext(clientConfig)
			defer cancel()

			if err := dispatcher.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	lsCmd = &cobra.Command{
		Use:   "ls [prefix]",
		Short: "Lists the direct children of a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CommandContext(clientConfig)
			defer cancel()

			prefix := "/"
			if len(args) == 1 {
				prefix = args[0]
			}
			nodes, err := dispatcher.ListChildren(ctx, prefix)
			if err != nil {
				return err
			}
			for _, node := range nodes {
				if node.Dir {
					fmt.Printf("%s/\n", node.Key)
				} else {
					fmt.Printf("%s=%s\n", node.Key, node.Value)
				}
			}
			return nil
		},
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Probes the endpoints and prints their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i := 0; i < viper.GetInt("probes"); i++ {
				ctx, cancel := util.CommandContext(clientConfig)
				_, _, err := dispatcher.Get(ctx, clientConfig.Namespace)
				cancel()
				if err != nil {
					fmt.Fprintf(os.Stderr, "probe %d failed: %v\n", i+1, err)
				}
			}

			status := dispatcher.Tracker().Status()
			if viper.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENDPOINT\tAVAILABLE\tFAILS\tLAST FAILURE\tSUCCESSES\tFAILURES\tDISABLED")
			for _, ep := range status {
				lastFailure := "-"
				if !ep.LastFailure.IsZero() {
					lastFailure = ep.LastFailure.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%d\t%d\t%d\n",
					ep.Name, ep.Available, ep.FailCount, lastFailure, ep.Successes, ep.Failures, ep.Disables)
			}
			return w.Flush()
		},
	}
)
