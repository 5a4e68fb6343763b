package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/ValentinKolb/dConf/cmd/util"
	libsettings "github.com/ValentinKolb/dConf/lib/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Loads the namespace once and prints all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.CommandContext(clientConfig)
			defer cancel()

			s, err := openSettings(ctx, libsettings.WithRequireInitialLoad())
			if err != nil {
				return err
			}
			defer s.Close()

			pairs := s.Export()
			if viper.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pairs)
			}
			for _, key := range s.AllKeys() {
				fmt.Printf("%s=%s\n", key, pairs[key])
			}
			return nil
		},
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Keeps the settings refreshed and prints every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loadCtx, cancel := util.CommandContext(clientConfig)
			s, err := openSettings(loadCtx)
			cancel()
			if err != nil {
				return err
			}
			defer s.Close()

			if addr := viper.GetString("metrics-endpoint"); addr != "" {
				metricsServer := util.ServeMetrics(addr, s.Metrics(), dispatcher.Metrics())
				defer metricsServer.Close()
			}

			fmt.Printf("watching %s (%d keys), refresh every %s\n", s.Namespace(), len(s.AllKeys()), clientConfig.RefreshInterval)
			return watch(ctx, s.Settings, max(clientConfig.RefreshInterval/2, 100*time.Millisecond), func(c change) {
				fmt.Printf("%s %s\n", time.Now().Format(time.TimeOnly), c)
			})
		},
	}
)

// change is one difference between two snapshots
type change struct {
	Key      string
	Old, New string
	Kind     byte // '+' added, '-' removed, '~' modified
}

func (c change) String() string {
	switch c.Kind {
	case '+':
		return fmt.Sprintf("+ %s=%s", c.Key, c.New)
	case '-':
		return fmt.Sprintf("- %s", c.Key)
	default:
		return fmt.Sprintf("~ %s=%s (was %s)", c.Key, c.New, c.Old)
	}
}

// diff returns the changes from before to after, sorted by key
func diff(before, after map[string]string) []change {
	var changes []change
	for key, value := range after {
		old, ok := before[key]
		switch {
		case !ok:
			changes = append(changes, change{Key: key, New: value, Kind: '+'})
		case old != value:
			changes = append(changes, change{Key: key, Old: old, New: value, Kind: '~'})
		}
	}
	for key, old := range before {
		if _, ok := after[key]; !ok {
			changes = append(changes, change{Key: key, Old: old, Kind: '-'})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// watch polls the snapshot of s every interval and reports the changes of every newly
// published snapshot until ctx is done
func watch(ctx context.Context, s *libsettings.Settings, interval time.Duration, report func(change)) error {
	last := s.Snapshot()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := s.Snapshot()
			if current == last {
				continue
			}
			for _, c := range diff(last.Export(), current.Export()) {
				report(c)
			}
			last = current
		}
	}
}
