package settings

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dConf/cmd/util"
	libsettings "github.com/ValentinKolb/dConf/lib/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	benchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Measures cached reads, uncached reads, write-through and refresh",
		Args:    cobra.NoArgs,
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchKeyPrefix  = "__bench"
	benchNumThreads = 10
	benchKeySpread  = 100
	benchSkip       []string
)

func init() {
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,refresh)"))
	key = "threads"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different settings to use for the tests"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(_ *cobra.Command, _ []string) error {
	benchKeySpread = viper.GetInt("keys")
	benchNumThreads = viper.GetInt("threads")
	benchSkip = util.SplitList(viper.GetString("skip"))
	if benchKeySpread <= 0 || benchNumThreads <= 0 {
		return fmt.Errorf("keys and threads must be positive")
	}
	return nil
}

// benchCase is one named benchmark, op is called with a running counter
type benchCase struct {
	name string
	op   func(ctx context.Context, i int) error
}

func runBench(_ *cobra.Command, _ []string) error {
	fmt.Println("Benchmark of the dConf settings client")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	ctx, cancel := util.CommandContext(clientConfig)
	s, err := openSettings(ctx, libsettings.WithRequireInitialLoad())
	cancel()
	if err != nil {
		return err
	}
	defer s.Close()

	live, err := libsettings.NewLive(dispatcher, util.SettingsOptions(clientConfig)...)
	if err != nil {
		return err
	}

	// prepare keys
	keys := make([]string, benchKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", benchKeyPrefix, i)
	}
	key := func(i int) string { return keys[i%len(keys)] }

	for _, k := range keys {
		ctx, cancel := util.CommandContext(clientConfig)
		err := s.SetString(ctx, k, "test")
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", k, err)
		}
	}
	defer func() {
		for _, k := range keys {
			ctx, cancel := util.CommandContext(clientConfig)
			_ = s.Clear(ctx, k)
			cancel()
		}
	}()

	cases := []benchCase{
		{"cached-get", func(_ context.Context, i int) error {
			if _, ok := s.GetString(key(i)); !ok {
				return fmt.Errorf("%s not found", key(i))
			}
			return nil
		}},
		{"live-get", func(ctx context.Context, i int) error {
			_, _, err := live.GetString(ctx, key(i))
			return err
		}},
		{"set", func(ctx context.Context, i int) error {
			return s.SetString(ctx, key(i), strconv.Itoa(i))
		}},
		{"refresh", func(ctx context.Context, _ int) error {
			return s.Refresh(ctx)
		}},
	}

	fmt.Println("starting tests...")
	results := make(map[string]testing.BenchmarkResult)
	for _, c := range cases {
		if slices.Contains(benchSkip, c.name) {
			printResult(c.name, testing.BenchmarkResult{})
			continue
		}
		results[c.name] = testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(benchNumThreads)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					ctx, cancel := util.CommandContext(clientConfig)
					if err := c.op(ctx, counter); err != nil {
						fmt.Fprintf(os.Stderr, "(%s) - %v\n", c.name, err)
					}
					cancel()
					counter++
				}
			})
		})
		printResult(c.name, results[c.name])
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

// opsPerSec converts a benchmark result, zero means skipped
func opsPerSec(result testing.BenchmarkResult) (nsPerOp, perSec float64) {
	if result.N == 0 {
		return 0, 0
	}
	nsPerOp = max(float64(result.T.Nanoseconds())/float64(result.N), 1)
	return nsPerOp, 1e9 / nsPerOp
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	nsPerOp, perSec := opsPerSec(result)
	if nsPerOp == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), perSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"Backend", "Endpoints", "TimeoutSec", "MaxRetries", "Namespace",
		"Serializer", "Transport", "Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, test := range names {
		nsPerOp, perSec := opsPerSec(results[test])
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", perSec),
			clientConfig.Backend,
			strings.Join(clientConfig.Endpoints, ";"),
			strconv.Itoa(clientConfig.TimeoutSecond),
			strconv.Itoa(clientConfig.MaxRetries),
			clientConfig.Namespace,
			clientConfig.Transport.Serializer,
			clientConfig.Transport.Type,
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
