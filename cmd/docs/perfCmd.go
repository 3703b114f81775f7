package docs

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vellumdb/vellum/cmd/util"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for vellum servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfBodySizeKB = 1
	perfNumThreads = 10
	perfOpsPerTest = 1000
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,load)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per benchmark"))
	key = "body-size"
	perfTestCmd.Flags().Int(key, 1, util.WrapString("Size of the document body for the put tests (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different identifiers to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfBodySizeKB = viper.GetInt("body-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerTest = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for vellum servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Ops per test: %d\n", perfNumThreads, perfOpsPerTest)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := gometrics.NewRegistry()
	body := document.Body(make([]byte, perfBodySizeKB*1024))

	runBenchmark(registry, "put", func(id string) error {
		_, err := rpcExec.SubmitBatch([]executor.Command{{
			Kind: executor.CommandPut,
			ID:   id,
			Body: body,
		}})
		return err
	})

	runBenchmark(registry, "load", func(id string) error {
		_, _, err := rpcExec.Load(id)
		return err
	})

	runBenchmark(registry, "has", func(id string) error {
		_, err := rpcExec.Has(id)
		return err
	})

	runBenchmark(registry, "reserve", func(string) error {
		_, err := rpcReserver.ReserveRange(perfKeyPrefix, util.GetRangeCapacity())
		return err
	})

	runBenchmark(registry, "delete", func(id string) error {
		_, err := rpcExec.SubmitBatch([]executor.Command{{
			Kind: executor.CommandDelete,
			ID:   id,
		}})
		return err
	})

	// Print all results
	fmt.Println()
	registry.Each(func(name string, metric interface{}) {
		if timer, ok := metric.(gometrics.Timer); ok {
			printResult(name, timer)
		}
	})

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs one operation perfOpsPerTest times across
// perfNumThreads goroutines and records the latencies in a timer
func runBenchmark(registry gometrics.Registry, name string, op func(id string) error) {
	if shouldSkip(name) {
		fmt.Printf("%-20sskipped\n", name)
		return
	}

	timer := gometrics.GetOrRegisterTimer(name, registry)

	var wg sync.WaitGroup
	opsPerThread := perfOpsPerTest / perfNumThreads
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := 0; i < opsPerThread; i++ {
				id := fmt.Sprintf("%s/%s-%d", perfKeyPrefix, name, (thread*opsPerThread+i)%perfKeySpread)
				timer.Time(func() {
					if err := op(id); err != nil {
						log.Printf("(%s) - operation failed: %v\n", name, err)
					}
				})
			}
		}(t)
	}
	wg.Wait()
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer gometrics.Timer) {
	if timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	mean := time.Duration(timer.Mean())
	p99 := time.Duration(timer.Percentile(0.99))
	opsPerSec := float64(time.Second) / float64(timer.Mean())

	fmt.Printf("%-20s%s/op (p99 %s)\t%.0f ops/sec\n", test, mean, p99, opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Endpoints", "ShardID", "Serializer", "Transport",
		"Threads", "BodySizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()
	var writeErr error
	registry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(gometrics.Timer)
		if !ok || writeErr != nil {
			return
		}

		row := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", timer.Percentile(0.5)),
			fmt.Sprintf("%.0f", timer.Percentile(0.99)),
			fmt.Sprintf("%.0f", float64(time.Second)/timer.Mean()),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfBodySizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			writeErr = fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	})

	return writeErr
}
