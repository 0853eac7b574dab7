package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/fusaka"
	"github.com/SteelyNinja/rocketpool-performance/internal/perf"
	"github.com/SteelyNinja/rocketpool-performance/internal/report"
	"github.com/SteelyNinja/rocketpool-performance/internal/resolver"
	"github.com/SteelyNinja/rocketpool-performance/internal/scan"
	chstore "github.com/SteelyNinja/rocketpool-performance/internal/storage/clickhouse"
)

func main() {
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN, comma-separated for failover (required)")
	scanFile := flag.String("scan-file", "rocketpool_scan_results.json", "Node scan results file")
	fusakaFile := flag.String("fusaka-file", "", "Fusaka death tracker file (optional)")
	periodName := flag.String("period", "7day", "Analysis window: 1day, 3day, 7day")
	thresholdArg := flag.String("threshold", "all", "Score cutoff: 80, 90, 95 or all")
	batchSize := flag.Int("batch-size", 1000, "Validators per store query")
	outputFile := flag.String("output", "", "Write the report here instead of stdout")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	var period report.Period
	found := false
	for _, p := range report.Periods {
		if p.Name == *periodName {
			period = p
			found = true
		}
	}
	if !found {
		logger.Fatalf("Invalid period: %s. Must be 1day, 3day or 7day", *periodName)
	}

	threshold, err := domain.ParseThreshold(*thresholdArg)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	nodes, err := scan.Load(*scanFile)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Loaded %d nodes from %s", len(nodes), *scanFile)

	var tracker *fusaka.Tracker
	if *fusakaFile != "" {
		tracker, err = fusaka.Load(*fusakaFile)
		if err != nil {
			logger.Fatal(err)
		}
		logger.Printf("Death tracker: %d entries", tracker.Count())
	}

	rotation, err := chstore.NewRotation(strings.Split(*clickhouseDSN, ","))
	if err != nil {
		logger.Fatal(err)
	}
	conn, err := chstore.Connect(ctx, rotation)
	if err != nil {
		logger.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer conn.Close()

	store := chstore.NewSummaryStore(conn)
	gen := report.New(
		resolver.New(store).WithBatchSize(*batchSize),
		perf.New(store).WithBatchSize(*batchSize),
		"",
	)

	result, err := gen.RunSingle(ctx, nodes, tracker, period, threshold)
	if err != nil {
		logger.Fatalf("Report failed: %v", err)
	}
	logger.Printf("Scored %d nodes over epochs %d-%d", result.TotalNodes, result.StartEpoch, result.EndEpoch)

	if tracker != nil {
		if err := tracker.Save(); err != nil {
			logger.Fatalf("Failed to save death tracker: %v", err)
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal(err)
	}
	if *outputFile == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
		logger.Fatalf("Failed to write %s: %v", *outputFile, err)
	}
	logger.Printf("Report written to %s", *outputFile)
}
