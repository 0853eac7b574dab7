package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/fusaka"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/perf"
	"github.com/SteelyNinja/rocketpool-performance/internal/report"
	"github.com/SteelyNinja/rocketpool-performance/internal/resolver"
	"github.com/SteelyNinja/rocketpool-performance/internal/scan"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
	chstore "github.com/SteelyNinja/rocketpool-performance/internal/storage/clickhouse"
)

func main() {
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN, comma-separated for failover (required)")
	scanFile := flag.String("scan-file", "rocketpool_scan_results.json", "Node scan results file")
	fusakaFile := flag.String("fusaka-file", "fusaka_death_validators.json", "Fusaka death tracker file")
	outputDir := flag.String("output-dir", "reports", "Directory for report artifacts")
	batchSize := flag.Int("batch-size", 1000, "Validators per store query")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address, e.g. :9090 (optional)")

	flag.Parse()

	logger := log.New(os.Stderr, "[multireport] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
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

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		go func() {
			logger.Printf("Metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, observability.Handler()); err != nil {
				logger.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	nodes, err := scan.Load(*scanFile)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Loaded %d nodes from %s", len(nodes), *scanFile)

	tracker, err := fusaka.Load(*fusakaFile)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Death tracker: %d entries", tracker.Count())

	rotation, err := chstore.NewRotation(strings.Split(*clickhouseDSN, ","))
	if err != nil {
		logger.Fatal(err)
	}
	conn, err := chstore.Connect(ctx, rotation)
	if err != nil {
		logger.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer conn.Close()

	store := storage.WithMetrics(chstore.NewSummaryStore(conn), metrics)
	gen := report.New(
		resolver.New(store).WithBatchSize(*batchSize).WithMetrics(metrics),
		perf.New(store).WithBatchSize(*batchSize).WithMetrics(metrics),
		*outputDir,
	).WithMetrics(metrics)

	summary, err := gen.RunAll(ctx, nodes, tracker)
	if err != nil {
		logger.Fatalf("Report generation failed: %v", err)
	}

	if err := tracker.Save(); err != nil {
		logger.Fatalf("Failed to save death tracker: %v", err)
	}
	metrics.FusakaDeathsActive.Set(float64(tracker.Count()))
	if tracker.RemovedCount() > 0 {
		logger.Printf("%d nodes recovered and left the death tracker", tracker.RemovedCount())
	}

	metrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	logger.Printf("Wrote %d reports to %s", summary.TotalReports, *outputDir)
}
