package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/fusaka"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/scan"
	"github.com/SteelyNinja/rocketpool-performance/internal/snapshot"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
	chstore "github.com/SteelyNinja/rocketpool-performance/internal/storage/clickhouse"
)

func main() {
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN, comma-separated for failover (required)")
	scanFile := flag.String("scan-file", "rocketpool_scan_results.json", "Node scan results file")
	fusakaFile := flag.String("fusaka-file", "", "Fusaka death tracker file (optional)")
	historyFile := flag.String("history-file", "daily_snapshots.json", "Snapshot history file")

	flag.Parse()

	logger := log.New(os.Stderr, "[snapshot] ", log.LstdFlags)

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

	metrics := observability.NewMetrics("")
	store := storage.WithMetrics(chstore.NewSummaryStore(conn), metrics)

	builder := snapshot.New(store, *historyFile).WithMetrics(metrics)
	if tracker != nil {
		builder = builder.WithTracker(tracker)
	}

	added, err := builder.Run(ctx, nodes)
	if err != nil {
		logger.Fatalf("Snapshot collection failed: %v", err)
	}
	if tracker != nil {
		metrics.FusakaDeathsActive.Set(float64(tracker.Count()))
	}
	metrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	logger.Printf("Added %d snapshots to %s", added, *historyFile)
}
