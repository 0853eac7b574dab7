// Package report runs the full pipeline for one or many (period, threshold)
// pairs and writes the JSON artifacts the frontend consumes.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/fusaka"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/perf"
	"github.com/SteelyNinja/rocketpool-performance/internal/resolver"
	"github.com/SteelyNinja/rocketpool-performance/internal/rollup"
	"github.com/SteelyNinja/rocketpool-performance/internal/scan"
)

// Period is one named analysis window.
type Period struct {
	Name   string
	Epochs int64
}

// Periods are the standard analysis windows, shortest first.
var Periods = []Period{
	{Name: "1day", Epochs: 225},
	{Name: "3day", Epochs: 675},
	{Name: "7day", Epochs: 1575},
}

// Thresholds are the standard report cutoffs.
var Thresholds = []domain.Threshold{
	domain.ThresholdBelow(80),
	domain.ThresholdBelow(90),
	domain.ThresholdBelow(95),
	domain.ThresholdAll(),
}

// Generator drives resolve, aggregate, rollup and serialization.
type Generator struct {
	resolver   *resolver.Resolver
	aggregator *perf.Aggregator
	outputDir  string
	metrics    *observability.Metrics
	clock      func() time.Time
}

// New creates a Generator writing under outputDir.
func New(res *resolver.Resolver, agg *perf.Aggregator, outputDir string) *Generator {
	return &Generator{
		resolver:   res,
		aggregator: agg,
		outputDir:  outputDir,
		clock:      time.Now,
	}
}

// WithMetrics attaches metrics.
func (g *Generator) WithMetrics(m *observability.Metrics) *Generator {
	g.metrics = m
	return g
}

// WithClock overrides the wall clock, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.clock = now
	return g
}

// RunSingle generates one report for the given window and threshold.
func (g *Generator) RunSingle(ctx context.Context, nodes []domain.ScanNode, tracker *fusaka.Tracker, period Period, threshold domain.Threshold) (domain.Report, error) {
	validators := scan.Validators(nodes)

	statuses, latest, err := g.resolver.ResolveStatuses(ctx, validators)
	if err != nil {
		return domain.Report{}, fmt.Errorf("resolve validators: %w", err)
	}
	active := resolver.FilterActive(validators, statuses)

	result, err := g.aggregator.Aggregate(ctx, active, latest, period.Epochs)
	if err != nil {
		return domain.Report{}, fmt.Errorf("aggregate %s window: %w", period.Name, err)
	}

	return g.buildReport(nodes, tracker, period, threshold, statuses, result), nil
}

// RunAll generates every (period, threshold) report plus summary.json. The
// expensive window aggregation runs once per period and is reused across
// thresholds. A failed period is logged and skipped; its reports are simply
// absent from the summary.
func (g *Generator) RunAll(ctx context.Context, nodes []domain.ScanNode, tracker *fusaka.Tracker) (domain.ReportSummary, error) {
	validators := scan.Validators(nodes)

	statuses, latest, err := g.resolver.ResolveStatuses(ctx, validators)
	if err != nil {
		return domain.ReportSummary{}, fmt.Errorf("resolve validators: %w", err)
	}
	active := resolver.FilterActive(validators, statuses)

	summary := domain.ReportSummary{
		GenerationDate: g.clock().UTC().Format("2006-01-02T15:04:05"),
		Thresholds:     Thresholds,
	}
	for _, p := range Periods {
		summary.Periods = append(summary.Periods, p.Name)
	}

	for _, period := range Periods {
		result, err := g.aggregator.Aggregate(ctx, active, latest, period.Epochs)
		if err != nil {
			log.Printf("report: %s window failed, skipping period: %v", period.Name, err)
			continue
		}

		for _, threshold := range Thresholds {
			report := g.buildReport(nodes, tracker, period, threshold, statuses, result)
			filename, err := g.write(report)
			if err != nil {
				return domain.ReportSummary{}, err
			}
			g.metrics.RecordReport(period.Name, threshold.String())

			summary.Reports = append(summary.Reports, domain.ReportEntry{
				Period:    period.Name,
				Threshold: threshold,
				Filename:  filename,
				NodeCount: report.TotalNodes,
			})
		}
	}
	summary.TotalReports = len(summary.Reports)

	if err := g.writeSummary(summary); err != nil {
		return domain.ReportSummary{}, err
	}
	return summary, nil
}

// buildReport rolls one computed window up under one threshold.
func (g *Generator) buildReport(nodes []domain.ScanNode, tracker *fusaka.Tracker, period Period, threshold domain.Threshold, statuses map[string]domain.ValidatorStatusInfo, result perf.Result) domain.Report {
	var deathTracker rollup.DeathTracker
	if tracker != nil {
		deathTracker = tracker
	}

	scores := rollup.Calculate(rollup.Input{
		Performance: result.Performance,
		Statuses:    statuses,
		ScanNodes:   nodes,
		Tracker:     deathTracker,
	})
	rollup.SortByScore(scores)
	scores = rollup.FilterByThreshold(scores, threshold)

	// Every scored validator appears here, zero balances included.
	balances := make(map[string]domain.ValidatorBalance, len(result.Performance))
	for _, p := range result.Performance {
		balances[p.PubKey] = domain.ValidatorBalance{
			ValID:               p.ValID,
			BalanceETH:          p.BalanceETH,
			EffectiveBalanceETH: p.EffectiveBalanceETH,
		}
	}

	return domain.Report{
		AnalysisDate:   g.clock().UTC().Format("2006-01-02T15:04:05"),
		Period:         period.Name,
		Threshold:      threshold,
		EpochsAnalyzed: period.Epochs,
		StartEpoch:     result.StartEpoch,
		EndEpoch:       result.EndEpoch,
		TotalNodes:     len(scores),
		NodeScores:     scores,
		Statuses:       statuses,
		Balances:       balances,
	}
}

// write persists one report as <outputDir>/<period>/performance_<threshold>.json
// and returns the path relative to the output directory.
func (g *Generator) write(report domain.Report) (string, error) {
	relative := filepath.Join(report.Period, fmt.Sprintf("performance_%s.json", report.Threshold.String()))
	path := filepath.Join(g.outputDir, relative)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return relative, nil
}

func (g *Generator) writeSummary(summary domain.ReportSummary) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return writeJSON(filepath.Join(g.outputDir, "summary.json"), summary)
}

// writeJSON writes atomically: temp file in the target directory, then
// rename, so a crashed run never leaves a half-written artifact.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
