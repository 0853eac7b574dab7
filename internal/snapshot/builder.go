// Package snapshot builds the daily network-health history: one metric set
// per calendar day, collected over a rolling 7-day window and persisted in
// a date-deduplicated JSON file.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/fusaka"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/scan"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
)

const (
	// DefaultPeriodEpochs is the rolling window: 7 days.
	DefaultPeriodEpochs = 7 * beacon.EpochsPerDay
	// DefaultThreshold is the underperformance cutoff in percent.
	DefaultThreshold = 80
	// BackfillDays bounds how far back a fresh history reaches.
	BackfillDays = 119

	historyDescription = "Daily Rocket Pool network performance snapshots"

	dateFormat      = "2006-01-02"
	timestampFormat = "2006-01-02T15:04:05"
)

// Builder collects daily snapshots into a history file.
type Builder struct {
	store        storage.SummaryStore
	historyPath  string
	tracker      *fusaka.Tracker
	periodEpochs int64
	threshold    float64
	batchSize    int
	metrics      *observability.Metrics
	clock        func() time.Time
}

// New creates a Builder with the standard window and cutoff.
func New(store storage.SummaryStore, historyPath string) *Builder {
	return &Builder{
		store:        store,
		historyPath:  historyPath,
		periodEpochs: DefaultPeriodEpochs,
		threshold:    DefaultThreshold,
		batchSize:    1000,
		clock:        time.Now,
	}
}

// WithTracker attaches the death tracker so snapshots can report the count.
func (b *Builder) WithTracker(t *fusaka.Tracker) *Builder {
	b.tracker = t
	return b
}

// WithMetrics attaches metrics.
func (b *Builder) WithMetrics(m *observability.Metrics) *Builder {
	b.metrics = m
	return b
}

// WithClock overrides the wall clock, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithWindow overrides the rolling window length.
func (b *Builder) WithWindow(epochs int64) *Builder {
	if epochs > 0 {
		b.periodEpochs = epochs
	}
	return b
}

// Run fills every missing date up to yesterday and saves the history.
// Returns how many snapshots were added. Dates whose data has not landed in
// the store yet are deferred to a later run, not failed.
func (b *Builder) Run(ctx context.Context, nodes []domain.ScanNode) (int, error) {
	history, err := LoadHistory(b.historyPath)
	if err != nil {
		return 0, err
	}

	roster, err := b.resolveRoster(ctx, nodes)
	if err != nil {
		return 0, err
	}

	target := b.clock().UTC().AddDate(0, 0, -1)
	dates := MissingDates(history, target)

	added := 0
	for _, date := range dates {
		snap, err := b.CollectForDate(ctx, roster, date)
		if err != nil {
			return added, fmt.Errorf("collect %s: %w", date.Format(dateFormat), err)
		}
		if snap == nil {
			log.Printf("snapshot: data for %s not available yet, deferring", date.Format(dateFormat))
			break
		}
		if !date.Equal(target) {
			snap.CollectionNote = "backfilled"
		}
		Append(history, *snap, b.clock().UTC())
		b.metrics.RecordSnapshot()
		added++
	}

	if added > 0 {
		if err := SaveHistory(b.historyPath, history); err != nil {
			return added, err
		}
	}
	return added, nil
}

// resolveRoster flattens the scan and resolves pubkeys to store ids,
// dropping validators the store has never indexed.
func (b *Builder) resolveRoster(ctx context.Context, nodes []domain.ScanNode) ([]domain.Validator, error) {
	validators := scan.Validators(nodes)

	pubkeys := make([]string, 0, len(validators))
	for _, v := range validators {
		pubkeys = append(pubkeys, v.PubKey)
	}

	index := make(map[string]int64, len(pubkeys))
	for start := 0; start < len(pubkeys); start += b.batchSize {
		end := min(start+b.batchSize, len(pubkeys))
		batch, err := b.store.ResolveIndex(ctx, pubkeys[start:end])
		if err != nil {
			return nil, fmt.Errorf("resolve roster: %w", err)
		}
		for pk, id := range batch {
			index[pk] = id
		}
	}

	roster := make([]domain.Validator, 0, len(validators))
	for _, v := range validators {
		id, ok := index[v.PubKey]
		if !ok {
			continue
		}
		v.ValID = id
		roster = append(roster, v)
	}
	return roster, nil
}

// CollectForDate computes one day's snapshot. Returns (nil, nil) when the
// store has not ingested that day's end-of-day epoch yet.
func (b *Builder) CollectForDate(ctx context.Context, roster []domain.Validator, date time.Time) (*domain.DailySnapshot, error) {
	latest, err := b.store.LatestEpoch(ctx)
	if err != nil {
		return nil, fmt.Errorf("determine latest epoch: %w", err)
	}

	endEpoch := beacon.EndOfDayEpoch(date)
	if endEpoch > latest {
		return nil, nil
	}
	startEpoch := endEpoch - b.periodEpochs + 1

	// One whole-table pass per day beats thousands of per-batch lookups at
	// this scale; CalculateMetrics filters down to the roster.
	statuses, err := b.store.AllStatusesAt(ctx, endEpoch)
	if err != nil {
		return nil, fmt.Errorf("statuses at %d: %w", endEpoch, err)
	}

	aggregates, err := b.store.NetworkAggregates(ctx, startEpoch, endEpoch)
	if err != nil {
		return nil, fmt.Errorf("network aggregates: %w", err)
	}

	deaths := 0
	if b.tracker != nil {
		deaths = b.tracker.Count()
	}

	metrics := CalculateMetrics(MetricsInput{
		Roster:         roster,
		Statuses:       statuses,
		Aggregates:     aggregates,
		FusakaDeaths:   deaths,
		Threshold:      b.threshold,
		StartEpoch:     startEpoch,
		EndEpoch:       endEpoch,
		EpochsAnalyzed: b.periodEpochs,
	})

	return &domain.DailySnapshot{
		Date:            date.UTC().Format(dateFormat),
		Timestamp:       b.clock().UTC().Format(timestampFormat),
		SnapshotMetrics: metrics,
	}, nil
}

// MissingDates lists the calendar days the history lacks, oldest first, up
// to and including target. A fresh history starts BackfillDays back.
func MissingDates(history *domain.SnapshotHistory, target time.Time) []time.Time {
	target = midnight(target)

	var start time.Time
	if len(history.Snapshots) == 0 {
		start = target.AddDate(0, 0, -BackfillDays)
	} else {
		last := history.Snapshots[len(history.Snapshots)-1].Date
		parsed, err := time.Parse(dateFormat, last)
		if err != nil {
			start = target.AddDate(0, 0, -BackfillDays)
		} else {
			start = parsed.AddDate(0, 0, 1)
		}
	}

	var dates []time.Time
	for d := start; !d.After(target); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LoadHistory reads the history file; a missing file is an empty history.
func LoadHistory(path string) (*domain.SnapshotHistory, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &domain.SnapshotHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot history %s: %w", path, err)
	}

	var history domain.SnapshotHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode snapshot history %s: %w", path, err)
	}
	return &history, nil
}

// Append inserts one snapshot, replacing any existing entry for the same
// date, and refreshes the metadata. Snapshots stay sorted by date.
func Append(history *domain.SnapshotHistory, snap domain.DailySnapshot, now time.Time) {
	replaced := false
	for i, existing := range history.Snapshots {
		if existing.Date == snap.Date {
			history.Snapshots[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		history.Snapshots = append(history.Snapshots, snap)
	}
	sort.Slice(history.Snapshots, func(i, j int) bool {
		return history.Snapshots[i].Date < history.Snapshots[j].Date
	})

	stamp := now.Format(timestampFormat)
	if history.Metadata.CreatedAt == "" {
		history.Metadata.CreatedAt = stamp
	}
	if history.Metadata.Description == "" {
		history.Metadata.Description = historyDescription
	}
	history.Metadata.LastUpdated = stamp
	history.Metadata.TotalSnapshots = len(history.Snapshots)
}

// SaveHistory writes atomically: temp file, then rename.
func SaveHistory(path string, history *domain.SnapshotHistory) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot history temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot history %s: %w", path, err)
	}
	return nil
}
