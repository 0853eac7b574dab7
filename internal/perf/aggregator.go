// Package perf computes per-validator attestation performance over an epoch
// window, including the extended history search for silent validators.
package perf

import (
	"context"
	"fmt"
	"log"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
)

// DefaultBatchSize bounds validator id lists per store query.
const DefaultBatchSize = 1000

// fallbackOlderThanDays is reported when the store has no usable retention
// depth to measure silence against.
const fallbackOlderThanDays = 10

// Aggregator computes window performance from the summary store.
type Aggregator struct {
	store     storage.SummaryStore
	batchSize int
	metrics   *observability.Metrics
}

// New creates an Aggregator with the default batch size.
func New(store storage.SummaryStore) *Aggregator {
	return &Aggregator{store: store, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides the per-query batch size.
func (a *Aggregator) WithBatchSize(n int) *Aggregator {
	if n > 0 {
		a.batchSize = n
	}
	return a
}

// WithMetrics attaches metrics.
func (a *Aggregator) WithMetrics(m *observability.Metrics) *Aggregator {
	a.metrics = m
	return a
}

// Result is one window's computed performance for a validator set.
type Result struct {
	Performance []domain.ValidatorPerformance
	StartEpoch  int64
	EndEpoch    int64
	Retention   domain.Retention
}

// Aggregate computes performance for the given validators over the last
// epochsToAnalyze epochs ending at latestEpoch. Only validators with rows
// inside the window appear in the result: a failed batch drops its whole
// slice (logged, never retried in-run), and validators the store has no
// window rows for are absent too, so downstream accounting counts both as
// inactive rather than fabricating zero scores. Validators present but with
// no successful attestation are preset to zero and sent through the
// extended history search so the report can still say when they last
// attested.
func (a *Aggregator) Aggregate(ctx context.Context, validators []domain.Validator, latestEpoch, epochsToAnalyze int64) (Result, error) {
	retention, err := a.store.Retention(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("determine retention: %w", err)
	}

	endEpoch := latestEpoch
	startEpoch := endEpoch - epochsToAnalyze + 1

	byID := make(map[int64]domain.WindowAggregate, len(validators))
	valIDs := make([]int64, 0, len(validators))
	for _, v := range validators {
		valIDs = append(valIDs, v.ValID)
	}
	for start := 0; start < len(valIDs); start += a.batchSize {
		end := min(start+a.batchSize, len(valIDs))
		batch, err := a.store.WindowAggregates(ctx, valIDs[start:end], startEpoch, endEpoch)
		if err != nil {
			log.Printf("perf: aggregate batch %d-%d failed: %v", start, end, err)
			a.metrics.RecordBatch(true)
			continue
		}
		a.metrics.RecordBatch(false)
		for _, agg := range batch {
			byID[agg.ValID] = agg
		}
	}

	// Validators silent inside the window get a second pass over the rest of
	// the retained history, bounded below by what the store still holds.
	var silent []int64
	for _, id := range valIDs {
		if agg, ok := byID[id]; ok && agg.LastAttestationEpoch == nil {
			silent = append(silent, id)
		}
	}
	history := a.searchHistory(ctx, silent, retention.OldestEpoch, startEpoch-1)

	olderThanDays := retention.TotalDays
	if olderThanDays <= 0 {
		olderThanDays = fallbackOlderThanDays
	}

	performance := make([]domain.ValidatorPerformance, 0, len(byID))
	for _, v := range validators {
		agg, ok := byID[v.ValID]
		if !ok {
			continue
		}

		perf := domain.ValidatorPerformance{
			ValID:           v.ValID,
			NodeAddress:     v.NodeAddress,
			MinipoolAddress: v.MinipoolAddress,
			PubKey:          v.PubKey,

			TotalEarned:            agg.TotalEarned,
			TotalMissed:            agg.TotalMissed,
			TotalPenalties:         agg.TotalPenalties,
			TotalPossible:          agg.TotalEarned + agg.TotalMissed,
			TotalLost:              agg.TotalMissed + agg.TotalPenalties,
			TotalEpochs:            agg.TotalEpochs,
			SuccessfulAttestations: agg.SuccessfulAttestations,

			Balance:             agg.Balance,
			EffectiveBalance:    agg.EffectiveBalance,
			BalanceETH:          domain.GweiToETH(agg.Balance),
			EffectiveBalanceETH: domain.GweiToETH(agg.EffectiveBalance),
		}

		if agg.LastAttestationEpoch != nil {
			perf.LastAttestation = domain.FoundAttestation(*agg.LastAttestationEpoch, endEpoch)
		} else {
			perf.PresetZero = true
			a.metrics.RecordPresetZero()
			if epoch, ok := history[v.ValID]; ok && epoch != nil {
				perf.LastAttestation = domain.ExtendedAttestation(*epoch, retention.NewestEpoch)
			} else {
				// Rows in the window, but no successful attestation anywhere
				// in retained history.
				perf.LastAttestation = domain.OlderThanAttestation(olderThanDays)
			}
		}

		performance = append(performance, perf)
	}

	return Result{
		Performance: performance,
		StartEpoch:  startEpoch,
		EndEpoch:    endEpoch,
		Retention:   retention,
	}, nil
}

// searchHistory looks up the last successful attestation before the window
// for the given validators. Returns an empty map when the range is empty.
func (a *Aggregator) searchHistory(ctx context.Context, valIDs []int64, oldestEpoch, searchEnd int64) map[int64]*int64 {
	result := make(map[int64]*int64)
	if len(valIDs) == 0 || searchEnd < oldestEpoch {
		return result
	}

	for start := 0; start < len(valIDs); start += a.batchSize {
		end := min(start+a.batchSize, len(valIDs))
		batch, err := a.store.LastAttestations(ctx, valIDs[start:end], oldestEpoch, searchEnd)
		if err != nil {
			log.Printf("perf: history batch %d-%d failed: %v", start, end, err)
			continue
		}
		a.metrics.RecordExtendedSearch()
		for id, epoch := range batch {
			result[id] = epoch
		}
	}
	return result
}
