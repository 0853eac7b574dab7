package storage

import (
	"context"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

// SummaryStore provides read-only access to the time-series store's
// validators_summary table and its validators_index pubkey mapping. The
// engine never writes to this store.
//
// Callers are responsible for batching: the val_id slices passed in should
// already respect the store's query-size limits.
type SummaryStore interface {
	// LatestEpoch returns the newest epoch present in validators_summary.
	// Returns ErrNoData when the table is empty.
	LatestEpoch(ctx context.Context) (int64, error)

	// Retention returns the epoch range currently retained by the store.
	Retention(ctx context.Context) (domain.Retention, error)

	// ResolveIndex maps public keys (hex, no 0x prefix) to internal val_ids.
	// Keys absent from the index are simply missing from the result.
	ResolveIndex(ctx context.Context, pubkeys []string) (map[string]int64, error)

	// StatusesAt returns the lifecycle status of the given validators at the
	// given epoch. Validators with no row at that epoch are absent.
	StatusesAt(ctx context.Context, valIDs []int64, epoch int64) (map[int64]domain.ValidatorStatus, error)

	// AllStatusesAt returns every validator's status at the given epoch.
	AllStatusesAt(ctx context.Context, epoch int64) (map[int64]domain.ValidatorStatus, error)

	// WindowAggregates sums rewards, penalties and attestation counts over
	// [startEpoch, endEpoch] for the given validators, capturing balances at
	// endEpoch. Validators with no rows in the window are absent.
	WindowAggregates(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error)

	// LastAttestations returns, per validator, the newest epoch in
	// [startEpoch, endEpoch] with a successful attestation, or nil when the
	// validator has rows but no success in the range. Validators with no
	// rows at all are absent.
	LastAttestations(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) (map[int64]*int64, error)

	// NetworkAggregates aggregates every validator in the store over the
	// window (whole-table GROUP BY); the caller filters to its roster.
	// Balance carries the maximum observed balance in the window.
	NetworkAggregates(ctx context.Context, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error)
}
