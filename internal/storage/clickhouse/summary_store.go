package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
)

// defaultQueryTimeout bounds every store query; a timed-out batch is treated
// by callers as a failed batch, never retried within the run.
const defaultQueryTimeout = 2 * time.Minute

// SummaryStore implements storage.SummaryStore using ClickHouse.
type SummaryStore struct {
	conn    *Conn
	timeout time.Duration
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn, timeout: defaultQueryTimeout}
}

// WithTimeout overrides the per-query timeout.
func (s *SummaryStore) WithTimeout(d time.Duration) *SummaryStore {
	s.timeout = d
	return s
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

func (s *SummaryStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// LatestEpoch returns the newest epoch present in validators_summary.
func (s *SummaryStore) LatestEpoch(ctx context.Context) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var count uint64
	var latest int64
	row := s.conn.QueryRow(ctx, `SELECT count(), max(epoch) FROM validators_summary`)
	if err := row.Scan(&count, &latest); err != nil {
		return 0, fmt.Errorf("query latest epoch: %w", err)
	}
	if count == 0 {
		return 0, storage.ErrNoData
	}
	return latest, nil
}

// Retention returns the epoch range currently retained by the store.
func (s *SummaryStore) Retention(ctx context.Context) (domain.Retention, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var count uint64
	var oldest, newest int64
	row := s.conn.QueryRow(ctx, `SELECT count(), min(epoch), max(epoch) FROM validators_summary`)
	if err := row.Scan(&count, &oldest, &newest); err != nil {
		return domain.Retention{}, fmt.Errorf("query retention: %w", err)
	}
	if count == 0 {
		return domain.Retention{}, storage.ErrNoData
	}
	return domain.Retention{
		OldestEpoch: oldest,
		NewestEpoch: newest,
		TotalDays:   (newest - oldest) / beacon.EpochsPerDay,
	}, nil
}

// ResolveIndex maps public keys (hex, no 0x prefix) to internal val_ids.
func (s *SummaryStore) ResolveIndex(ctx context.Context, pubkeys []string) (map[string]int64, error) {
	if len(pubkeys) == 0 {
		return map[string]int64{}, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	// The index stores pubkeys with the 0x prefix.
	prefixed := make([]string, len(pubkeys))
	for i, pk := range pubkeys {
		prefixed[i] = "0x" + pk
	}

	rows, err := s.conn.Query(ctx, `
		SELECT val_id, val_pubkey
		FROM validators_index
		WHERE val_pubkey IN (?)
	`, prefixed)
	if err != nil {
		return nil, fmt.Errorf("query validator index: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var valID int64
		var pubkey string
		if err := rows.Scan(&valID, &pubkey); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		result[strings.TrimPrefix(pubkey, "0x")] = valID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}
	return result, nil
}

// StatusesAt returns lifecycle statuses for the given validators at an epoch.
func (s *SummaryStore) StatusesAt(ctx context.Context, valIDs []int64, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	if len(valIDs) == 0 {
		return map[int64]domain.ValidatorStatus{}, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, `
		SELECT val_id, val_status
		FROM validators_summary
		WHERE val_id IN (?) AND epoch = ?
	`, valIDs, epoch)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

// AllStatusesAt returns every validator's status at the given epoch.
func (s *SummaryStore) AllStatusesAt(ctx context.Context, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, `
		SELECT val_id, val_status
		FROM validators_summary
		WHERE epoch = ?
	`, epoch)
	if err != nil {
		return nil, fmt.Errorf("query all statuses: %w", err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

func scanStatuses(rows rowScanner) (map[int64]domain.ValidatorStatus, error) {
	result := make(map[int64]domain.ValidatorStatus)
	for rows.Next() {
		var valID int64
		var status string
		if err := rows.Scan(&valID, &status); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		result[valID] = domain.ValidatorStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}
	return result, nil
}

// WindowAggregates sums the window for the given validators, capturing
// balances at endEpoch. One aggregate query per batch; PREWHERE prunes the
// epoch range before the val_id filter.
func (s *SummaryStore) WindowAggregates(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	if len(valIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, `
		SELECT
			val_id,
			sum(ifNull(att_earned_reward, 0)) AS total_earned,
			sum(ifNull(att_missed_reward, 0)) AS total_missed,
			sum(ifNull(att_penalty, 0)) AS total_penalties,
			count() AS total_epochs,
			countIf(att_happened = 1) AS successful_attestations,
			max(if(att_happened = 1, toNullable(epoch), NULL)) AS last_attestation_epoch,
			maxIf(val_balance, epoch = ?) AS val_balance,
			maxIf(val_effective_balance, epoch = ?) AS val_effective_balance
		FROM validators_summary
		PREWHERE epoch >= ? AND epoch <= ?
		WHERE val_id IN (?)
		GROUP BY val_id
	`, endEpoch, endEpoch, startEpoch, endEpoch, valIDs)
	if err != nil {
		return nil, fmt.Errorf("query window aggregates: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// NetworkAggregates aggregates every validator over the window with a
// whole-table GROUP BY; Balance carries the window maximum. The caller
// filters the result down to its own roster.
func (s *SummaryStore) NetworkAggregates(ctx context.Context, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, `
		SELECT
			val_id,
			sum(ifNull(att_earned_reward, 0)) AS total_earned,
			sum(ifNull(att_missed_reward, 0)) AS total_missed,
			sum(ifNull(att_penalty, 0)) AS total_penalties,
			count() AS total_epochs,
			countIf(att_happened = 1) AS successful_attestations,
			max(if(att_happened = 1, toNullable(epoch), NULL)) AS last_attestation_epoch,
			max(val_balance) AS val_balance,
			max(val_effective_balance) AS val_effective_balance
		FROM validators_summary
		WHERE epoch >= ? AND epoch <= ?
		GROUP BY val_id
	`, startEpoch, endEpoch)
	if err != nil {
		return nil, fmt.Errorf("query network aggregates: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// LastAttestations performs the extended history search over
// [startEpoch, endEpoch].
func (s *SummaryStore) LastAttestations(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) (map[int64]*int64, error) {
	if len(valIDs) == 0 {
		return map[int64]*int64{}, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, `
		SELECT
			val_id,
			max(if(att_happened = 1, toNullable(epoch), NULL)) AS last_attestation_epoch
		FROM validators_summary
		PREWHERE epoch >= ? AND epoch <= ?
		WHERE val_id IN (?)
		GROUP BY val_id
	`, startEpoch, endEpoch, valIDs)
	if err != nil {
		return nil, fmt.Errorf("query last attestations: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*int64)
	for rows.Next() {
		var valID int64
		var epoch *int64
		if err := rows.Scan(&valID, &epoch); err != nil {
			return nil, fmt.Errorf("scan last attestation row: %w", err)
		}
		result[valID] = epoch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last attestation rows: %w", err)
	}
	return result, nil
}

// rowScanner is the subset of driver.Rows the scan helpers need.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAggregates(rows rowScanner) ([]domain.WindowAggregate, error) {
	var aggregates []domain.WindowAggregate
	for rows.Next() {
		var (
			a           domain.WindowAggregate
			totalEpochs uint64
			successful  uint64
		)
		err := rows.Scan(
			&a.ValID,
			&a.TotalEarned,
			&a.TotalMissed,
			&a.TotalPenalties,
			&totalEpochs,
			&successful,
			&a.LastAttestationEpoch,
			&a.Balance,
			&a.EffectiveBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		a.TotalEpochs = int64(totalEpochs)
		a.SuccessfulAttestations = int64(successful)
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return aggregates, nil
}
