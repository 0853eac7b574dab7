package storage

import (
	"context"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
)

// InstrumentedStore wraps a SummaryStore and records per-operation query
// durations and errors.
type InstrumentedStore struct {
	inner   SummaryStore
	metrics *observability.Metrics
}

var _ SummaryStore = (*InstrumentedStore)(nil)

// WithMetrics decorates a SummaryStore with query metrics. A nil metrics
// value still works; every query is simply passed through.
func WithMetrics(inner SummaryStore, m *observability.Metrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: m}
}

func (s *InstrumentedStore) LatestEpoch(ctx context.Context) (int64, error) {
	start := time.Now()
	epoch, err := s.inner.LatestEpoch(ctx)
	s.metrics.RecordQuery("latest_epoch", time.Since(start).Seconds(), err)
	return epoch, err
}

func (s *InstrumentedStore) Retention(ctx context.Context) (domain.Retention, error) {
	start := time.Now()
	retention, err := s.inner.Retention(ctx)
	s.metrics.RecordQuery("retention", time.Since(start).Seconds(), err)
	return retention, err
}

func (s *InstrumentedStore) ResolveIndex(ctx context.Context, pubkeys []string) (map[string]int64, error) {
	start := time.Now()
	index, err := s.inner.ResolveIndex(ctx, pubkeys)
	s.metrics.RecordQuery("resolve_index", time.Since(start).Seconds(), err)
	return index, err
}

func (s *InstrumentedStore) StatusesAt(ctx context.Context, valIDs []int64, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	start := time.Now()
	statuses, err := s.inner.StatusesAt(ctx, valIDs, epoch)
	s.metrics.RecordQuery("statuses_at", time.Since(start).Seconds(), err)
	return statuses, err
}

func (s *InstrumentedStore) AllStatusesAt(ctx context.Context, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	start := time.Now()
	statuses, err := s.inner.AllStatusesAt(ctx, epoch)
	s.metrics.RecordQuery("all_statuses_at", time.Since(start).Seconds(), err)
	return statuses, err
}

func (s *InstrumentedStore) WindowAggregates(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	start := time.Now()
	aggs, err := s.inner.WindowAggregates(ctx, valIDs, startEpoch, endEpoch)
	s.metrics.RecordQuery("window_aggregates", time.Since(start).Seconds(), err)
	return aggs, err
}

func (s *InstrumentedStore) LastAttestations(ctx context.Context, valIDs []int64, startEpoch, endEpoch int64) (map[int64]*int64, error) {
	start := time.Now()
	last, err := s.inner.LastAttestations(ctx, valIDs, startEpoch, endEpoch)
	s.metrics.RecordQuery("last_attestations", time.Since(start).Seconds(), err)
	return last, err
}

func (s *InstrumentedStore) NetworkAggregates(ctx context.Context, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	start := time.Now()
	aggs, err := s.inner.NetworkAggregates(ctx, startEpoch, endEpoch)
	s.metrics.RecordQuery("network_aggregates", time.Since(start).Seconds(), err)
	return aggs, err
}
