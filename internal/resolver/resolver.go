// Package resolver maps roster public keys to internal validator ids and
// current lifecycle statuses.
package resolver

import (
	"context"
	"fmt"
	"log"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/observability"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
)

// DefaultBatchSize bounds pubkey and id lists per store query.
const DefaultBatchSize = 1000

// Resolver resolves roster validators against the summary store.
type Resolver struct {
	store     storage.SummaryStore
	batchSize int
	metrics   *observability.Metrics
}

// New creates a Resolver with the default batch size.
func New(store storage.SummaryStore) *Resolver {
	return &Resolver{store: store, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides the per-query batch size.
func (r *Resolver) WithBatchSize(n int) *Resolver {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// WithMetrics attaches metrics.
func (r *Resolver) WithMetrics(m *observability.Metrics) *Resolver {
	r.metrics = m
	return r
}

// ResolveStatuses resolves every roster validator to its id and status at
// the newest stored epoch. Every input pubkey gets an entry: validators
// absent from the index are marked not_in_database with no id, which
// downstream accounting treats as exited. A failed batch is logged and
// skipped, leaving its validators unresolved. Returns the statuses keyed by
// bare-hex pubkey and the newest epoch used for the lookup.
func (r *Resolver) ResolveStatuses(ctx context.Context, validators []domain.Validator) (map[string]domain.ValidatorStatusInfo, int64, error) {
	latest, err := r.store.LatestEpoch(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("determine latest epoch: %w", err)
	}

	pubkeys := make([]string, 0, len(validators))
	for _, v := range validators {
		pubkeys = append(pubkeys, v.PubKey)
	}

	index := make(map[string]int64, len(pubkeys))
	for start := 0; start < len(pubkeys); start += r.batchSize {
		end := min(start+r.batchSize, len(pubkeys))
		batch, err := r.store.ResolveIndex(ctx, pubkeys[start:end])
		if err != nil {
			log.Printf("resolver: index batch %d-%d failed: %v", start, end, err)
			continue
		}
		for pk, id := range batch {
			index[pk] = id
		}
	}
	r.metrics.RecordResolution(len(index), len(pubkeys)-len(index))

	valIDs := make([]int64, 0, len(index))
	for _, id := range index {
		valIDs = append(valIDs, id)
	}

	statuses := make(map[int64]domain.ValidatorStatus, len(valIDs))
	for start := 0; start < len(valIDs); start += r.batchSize {
		end := min(start+r.batchSize, len(valIDs))
		batch, err := r.store.StatusesAt(ctx, valIDs[start:end], latest)
		if err != nil {
			log.Printf("resolver: status batch %d-%d failed: %v", start, end, err)
			if r.metrics != nil {
				r.metrics.StatusBatchesFailed.Inc()
			}
			continue
		}
		for id, status := range batch {
			statuses[id] = status
		}
	}

	result := make(map[string]domain.ValidatorStatusInfo, len(validators))
	for _, v := range validators {
		info := domain.ValidatorStatusInfo{
			Status:          domain.StatusNotInDatabase,
			NodeAddress:     v.NodeAddress,
			MinipoolAddress: v.MinipoolAddress,
		}
		if id, ok := index[v.PubKey]; ok {
			valID := id
			info.ValID = &valID
			if status, ok := statuses[id]; ok {
				info.Status = status
			} else {
				info.Status = domain.StatusUnknown
			}
		}
		result[v.PubKey] = info
	}
	return result, latest, nil
}

// FilterActive returns the validators eligible for performance scoring,
// with their resolved ids attached.
func FilterActive(validators []domain.Validator, statuses map[string]domain.ValidatorStatusInfo) []domain.Validator {
	var active []domain.Validator
	for _, v := range validators {
		info, ok := statuses[v.PubKey]
		if !ok || info.ValID == nil || !info.Status.ActiveForScoring() {
			continue
		}
		v.ValID = *info.ValID
		active = append(active, v)
	}
	return active
}
