// Package memory provides an in-memory SummaryStore backed by raw per-epoch
// rows, used by unit tests in place of ClickHouse.
package memory

import (
	"context"
	"sync"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
)

// Row is one validator-epoch row of the summary table.
type Row struct {
	ValID            int64
	Epoch            int64
	Status           domain.ValidatorStatus
	AttHappened      bool
	EarnedReward     int64
	MissedReward     int64
	Penalty          int64
	Balance          int64 // gwei
	EffectiveBalance int64 // gwei
}

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu    sync.RWMutex
	rows  []Row
	index map[string]int64 // pubkey (no 0x) -> val_id
}

// NewSummaryStore creates an empty in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{index: make(map[string]int64)}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// AddRows appends summary rows.
func (s *SummaryStore) AddRows(rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Index registers a pubkey -> val_id mapping.
func (s *SummaryStore) Index(pubkey string, valID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[pubkey] = valID
}

// LatestEpoch returns the newest epoch present. ErrNoData when empty.
func (s *SummaryStore) LatestEpoch(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return 0, storage.ErrNoData
	}
	latest := s.rows[0].Epoch
	for _, r := range s.rows {
		if r.Epoch > latest {
			latest = r.Epoch
		}
	}
	return latest, nil
}

// Retention returns the stored epoch range.
func (s *SummaryStore) Retention(_ context.Context) (domain.Retention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return domain.Retention{}, storage.ErrNoData
	}
	oldest, newest := s.rows[0].Epoch, s.rows[0].Epoch
	for _, r := range s.rows {
		if r.Epoch < oldest {
			oldest = r.Epoch
		}
		if r.Epoch > newest {
			newest = r.Epoch
		}
	}
	return domain.Retention{
		OldestEpoch: oldest,
		NewestEpoch: newest,
		TotalDays:   (newest - oldest) / 225,
	}, nil
}

// ResolveIndex maps pubkeys to val_ids; unknown keys are omitted.
func (s *SummaryStore) ResolveIndex(_ context.Context, pubkeys []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, pk := range pubkeys {
		if id, ok := s.index[pk]; ok {
			result[pk] = id
		}
	}
	return result, nil
}

// StatusesAt returns statuses for the given validators at the given epoch.
func (s *SummaryStore) StatusesAt(_ context.Context, valIDs []int64, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(valIDs))
	for _, id := range valIDs {
		wanted[id] = struct{}{}
	}

	result := make(map[int64]domain.ValidatorStatus)
	for _, r := range s.rows {
		if r.Epoch != epoch {
			continue
		}
		if _, ok := wanted[r.ValID]; ok {
			result[r.ValID] = r.Status
		}
	}
	return result, nil
}

// AllStatusesAt returns every validator's status at the given epoch.
func (s *SummaryStore) AllStatusesAt(_ context.Context, epoch int64) (map[int64]domain.ValidatorStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]domain.ValidatorStatus)
	for _, r := range s.rows {
		if r.Epoch == epoch {
			result[r.ValID] = r.Status
		}
	}
	return result, nil
}

// WindowAggregates aggregates the window for the given validators.
func (s *SummaryStore) WindowAggregates(_ context.Context, valIDs []int64, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	wanted := make(map[int64]struct{}, len(valIDs))
	for _, id := range valIDs {
		wanted[id] = struct{}{}
	}
	return s.aggregate(startEpoch, endEpoch, func(id int64) bool {
		_, ok := wanted[id]
		return ok
	}, false), nil
}

// NetworkAggregates aggregates the window for every validator, with Balance
// carrying the window maximum.
func (s *SummaryStore) NetworkAggregates(_ context.Context, startEpoch, endEpoch int64) ([]domain.WindowAggregate, error) {
	return s.aggregate(startEpoch, endEpoch, func(int64) bool { return true }, true), nil
}

func (s *SummaryStore) aggregate(startEpoch, endEpoch int64, include func(int64) bool, maxBalance bool) []domain.WindowAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[int64]*domain.WindowAggregate)
	var order []int64

	for _, r := range s.rows {
		if r.Epoch < startEpoch || r.Epoch > endEpoch || !include(r.ValID) {
			continue
		}
		agg, ok := byID[r.ValID]
		if !ok {
			agg = &domain.WindowAggregate{ValID: r.ValID}
			byID[r.ValID] = agg
			order = append(order, r.ValID)
		}
		agg.TotalEarned += r.EarnedReward
		agg.TotalMissed += r.MissedReward
		agg.TotalPenalties += r.Penalty
		agg.TotalEpochs++
		if r.AttHappened {
			agg.SuccessfulAttestations++
			if agg.LastAttestationEpoch == nil || r.Epoch > *agg.LastAttestationEpoch {
				epoch := r.Epoch
				agg.LastAttestationEpoch = &epoch
			}
		}
		if maxBalance {
			if r.Balance > agg.Balance {
				agg.Balance = r.Balance
			}
		} else if r.Epoch == endEpoch {
			agg.Balance = r.Balance
			agg.EffectiveBalance = r.EffectiveBalance
		}
	}

	result := make([]domain.WindowAggregate, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result
}

// LastAttestations returns the newest successful attestation epoch in range
// per validator; nil epoch for validators with rows but no success.
func (s *SummaryStore) LastAttestations(_ context.Context, valIDs []int64, startEpoch, endEpoch int64) (map[int64]*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(valIDs))
	for _, id := range valIDs {
		wanted[id] = struct{}{}
	}

	result := make(map[int64]*int64)
	for _, r := range s.rows {
		if r.Epoch < startEpoch || r.Epoch > endEpoch {
			continue
		}
		if _, ok := wanted[r.ValID]; !ok {
			continue
		}
		cur, seen := result[r.ValID]
		if r.AttHappened && (!seen || cur == nil || r.Epoch > *cur) {
			epoch := r.Epoch
			result[r.ValID] = &epoch
		} else if !seen {
			result[r.ValID] = nil
		}
	}
	return result, nil
}
