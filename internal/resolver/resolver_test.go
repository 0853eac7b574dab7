package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage"
	"github.com/SteelyNinja/rocketpool-performance/internal/storage/memory"
)

func TestResolveStatuses(t *testing.T) {
	store := memory.NewSummaryStore()
	store.Index("aa", 1)
	store.Index("bb", 2)
	store.AddRows(
		memory.Row{ValID: 1, Epoch: 100, Status: domain.StatusActiveOngoing},
		memory.Row{ValID: 2, Epoch: 100, Status: domain.StatusExitedUnslashed},
	)

	validators := []domain.Validator{
		{PubKey: "aa", NodeAddress: "0xNodeA", MinipoolAddress: "0xMiniA"},
		{PubKey: "bb", NodeAddress: "0xNodeA"},
		{PubKey: "cc", NodeAddress: "0xNodeB"},
	}

	statuses, latest, err := New(store).ResolveStatuses(context.Background(), validators)
	if err != nil {
		t.Fatal(err)
	}
	if latest != 100 {
		t.Fatalf("expected latest epoch 100, got %d", latest)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected an entry per roster validator, got %d", len(statuses))
	}

	a := statuses["aa"]
	if a.Status != domain.StatusActiveOngoing || a.ValID == nil || *a.ValID != 1 {
		t.Fatalf("unexpected status for aa: %+v", a)
	}
	if a.NodeAddress != "0xNodeA" || a.MinipoolAddress != "0xMiniA" {
		t.Fatalf("roster fields not carried: %+v", a)
	}

	if statuses["bb"].Status != domain.StatusExitedUnslashed {
		t.Fatalf("unexpected status for bb: %+v", statuses["bb"])
	}

	// Unindexed pubkey gets not_in_database with no id.
	c := statuses["cc"]
	if c.Status != domain.StatusNotInDatabase || c.ValID != nil {
		t.Fatalf("unexpected status for cc: %+v", c)
	}
}

func TestResolveStatuses_EmptyStore(t *testing.T) {
	store := memory.NewSummaryStore()
	_, _, err := New(store).ResolveStatuses(context.Background(), []domain.Validator{{PubKey: "aa"}})
	if !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestResolveStatuses_IndexedWithoutStatusRow(t *testing.T) {
	store := memory.NewSummaryStore()
	store.Index("aa", 1)
	store.AddRows(memory.Row{ValID: 2, Epoch: 100, Status: domain.StatusActiveOngoing})

	statuses, _, err := New(store).ResolveStatuses(context.Background(), []domain.Validator{{PubKey: "aa"}})
	if err != nil {
		t.Fatal(err)
	}
	a := statuses["aa"]
	if a.Status != domain.StatusUnknown {
		t.Fatalf("expected unknown status, got %s", a.Status)
	}
	if a.ValID == nil || *a.ValID != 1 {
		t.Fatalf("expected resolved id even without a status row: %+v", a)
	}
}

func TestResolveStatuses_Batched(t *testing.T) {
	store := memory.NewSummaryStore()
	validators := make([]domain.Validator, 5)
	for i := range validators {
		pk := string(rune('a' + i))
		validators[i] = domain.Validator{PubKey: pk}
		store.Index(pk, int64(i+1))
		store.AddRows(memory.Row{ValID: int64(i + 1), Epoch: 50, Status: domain.StatusActiveExiting})
	}

	statuses, _, err := New(store).WithBatchSize(2).ResolveStatuses(context.Background(), validators)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range validators {
		if statuses[v.PubKey].Status != domain.StatusActiveExiting {
			t.Fatalf("validator %s not resolved across batches: %+v", v.PubKey, statuses[v.PubKey])
		}
	}
}

func TestFilterActive(t *testing.T) {
	id1, id2, id3 := int64(1), int64(2), int64(3)
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": {ValID: &id1, Status: domain.StatusActiveOngoing},
		"bb": {ValID: &id2, Status: domain.StatusActiveExiting},
		"cc": {ValID: &id3, Status: domain.StatusActiveSlashed},
		"dd": {Status: domain.StatusNotInDatabase},
		"ee": {ValID: &id1, Status: domain.StatusExitedUnslashed},
	}
	validators := []domain.Validator{
		{PubKey: "aa"}, {PubKey: "bb"}, {PubKey: "cc"}, {PubKey: "dd"}, {PubKey: "ee"},
	}

	active := FilterActive(validators, statuses)
	if len(active) != 2 {
		t.Fatalf("expected 2 scorable validators, got %d", len(active))
	}
	if active[0].PubKey != "aa" || active[0].ValID != 1 {
		t.Fatalf("unexpected first active: %+v", active[0])
	}
	if active[1].PubKey != "bb" || active[1].ValID != 2 {
		t.Fatalf("unexpected second active: %+v", active[1])
	}
}
