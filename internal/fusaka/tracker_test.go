package fusaka

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	tracker, err := Load(filepath.Join(t.TempDir(), "deaths.json"))
	if err != nil {
		t.Fatal(err)
	}
	if tracker.Count() != 0 {
		t.Fatalf("expected empty tracker, got %d entries", tracker.Count())
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaths.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed tracker file")
	}
}

func TestApply_UntrackedPassesThrough(t *testing.T) {
	tracker, _ := Load(filepath.Join(t.TempDir(), "deaths.json"))

	computed := domain.OlderThanAttestation(45)
	if got := tracker.Apply("0xNode", computed); got.Status != domain.AttestationOlderThan {
		t.Fatalf("untracked node must keep its descriptor, got %s", got.Status)
	}
}

func TestApply_TrackedOverrides(t *testing.T) {
	tracker, _ := Load(filepath.Join(t.TempDir(), "deaths.json"))
	tracker.Record("0xDead")

	age := int64(2000)
	computed := domain.LastAttestation{Status: domain.AttestationOlderThan, OlderThanDays: 7, AgeEpochs: &age}
	got := tracker.Apply("0xDead", computed)
	if got.Status != domain.AttestationFusakaDeath {
		t.Fatalf("expected fork override, got %s", got.Status)
	}
	if got.Epoch == nil || *got.Epoch != beacon.FusakaEpoch {
		t.Fatalf("descriptor not pinned at the fork epoch: %+v", got)
	}
	// The run's computed age rides along on the pinned descriptor.
	if got.AgeEpochs == nil || *got.AgeEpochs != 2000 {
		t.Fatalf("unexpected age: %+v", got)
	}
	if tracker.RemovedCount() != 0 {
		t.Fatal("no recovery expected")
	}
}

func TestApply_PreForkAttestationStaysDead(t *testing.T) {
	tracker, _ := Load(filepath.Join(t.TempDir(), "deaths.json"))
	tracker.Record("0xDead")

	// An old attestation surfaced by the extended search is not a recovery.
	computed := domain.ExtendedAttestation(beacon.FusakaEpoch-100, beacon.FusakaEpoch+500)
	got := tracker.Apply("0xDead", computed)
	if got.Status != domain.AttestationFusakaDeath {
		t.Fatalf("pre-fork attestation must not recover the node, got %s", got.Status)
	}
	if !tracker.Contains("0xDead") {
		t.Fatal("node must stay tracked")
	}
}

func TestApply_PostForkAttestationRecovers(t *testing.T) {
	tracker, _ := Load(filepath.Join(t.TempDir(), "deaths.json"))
	tracker.Record("0xDead")

	computed := domain.FoundAttestation(beacon.FusakaEpoch+10, beacon.FusakaEpoch+12)
	got := tracker.Apply("0xDead", computed)
	if got.Status != domain.AttestationFound {
		t.Fatalf("post-fork attestation must pass through, got %s", got.Status)
	}
	if tracker.Contains("0xDead") {
		t.Fatal("recovered node must be removed from the tracker")
	}
	if tracker.RemovedCount() != 1 {
		t.Fatalf("expected 1 recovery, got %d", tracker.RemovedCount())
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaths.json")
	tracker, _ := Load(path)
	tracker.WithClock(func() time.Time {
		return time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	})
	tracker.Record("0xBeta")
	tracker.Record("0xAlpha")

	if err := tracker.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var file domain.FusakaDeathFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatal(err)
	}
	if file.TotalCount != 2 || len(file.Validators) != 2 {
		t.Fatalf("unexpected persisted file: %+v", file)
	}
	// Entries are sorted for stable diffs.
	if file.Validators[0].NodeAddress != "0xAlpha" {
		t.Fatalf("entries not sorted: %+v", file.Validators)
	}
	if file.LastUpdated != "2026-01-15T08:30:00" {
		t.Fatalf("unexpected last_updated: %s", file.LastUpdated)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Contains("0xAlpha") || !reloaded.Contains("0xBeta") {
		t.Fatal("round-trip lost entries")
	}
}
