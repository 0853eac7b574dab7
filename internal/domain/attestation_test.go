package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
)

func TestFoundAttestation(t *testing.T) {
	a := FoundAttestation(1000, 1003)

	if !a.Found() {
		t.Fatal("expected Found() descriptor")
	}
	if a.Epoch == nil || *a.Epoch != 1000 {
		t.Fatalf("epoch = %v, want 1000", a.Epoch)
	}
	if a.AgeEpochs == nil || *a.AgeEpochs != 3 {
		t.Fatalf("age = %v, want 3", a.AgeEpochs)
	}
	if want := beacon.GenesisTimestamp + 1000*beacon.SecondsPerEpoch; *a.Timestamp != want {
		t.Errorf("timestamp = %d, want %d", *a.Timestamp, want)
	}
	if a.StatusLabel() != "found" {
		t.Errorf("label = %q, want found", a.StatusLabel())
	}
}

func TestOlderThanLabel(t *testing.T) {
	a := OlderThanAttestation(45)

	if a.Found() {
		t.Fatal("older_than descriptor must not report Found()")
	}
	if a.Epoch != nil {
		t.Fatal("older_than descriptor must carry a nil epoch")
	}
	if got := a.StatusLabel(); got != "older_than_45_days" {
		t.Errorf("label = %q, want older_than_45_days", got)
	}
}

func TestFusakaAttestationPinned(t *testing.T) {
	age := int64(7)
	a := FusakaAttestation(&age)

	if *a.Epoch != beacon.FusakaEpoch {
		t.Errorf("epoch = %d, want %d", *a.Epoch, beacon.FusakaEpoch)
	}
	if *a.DateTime != beacon.FusakaDateTime {
		t.Errorf("datetime = %q, want %q", *a.DateTime, beacon.FusakaDateTime)
	}
	if *a.AgeEpochs != 7 {
		t.Errorf("age = %d, want 7", *a.AgeEpochs)
	}
}

func TestAttestationJSON(t *testing.T) {
	data, err := json.Marshal(ExtendedAttestation(500, 600))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"status":"found_extended"`) {
		t.Errorf("missing found_extended status: %s", s)
	}
	if !strings.Contains(s, `"epoch":500`) {
		t.Errorf("missing epoch: %s", s)
	}

	data, err = json.Marshal(OlderThanAttestation(119))
	if err != nil {
		t.Fatal(err)
	}
	s = string(data)
	if !strings.Contains(s, `"status":"older_than_119_days"`) {
		t.Errorf("missing older_than label: %s", s)
	}
	if !strings.Contains(s, `"epoch":null`) {
		t.Errorf("epoch should render null: %s", s)
	}
}
