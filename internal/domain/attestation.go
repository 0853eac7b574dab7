package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SteelyNinja/rocketpool-performance/internal/beacon"
)

// AttestationStatus classifies how a last-attestation descriptor was
// established.
type AttestationStatus string

const (
	// AttestationFound: discovered inside the primary analysis window.
	AttestationFound AttestationStatus = "found"
	// AttestationFoundExtended: discovered only by the extended history search.
	AttestationFoundExtended AttestationStatus = "found_extended"
	// AttestationOlderThan: silent across the store's entire retention; the
	// day count lives in OlderThanDays and is rendered as older_than_N_days.
	AttestationOlderThan AttestationStatus = "older_than"
	// AttestationFusakaDeath: overridden by the persistent death tracker.
	AttestationFusakaDeath AttestationStatus = "fusaka_death"
	// AttestationNoData: no descriptor could be computed at all.
	AttestationNoData AttestationStatus = "no_data"
)

// LastAttestation describes a validator's (or node's) most recent successful
// attestation. Found and FoundExtended always carry a non-nil epoch; the
// other statuses never do.
type LastAttestation struct {
	Status        AttestationStatus
	Epoch         *int64
	Timestamp     *int64
	DateTime      *string
	AgeEpochs     *int64
	OlderThanDays int64 // meaningful only for AttestationOlderThan
}

// Found reports whether the descriptor carries a real attestation epoch.
func (a LastAttestation) Found() bool {
	return a.Status == AttestationFound || a.Status == AttestationFoundExtended
}

// StatusLabel renders the status string used in report artifacts, e.g.
// "found" or "older_than_45_days".
func (a LastAttestation) StatusLabel() string {
	if a.Status == AttestationOlderThan {
		return fmt.Sprintf("older_than_%d_days", a.OlderThanDays)
	}
	return string(a.Status)
}

// MarshalJSON renders the original artifact shape with the label-style status.
func (a LastAttestation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Epoch     *int64  `json:"epoch"`
		Timestamp *int64  `json:"timestamp"`
		DateTime  *string `json:"datetime"`
		AgeEpochs *int64  `json:"age_epochs"`
		Status    string  `json:"status"`
	}{a.Epoch, a.Timestamp, a.DateTime, a.AgeEpochs, a.StatusLabel()})
}

// FoundAttestation builds a descriptor for an attestation seen inside the
// primary window. Age is measured against referenceEpoch (the window end).
func FoundAttestation(epoch, referenceEpoch int64) LastAttestation {
	return foundDescriptor(AttestationFound, epoch, referenceEpoch)
}

// ExtendedAttestation builds a descriptor for an attestation found only by
// the extended history search. Age is measured against the store's newest
// epoch.
func ExtendedAttestation(epoch, newestEpoch int64) LastAttestation {
	return foundDescriptor(AttestationFoundExtended, epoch, newestEpoch)
}

func foundDescriptor(status AttestationStatus, epoch, referenceEpoch int64) LastAttestation {
	ts := beacon.EpochTimestamp(epoch)
	dt := time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05")
	age := referenceEpoch - epoch
	return LastAttestation{
		Status:    status,
		Epoch:     &epoch,
		Timestamp: &ts,
		DateTime:  &dt,
		AgeEpochs: &age,
	}
}

// OlderThanAttestation builds the "no signal within known history" descriptor.
// The day count communicates retention depth, not validator death.
func OlderThanAttestation(days int64) LastAttestation {
	return LastAttestation{Status: AttestationOlderThan, OlderThanDays: days}
}

// FusakaAttestation builds the fixed override descriptor pinned at the fork
// epoch. ageEpochs keeps the age computed for the current run, if any.
func FusakaAttestation(ageEpochs *int64) LastAttestation {
	epoch := beacon.FusakaEpoch
	ts := beacon.EpochTimestamp(epoch)
	dt := beacon.FusakaDateTime
	return LastAttestation{
		Status:    AttestationFusakaDeath,
		Epoch:     &epoch,
		Timestamp: &ts,
		DateTime:  &dt,
		AgeEpochs: ageEpochs,
	}
}

// NoDataAttestation is the descriptor for a node with no attestation data.
func NoDataAttestation() LastAttestation {
	return LastAttestation{Status: AttestationNoData}
}
