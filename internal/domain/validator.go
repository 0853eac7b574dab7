package domain

// GweiPerETH converts gwei balances to ETH at presentation boundaries.
const GweiPerETH = 1e9

// GweiToETH converts a gwei amount to ETH.
func GweiToETH(gwei int64) float64 {
	return float64(gwei) / GweiPerETH
}

// Validator is one staking unit from the scanner roster: a minipool, its
// public key, and the node that owns it. ValID is filled in after index
// resolution and is only meaningful for validators classified active.
type Validator struct {
	NodeIndex       int
	NodeAddress     string
	MinipoolAddress string
	PubKey          string // hex, without 0x prefix
	ValID           int64  // internal store id, set by resolution
}

// ValidatorStatusInfo is the resolver's per-pubkey result, serialized into
// the report's validator_statuses map.
type ValidatorStatusInfo struct {
	ValID           *int64          `json:"val_id"` // nil when not indexed by the store
	Status          ValidatorStatus `json:"status"`
	NodeAddress     string          `json:"node_address"`
	MinipoolAddress string          `json:"minipool_address"`
}

// WindowAggregate is one store row aggregated over an epoch window:
// reward/penalty sums, attestation counts and balances for a single val_id.
type WindowAggregate struct {
	ValID                  int64
	TotalEarned            int64
	TotalMissed            int64
	TotalPenalties         int64
	TotalEpochs            int64
	SuccessfulAttestations int64
	LastAttestationEpoch   *int64 // nil when no successful attestation in the window
	Balance                int64  // gwei at window end (network path: max over window)
	EffectiveBalance       int64  // gwei at window end
}

// Retention describes the epoch range the store currently holds.
type Retention struct {
	OldestEpoch int64
	NewestEpoch int64
	TotalDays   int64
}

// ValidatorPerformance is one validator's computed performance for a window.
// Ephemeral: only node-level rollups and balance lookups are persisted.
type ValidatorPerformance struct {
	ValID           int64
	NodeAddress     string
	MinipoolAddress string
	PubKey          string

	TotalEarned            int64
	TotalMissed            int64
	TotalPenalties         int64
	TotalPossible          int64 // earned + missed
	TotalLost              int64 // missed + penalties
	TotalEpochs            int64
	SuccessfulAttestations int64

	// PresetZero marks a validator with no successful attestation inside the
	// requested window. It forces a 0% window score no matter what the
	// extended history search found, and zeroes the whole node in the rollup.
	PresetZero bool

	LastAttestation LastAttestation

	Balance             int64 // gwei
	EffectiveBalance    int64 // gwei
	BalanceETH          float64
	EffectiveBalanceETH float64
}
