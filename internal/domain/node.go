package domain

// UndercollateralizedETH is the balance floor below which a validator is
// flagged as undercollateralized.
const UndercollateralizedETH = 31.9

// ULDStatus classifies a node's per-minipool use-latest-delegate flags.
type ULDStatus string

const (
	ULDYes     ULDStatus = "yes"     // all known flags true
	ULDNo      ULDStatus = "no"      // all known flags false
	ULDPartial ULDStatus = "partial" // mixed; count carries "x/y"
	ULDUnknown ULDStatus = "unknown" // no usable flags
)

// NodeScore is one node's rolled-up performance for a window, recomputed
// fresh each run from its validators' records.
type NodeScore struct {
	NodeAddress     string `json:"node_address"`
	TotalMinipools  int    `json:"total_minipools"`
	ActiveMinipools int    `json:"active_minipools"`
	ExitedMinipools int    `json:"exited_minipools"`

	PerformanceScore Score `json:"performance_score"`

	TotalEarned    int64 `json:"total_earned_rewards"`
	TotalMissed    int64 `json:"total_missed_rewards"`
	TotalPenalties int64 `json:"total_penalties"`
	TotalLost      int64 `json:"total_lost"`
	TotalPossible  int64 `json:"total_possible_rewards"`

	LastAttestation LastAttestation `json:"last_attestation"`
	IsBackUp        bool            `json:"is_back_up"`

	ULDStatus ULDStatus `json:"uld_status"`
	ULDCount  *string   `json:"uld_count"` // "x/y", only for partial

	TotalBalanceETH      float64  `json:"total_balance_eth"`
	AvgBalanceETH        float64  `json:"avg_balance_eth"`
	MinBalanceETH        *float64 `json:"min_balance_eth"`
	MaxBalanceETH        *float64 `json:"max_balance_eth"`
	ValidatorsBelow32ETH int      `json:"validators_below_32_eth"`
}
