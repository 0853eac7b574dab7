package domain

// ScanNode is one node record from the external scanner dataset
// (rocketpool_scan_results.json). The minipool_* lists are parallel arrays;
// pubkey and delegate-flag entries may be null when the on-chain lookup
// failed.
type ScanNode struct {
	NodeIndex                 int       `json:"node_index"`
	NodeAddress               string    `json:"node_address"`
	ENSName                   *string   `json:"ens_name"`
	PrimaryWithdrawalAddress  *string   `json:"primary_withdrawal_address"`
	PrimaryWithdrawalENS      *string   `json:"primary_withdrawal_ens"`
	RPLWithdrawalAddress      *string   `json:"rpl_withdrawal_address"`
	RPLWithdrawalENS          *string   `json:"rpl_withdrawal_ens"`
	MinipoolCount             int       `json:"minipool_count"`
	MinipoolAddresses         []string  `json:"minipool_addresses"`
	MinipoolPubkeys           []*string `json:"minipool_pubkeys"`
	MinipoolUseLatestDelegate []*bool   `json:"minipool_use_latest_delegate"`
}
