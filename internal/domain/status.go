package domain

// ValidatorStatus is a validator lifecycle status as reported by the
// validators_summary table at a given epoch.
type ValidatorStatus string

const (
	StatusActiveOngoing      ValidatorStatus = "active_ongoing"
	StatusActiveExiting      ValidatorStatus = "active_exiting"
	StatusActiveSlashed      ValidatorStatus = "active_slashed"
	StatusExitedUnslashed    ValidatorStatus = "exited_unslashed"
	StatusExitedSlashed      ValidatorStatus = "exited_slashed"
	StatusWithdrawalPossible ValidatorStatus = "withdrawal_possible"
	StatusWithdrawalDone     ValidatorStatus = "withdrawal_done"

	// StatusNotInDatabase marks a pubkey absent from the store's index.
	// Treated as exited everywhere downstream: unknown never counts as active.
	StatusNotInDatabase ValidatorStatus = "not_in_database"

	StatusUnknown ValidatorStatus = "unknown"
)

// ActiveForScoring reports whether the status qualifies a validator for the
// report path's active set (active_ongoing or active_exiting).
func (s ValidatorStatus) ActiveForScoring() bool {
	return s == StatusActiveOngoing || s == StatusActiveExiting
}

// Active reports whether the status is any active state, including slashed.
// The snapshot path scores slashed-but-active validators too.
func (s ValidatorStatus) Active() bool {
	return s == StatusActiveOngoing || s == StatusActiveExiting || s == StatusActiveSlashed
}

// Exited reports whether the status is a terminal exited/withdrawal state.
func (s ValidatorStatus) Exited() bool {
	switch s {
	case StatusExitedUnslashed, StatusExitedSlashed, StatusWithdrawalPossible, StatusWithdrawalDone:
		return true
	}
	return false
}
