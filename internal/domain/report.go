package domain

// ValidatorBalance is the per-pubkey balance lookup embedded in report
// artifacts for frontend consumption.
type ValidatorBalance struct {
	ValID               int64   `json:"val_id"`
	BalanceETH          float64 `json:"balance_eth"`
	EffectiveBalanceETH float64 `json:"effective_balance_eth"`
}

// Report is the JSON artifact written per (period, threshold) pair.
type Report struct {
	AnalysisDate   string                         `json:"analysis_date"`
	Period         string                         `json:"period"`
	Threshold      Threshold                      `json:"threshold"`
	EpochsAnalyzed int64                          `json:"epochs_analyzed"`
	StartEpoch     int64                          `json:"start_epoch"`
	EndEpoch       int64                          `json:"end_epoch"`
	TotalNodes     int                            `json:"total_nodes"`
	NodeScores     []NodeScore                    `json:"node_performance_scores"`
	Statuses       map[string]ValidatorStatusInfo `json:"validator_statuses"`
	Balances       map[string]ValidatorBalance    `json:"validator_balances"`
}

// ReportSummary is the summary.json inventory written by the multi-report
// generator.
type ReportSummary struct {
	GenerationDate string        `json:"generation_date"`
	TotalReports   int           `json:"total_reports"`
	Reports        []ReportEntry `json:"reports"`
	Periods        []string      `json:"periods"`
	Thresholds     []Threshold   `json:"thresholds"`
}

// ReportEntry describes one generated report file.
type ReportEntry struct {
	Period    string    `json:"period"`
	Threshold Threshold `json:"threshold"`
	Filename  string    `json:"filename"`
	NodeCount int       `json:"nodes_count"`
}
