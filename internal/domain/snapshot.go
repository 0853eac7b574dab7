package domain

// SnapshotMetrics is the network-wide metric set computed for one calendar
// day over the 7-day rolling window.
type SnapshotMetrics struct {
	UnderperformingNodes     int `json:"underperforming_nodes"`
	ZeroPerformanceNodes     int `json:"zero_performance_nodes"`
	UnderperformingMinipools int `json:"underperforming_minipools"`
	ZeroPerformanceMinipools int `json:"zero_performance_minipools"`
	ActiveMinipools          int `json:"active_minipools"`
	FusakaDeaths             int `json:"fusaka_deaths"`
	Below319ETH              int `json:"below_31_9_eth"`

	TotalEarnedGwei    int64 `json:"total_earned_rewards_gwei"`
	TotalMissedGwei    int64 `json:"total_missed_rewards_gwei"`
	TotalPenaltiesGwei int64 `json:"total_penalties_gwei"`
	TotalLostGwei      int64 `json:"total_lost_gwei"`

	TotalNodes      int `json:"total_nodes"`
	TotalMinipools  int `json:"total_minipools"`
	ExitedMinipools int `json:"exited_minipools"`

	AvgPerformanceScore float64 `json:"avg_performance_score"`

	// Performance-band histogram, bucket edges {0, 50, 80, 90, 95, 99.5, 100}.
	PerfBand995To100 int `json:"perf_band_99_5_100"`
	PerfBand95To995  int `json:"perf_band_95_99_5"`
	PerfBand90To95   int `json:"perf_band_90_95"`
	PerfBand80To90   int `json:"perf_band_80_90"`
	PerfBand50To80   int `json:"perf_band_50_80"`
	PerfBand0To50    int `json:"perf_band_0_50"`
	PerfBand0        int `json:"perf_band_0"`

	EpochsAnalyzed int64 `json:"epochs_analyzed"`
	StartEpoch     int64 `json:"start_epoch"`
	EndEpoch       int64 `json:"end_epoch"`
}

// DailySnapshot is one entry in the snapshot history, at most one per date.
type DailySnapshot struct {
	Date           string `json:"date"` // YYYY-MM-DD, UTC
	Timestamp      string `json:"timestamp"`
	CollectionNote string `json:"collection_note,omitempty"`
	SnapshotMetrics
}

// HistoryMetadata describes the snapshot history file.
type HistoryMetadata struct {
	CreatedAt      string `json:"created_at"`
	LastUpdated    string `json:"last_updated"`
	TotalSnapshots int    `json:"total_snapshots"`
	Description    string `json:"description"`
}

// SnapshotHistory is the persistent, date-deduplicated snapshot collection,
// kept sorted ascending by date and always written atomically.
type SnapshotHistory struct {
	Metadata  HistoryMetadata `json:"metadata"`
	Snapshots []DailySnapshot `json:"snapshots"`
}
