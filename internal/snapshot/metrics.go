package snapshot

import (
	"math"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

// MetricsInput is everything one day's metric computation needs: the
// resolved roster, lifecycle statuses at the window end, and the
// network-wide window aggregates. Filtering the aggregates down to the
// roster happens here, not at the store.
type MetricsInput struct {
	Roster     []domain.Validator
	Statuses   map[int64]domain.ValidatorStatus
	Aggregates []domain.WindowAggregate

	FusakaDeaths int
	Threshold    float64

	StartEpoch     int64
	EndEpoch       int64
	EpochsAnalyzed int64
}

// nodeTally accumulates one node's attestation counts for the day.
type nodeTally struct {
	successful  int64
	totalEpochs int64
}

// CalculateMetrics computes the network-wide metric set for one day. Scoring
// here is attestation-rate based (successful over scheduled epochs), unlike
// the reward-ratio scores in the per-threshold reports; the two answer
// different questions. Slashed-but-active validators still count as active
// for the day's tallies.
func CalculateMetrics(in MetricsInput) domain.SnapshotMetrics {
	byID := make(map[int64]domain.WindowAggregate, len(in.Aggregates))
	for _, a := range in.Aggregates {
		byID[a.ValID] = a
	}

	m := domain.SnapshotMetrics{
		FusakaDeaths:   in.FusakaDeaths,
		StartEpoch:     in.StartEpoch,
		EndEpoch:       in.EndEpoch,
		EpochsAnalyzed: in.EpochsAnalyzed,
	}

	nodes := make(map[string]*nodeTally)
	var sumSuccessful, sumScheduled int64

	for _, v := range in.Roster {
		status := in.Statuses[v.ValID]
		switch {
		case status.Active():
			m.ActiveMinipools++
		case status.Exited():
			m.ExitedMinipools++
		}

		agg, hasData := byID[v.ValID]
		if hasData {
			// Financial totals and the collateral floor cover every roster
			// validator with data, whatever its lifecycle status.
			m.TotalEarnedGwei += agg.TotalEarned
			m.TotalMissedGwei += agg.TotalMissed
			m.TotalPenaltiesGwei += agg.TotalPenalties
			m.TotalLostGwei += agg.TotalMissed + agg.TotalPenalties

			if agg.Balance > 0 && domain.GweiToETH(agg.Balance) < domain.UndercollateralizedETH {
				m.Below319ETH++
			}
		}

		if !status.Active() {
			continue
		}
		if !hasData || agg.TotalEpochs == 0 {
			continue
		}

		tally, ok := nodes[v.NodeAddress]
		if !ok {
			tally = &nodeTally{}
			nodes[v.NodeAddress] = tally
		}
		tally.successful += agg.SuccessfulAttestations
		tally.totalEpochs += agg.TotalEpochs
		sumSuccessful += agg.SuccessfulAttestations
		sumScheduled += agg.TotalEpochs

		rate := float64(agg.SuccessfulAttestations) / float64(agg.TotalEpochs) * 100
		if agg.SuccessfulAttestations == 0 {
			m.ZeroPerformanceMinipools++
		}
		if rate < in.Threshold {
			m.UnderperformingMinipools++
		}
		addToBand(&m, rate)
	}

	m.TotalMinipools = m.ActiveMinipools + m.ExitedMinipools
	// Only nodes with at least one scored validator count.
	m.TotalNodes = len(nodes)

	for _, tally := range nodes {
		score := float64(tally.successful) / float64(tally.totalEpochs) * 100
		if score == 0 {
			m.ZeroPerformanceNodes++
		}
		if score < in.Threshold {
			m.UnderperformingNodes++
		}
	}

	if sumScheduled > 0 {
		avg := float64(sumSuccessful) / float64(sumScheduled) * 100
		m.AvgPerformanceScore = math.Round(avg*100) / 100
	}

	return m
}

// addToBand places one minipool's attestation rate into the histogram,
// bucket edges {0, 50, 80, 90, 95, 99.5, 100}.
func addToBand(m *domain.SnapshotMetrics, score float64) {
	switch {
	case score == 0:
		m.PerfBand0++
	case score < 50:
		m.PerfBand0To50++
	case score < 80:
		m.PerfBand50To80++
	case score < 90:
		m.PerfBand80To90++
	case score < 95:
		m.PerfBand90To95++
	case score < 99.5:
		m.PerfBand95To995++
	default:
		m.PerfBand995To100++
	}
}
