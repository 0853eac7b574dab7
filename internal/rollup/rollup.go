// Package rollup folds per-validator window performance into per-node
// scores: the unit operators and reports reason about.
package rollup

import (
	"fmt"
	"sort"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

// backUpMaxAgeEpochs is how recent a node's last attestation must be for the
// node to count as freshly back up.
const backUpMaxAgeEpochs = 3

// fallbackSilenceDays is reported for an active node whose validators carry
// no usable descriptor at all.
const fallbackSilenceDays = 10

// DeathTracker overrides a node's computed attestation descriptor with
// persistent post-fork death state. A nil tracker is a no-op.
type DeathTracker interface {
	Apply(nodeAddress string, computed domain.LastAttestation) domain.LastAttestation
}

// Input carries everything one rollup needs: the window performance, the
// resolved roster statuses, the scan data for delegate flags, and the death
// tracker.
type Input struct {
	Performance []domain.ValidatorPerformance
	Statuses    map[string]domain.ValidatorStatusInfo
	ScanNodes   []domain.ScanNode
	Tracker     DeathTracker
}

// nodeAggregate accumulates one node's validators during the fold.
type nodeAggregate struct {
	total  int
	active int

	earned    int64
	missed    int64
	penalties int64
	possible  int64
	lost      int64

	presetZero bool

	balances []float64

	// Best descriptor seen so far: the newest found epoch wins; failing any
	// found descriptor, the deepest older-than silence wins.
	bestFound     *domain.LastAttestation
	bestOlderThan *domain.LastAttestation
}

// Calculate rolls the window up into one score per node, ordered by node
// address. Any validator preset to zero zeroes its whole node: a node is
// only as healthy as its weakest minipool. Nodes with no active validators
// get the N/A sentinel score.
func Calculate(in Input) []domain.NodeScore {
	aggs := make(map[string]*nodeAggregate)

	node := func(address string) *nodeAggregate {
		agg, ok := aggs[address]
		if !ok {
			agg = &nodeAggregate{}
			aggs[address] = agg
		}
		return agg
	}

	// Every resolved roster validator counts toward its node's minipool
	// total, whatever its lifecycle status.
	for _, info := range in.Statuses {
		node(info.NodeAddress).total++
	}

	for _, p := range in.Performance {
		agg := node(p.NodeAddress)
		agg.active++
		agg.earned += p.TotalEarned
		agg.missed += p.TotalMissed
		agg.penalties += p.TotalPenalties
		agg.possible += p.TotalPossible
		agg.lost += p.TotalLost
		if p.PresetZero {
			agg.presetZero = true
		}
		if p.BalanceETH > 0 {
			agg.balances = append(agg.balances, p.BalanceETH)
		}

		la := p.LastAttestation
		switch {
		case la.Found():
			if agg.bestFound == nil || *la.Epoch > *agg.bestFound.Epoch {
				agg.bestFound = &la
			}
		case la.Status == domain.AttestationOlderThan:
			if agg.bestOlderThan == nil || la.OlderThanDays > agg.bestOlderThan.OlderThanDays {
				agg.bestOlderThan = &la
			}
		}
	}

	uldFlags := delegateFlags(in.ScanNodes)

	addresses := make([]string, 0, len(aggs))
	for address := range aggs {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	scores := make([]domain.NodeScore, 0, len(addresses))
	for _, address := range addresses {
		agg := aggs[address]

		score := domain.NodeScore{
			NodeAddress:     address,
			TotalMinipools:  agg.total,
			ActiveMinipools: agg.active,
			ExitedMinipools: agg.total - agg.active,
			TotalEarned:     agg.earned,
			TotalMissed:     agg.missed,
			TotalPenalties:  agg.penalties,
			TotalLost:       agg.lost,
			TotalPossible:   agg.possible,
		}

		switch {
		case agg.active == 0:
			// Sentinel score; zero value of Score renders "N/A".
		case agg.presetZero:
			score.PerformanceScore = domain.NewScore(0)
		default:
			score.PerformanceScore = domain.RatioScore(agg.earned, agg.possible)
		}

		switch {
		case agg.bestFound != nil:
			score.LastAttestation = *agg.bestFound
		case agg.bestOlderThan != nil:
			score.LastAttestation = *agg.bestOlderThan
		case agg.active > 0:
			score.LastAttestation = domain.OlderThanAttestation(fallbackSilenceDays)
		default:
			score.LastAttestation = domain.NoDataAttestation()
		}
		if in.Tracker != nil {
			score.LastAttestation = in.Tracker.Apply(address, score.LastAttestation)
		}

		score.IsBackUp = isBackUp(score.PerformanceScore, score.LastAttestation)
		score.ULDStatus, score.ULDCount = uldStatus(uldFlags[address])

		fillBalances(&score, agg.balances)

		scores = append(scores, score)
	}
	return scores
}

// isBackUp reports whether a node is earning again after an outage: a
// positive score and a real attestation within the last few epochs.
func isBackUp(score domain.Score, la domain.LastAttestation) bool {
	if !score.Valid || score.Value <= 0 || !la.Found() {
		return false
	}
	return la.AgeEpochs != nil && *la.AgeEpochs <= backUpMaxAgeEpochs
}

// delegateFlags indexes scan delegate flags by node address.
func delegateFlags(nodes []domain.ScanNode) map[string][]*bool {
	flags := make(map[string][]*bool, len(nodes))
	for _, n := range nodes {
		flags[n.NodeAddress] = n.MinipoolUseLatestDelegate
	}
	return flags
}

// uldStatus classifies a node's use-latest-delegate flags. Null flags are
// excluded from the tally; a node with no usable flags is unknown.
func uldStatus(flags []*bool) (domain.ULDStatus, *string) {
	var trueCount, known int
	for _, f := range flags {
		if f == nil {
			continue
		}
		known++
		if *f {
			trueCount++
		}
	}

	switch {
	case known == 0:
		return domain.ULDUnknown, nil
	case trueCount == known:
		return domain.ULDYes, nil
	case trueCount == 0:
		return domain.ULDNo, nil
	default:
		count := fmt.Sprintf("%d/%d", trueCount, known)
		return domain.ULDPartial, &count
	}
}

// fillBalances computes the balance block from the per-validator balances
// captured at the window end. Validators with no balance data are excluded.
func fillBalances(score *domain.NodeScore, balances []float64) {
	if len(balances) == 0 {
		return
	}

	minBal, maxBal := balances[0], balances[0]
	var total float64
	var below int
	for _, b := range balances {
		total += b
		if b < minBal {
			minBal = b
		}
		if b > maxBal {
			maxBal = b
		}
		if b < domain.UndercollateralizedETH {
			below++
		}
	}

	score.TotalBalanceETH = total
	score.AvgBalanceETH = total / float64(len(balances))
	score.MinBalanceETH = &minBal
	score.MaxBalanceETH = &maxBal
	score.ValidatorsBelow32ETH = below
}

// SortByScore orders nodes best first: descending numeric score with the
// N/A sentinel at the very end, ties broken by node address.
func SortByScore(scores []domain.NodeScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i].PerformanceScore, scores[j].PerformanceScore
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return scores[i].NodeAddress < scores[j].NodeAddress
	})
}

// FilterByThreshold keeps the nodes the threshold flags as underperforming.
func FilterByThreshold(scores []domain.NodeScore, t domain.Threshold) []domain.NodeScore {
	var kept []domain.NodeScore
	for _, s := range scores {
		if t.Keeps(s.PerformanceScore) {
			kept = append(kept, s)
		}
	}
	return kept
}
