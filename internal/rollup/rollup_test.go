package rollup

import (
	"testing"

	"github.com/SteelyNinja/rocketpool-performance/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func statusInfo(node string, valID int64, status domain.ValidatorStatus) domain.ValidatorStatusInfo {
	return domain.ValidatorStatusInfo{ValID: &valID, Status: status, NodeAddress: node}
}

func TestCalculate_PresetZeroZeroesWholeNode(t *testing.T) {
	// Validator A performed well, validator B never attested in the window.
	// The node score must be 0%, not the blended ratio.
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xNode", 2, domain.StatusActiveOngoing),
	}
	perf := []domain.ValidatorPerformance{
		{
			ValID: 1, NodeAddress: "0xNode",
			TotalEarned: 900, TotalMissed: 100, TotalPossible: 1000, TotalLost: 100,
			LastAttestation: domain.FoundAttestation(98, 100),
		},
		{
			ValID: 2, NodeAddress: "0xNode",
			PresetZero:      true,
			LastAttestation: domain.OlderThanAttestation(45),
		},
	}

	scores := Calculate(Input{Performance: perf, Statuses: statuses})
	if len(scores) != 1 {
		t.Fatalf("expected 1 node, got %d", len(scores))
	}

	s := scores[0]
	if !s.PerformanceScore.IsZero() {
		t.Fatalf("expected zeroed node score, got %+v", s.PerformanceScore)
	}
	// Totals still reflect the healthy validator's accounting.
	if s.TotalEarned != 900 || s.TotalPossible != 1000 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	// The found descriptor wins over the older-than one.
	if s.LastAttestation.Status != domain.AttestationFound {
		t.Fatalf("unexpected node descriptor: %s", s.LastAttestation.Status)
	}
}

func TestCalculate_RatioScore(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xNode", 2, domain.StatusActiveOngoing),
	}
	perf := []domain.ValidatorPerformance{
		{
			ValID: 1, NodeAddress: "0xNode",
			TotalEarned: 600, TotalMissed: 0, TotalPossible: 600,
			LastAttestation: domain.FoundAttestation(95, 100),
		},
		{
			ValID: 2, NodeAddress: "0xNode",
			TotalEarned: 300, TotalMissed: 100, TotalPossible: 400, TotalLost: 100,
			LastAttestation: domain.FoundAttestation(99, 100),
		},
	}

	scores := Calculate(Input{Performance: perf, Statuses: statuses})
	s := scores[0]
	// 900 earned of 1000 possible.
	if !s.PerformanceScore.Valid || s.PerformanceScore.Value != 90 {
		t.Fatalf("unexpected score: %+v", s.PerformanceScore)
	}
	// Newest found epoch becomes the node descriptor.
	if *s.LastAttestation.Epoch != 99 {
		t.Fatalf("unexpected node attestation epoch: %d", *s.LastAttestation.Epoch)
	}
	// Fresh attestation and positive score: earning again.
	if !s.IsBackUp {
		t.Fatal("expected is_back_up")
	}
}

func TestCalculate_ActiveExitedCounts(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xNode", 2, domain.StatusExitedUnslashed),
		"cc": {Status: domain.StatusNotInDatabase, NodeAddress: "0xNode"},
	}
	perf := []domain.ValidatorPerformance{
		{ValID: 1, NodeAddress: "0xNode", LastAttestation: domain.FoundAttestation(99, 100)},
	}

	s := Calculate(Input{Performance: perf, Statuses: statuses})[0]
	if s.TotalMinipools != 3 || s.ActiveMinipools != 1 || s.ExitedMinipools != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.ActiveMinipools+s.ExitedMinipools != s.TotalMinipools {
		t.Fatalf("counts do not add up: %+v", s)
	}
}

func TestCalculate_NoActiveValidators(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusExitedUnslashed),
	}

	s := Calculate(Input{Statuses: statuses})[0]
	if s.PerformanceScore.Valid {
		t.Fatalf("expected sentinel score, got %+v", s.PerformanceScore)
	}
	if s.LastAttestation.Status != domain.AttestationNoData {
		t.Fatalf("unexpected descriptor: %s", s.LastAttestation.Status)
	}
	if s.IsBackUp {
		t.Fatal("sentinel-score node cannot be back up")
	}
}

func TestCalculate_OlderThanDescriptor(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xNode", 2, domain.StatusActiveOngoing),
	}
	perf := []domain.ValidatorPerformance{
		{ValID: 1, NodeAddress: "0xNode", PresetZero: true, LastAttestation: domain.OlderThanAttestation(30)},
		{ValID: 2, NodeAddress: "0xNode", PresetZero: true, LastAttestation: domain.OlderThanAttestation(45)},
	}

	s := Calculate(Input{Performance: perf, Statuses: statuses})[0]
	// Deepest silence wins when nothing was found.
	if s.LastAttestation.Status != domain.AttestationOlderThan || s.LastAttestation.OlderThanDays != 45 {
		t.Fatalf("unexpected descriptor: %+v", s.LastAttestation)
	}
	if s.LastAttestation.StatusLabel() != "older_than_45_days" {
		t.Fatalf("unexpected label: %s", s.LastAttestation.StatusLabel())
	}
}

type stubTracker struct {
	nodes map[string]bool
}

func (s *stubTracker) Apply(node string, computed domain.LastAttestation) domain.LastAttestation {
	if s.nodes[node] {
		return domain.FusakaAttestation(computed.AgeEpochs)
	}
	return computed
}

func TestCalculate_TrackerOverride(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xDead", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xAlive", 2, domain.StatusActiveOngoing),
	}
	perf := []domain.ValidatorPerformance{
		{ValID: 1, NodeAddress: "0xDead", PresetZero: true, LastAttestation: domain.OlderThanAttestation(45)},
		{ValID: 2, NodeAddress: "0xAlive", TotalEarned: 900, TotalPossible: 1000, LastAttestation: domain.FoundAttestation(99, 100)},
	}

	scores := Calculate(Input{
		Performance: perf,
		Statuses:    statuses,
		Tracker:     &stubTracker{nodes: map[string]bool{"0xDead": true}},
	})

	byAddr := make(map[string]domain.NodeScore)
	for _, s := range scores {
		byAddr[s.NodeAddress] = s
	}
	if byAddr["0xDead"].LastAttestation.Status != domain.AttestationFusakaDeath {
		t.Fatalf("expected tracker override, got %s", byAddr["0xDead"].LastAttestation.Status)
	}
	if byAddr["0xAlive"].LastAttestation.Status != domain.AttestationFound {
		t.Fatalf("healthy node must keep its computed descriptor, got %s", byAddr["0xAlive"].LastAttestation.Status)
	}
}

func TestULDStatus(t *testing.T) {
	cases := []struct {
		name  string
		flags []*bool
		want  domain.ULDStatus
		count string
	}{
		{"all true", []*bool{boolPtr(true), boolPtr(true)}, domain.ULDYes, ""},
		{"all false", []*bool{boolPtr(false)}, domain.ULDNo, ""},
		{"mixed", []*bool{boolPtr(true), boolPtr(true), boolPtr(false)}, domain.ULDPartial, "2/3"},
		{"nulls skipped", []*bool{nil, boolPtr(true)}, domain.ULDYes, ""},
		{"no flags", nil, domain.ULDUnknown, ""},
		{"only nulls", []*bool{nil, nil}, domain.ULDUnknown, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, count := uldStatus(tc.flags)
			if status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, status)
			}
			if tc.count == "" && count != nil {
				t.Fatalf("expected no count, got %s", *count)
			}
			if tc.count != "" && (count == nil || *count != tc.count) {
				t.Fatalf("expected count %s, got %v", tc.count, count)
			}
		})
	}
}

func TestCalculate_Balances(t *testing.T) {
	statuses := map[string]domain.ValidatorStatusInfo{
		"aa": statusInfo("0xNode", 1, domain.StatusActiveOngoing),
		"bb": statusInfo("0xNode", 2, domain.StatusActiveOngoing),
		"cc": statusInfo("0xNode", 3, domain.StatusActiveOngoing),
	}
	perf := []domain.ValidatorPerformance{
		{ValID: 1, NodeAddress: "0xNode", BalanceETH: 32.5, LastAttestation: domain.FoundAttestation(99, 100)},
		{ValID: 2, NodeAddress: "0xNode", BalanceETH: 31.5, LastAttestation: domain.FoundAttestation(99, 100)},
		// No balance row at the window end; excluded from the stats.
		{ValID: 3, NodeAddress: "0xNode", BalanceETH: 0, LastAttestation: domain.FoundAttestation(99, 100)},
	}

	s := Calculate(Input{Performance: perf, Statuses: statuses})[0]
	if s.TotalBalanceETH != 64 {
		t.Fatalf("unexpected total balance: %v", s.TotalBalanceETH)
	}
	if s.AvgBalanceETH != 32 {
		t.Fatalf("unexpected avg balance: %v", s.AvgBalanceETH)
	}
	if s.MinBalanceETH == nil || *s.MinBalanceETH != 31.5 {
		t.Fatalf("unexpected min balance: %v", s.MinBalanceETH)
	}
	if s.MaxBalanceETH == nil || *s.MaxBalanceETH != 32.5 {
		t.Fatalf("unexpected max balance: %v", s.MaxBalanceETH)
	}
	if s.ValidatorsBelow32ETH != 1 {
		t.Fatalf("expected 1 undercollateralized validator, got %d", s.ValidatorsBelow32ETH)
	}
}

func TestSortByScore(t *testing.T) {
	scores := []domain.NodeScore{
		{NodeAddress: "0xSentinel"},
		{NodeAddress: "0xMid", PerformanceScore: domain.NewScore(80)},
		{NodeAddress: "0xBest", PerformanceScore: domain.NewScore(99.5)},
		{NodeAddress: "0xZero", PerformanceScore: domain.NewScore(0)},
	}

	SortByScore(scores)

	want := []string{"0xBest", "0xMid", "0xZero", "0xSentinel"}
	for i, addr := range want {
		if scores[i].NodeAddress != addr {
			t.Fatalf("position %d: expected %s, got %s", i, addr, scores[i].NodeAddress)
		}
	}
}

func TestFilterByThreshold(t *testing.T) {
	scores := []domain.NodeScore{
		{NodeAddress: "0xSentinel"},
		{NodeAddress: "0xLow", PerformanceScore: domain.NewScore(50)},
		{NodeAddress: "0xEdge", PerformanceScore: domain.NewScore(80)},
		{NodeAddress: "0xHigh", PerformanceScore: domain.NewScore(99)},
	}

	under := FilterByThreshold(scores, domain.ThresholdBelow(80))
	if len(under) != 1 || under[0].NodeAddress != "0xLow" {
		t.Fatalf("strict cutoff violated: %+v", under)
	}

	all := FilterByThreshold(scores, domain.ThresholdAll())
	if len(all) != 4 {
		t.Fatalf("expected pass-through, got %d", len(all))
	}
}
