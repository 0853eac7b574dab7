package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Score is a node performance percentage in [0, 100]. The zero value is the
// "no active validators" sentinel, rendered as "N/A" and always sorted last.
type Score struct {
	Valid bool
	Value float64
}

// NewScore returns a numeric score.
func NewScore(v float64) Score {
	return Score{Valid: true, Value: v}
}

// RatioScore computes 100*earned/possible rounded to 2 decimal places, with
// 0/0 defined as 0.
func RatioScore(earned, possible int64) Score {
	if possible <= 0 {
		return NewScore(0)
	}
	v := float64(earned) / float64(possible) * 100
	return NewScore(math.Round(v*100) / 100)
}

// IsZero reports whether the score is numeric and exactly 0%.
func (s Score) IsZero() bool {
	return s.Valid && s.Value == 0
}

// Less orders scores ascending, sentinel values below every numeric score.
func (s Score) Less(other Score) bool {
	if s.Valid != other.Valid {
		return !s.Valid
	}
	return s.Value < other.Value
}

// MarshalJSON renders the numeric value, or "N/A" for the sentinel.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return json.Marshal("N/A")
	}
	return json.Marshal(s.Value)
}

// Threshold is a score cutoff for the underperforming-nodes filter. The All
// form passes every node through unfiltered.
type Threshold struct {
	All   bool
	Value float64
}

// ThresholdBelow returns a numeric cutoff threshold.
func ThresholdBelow(v float64) Threshold {
	return Threshold{Value: v}
}

// ThresholdAll passes all nodes through.
func ThresholdAll() Threshold {
	return Threshold{All: true}
}

// Keeps reports whether a node score survives the filter: pass-through for
// All, otherwise numeric and strictly below the cutoff.
func (t Threshold) Keeps(s Score) bool {
	if t.All {
		return true
	}
	return s.Valid && s.Value < t.Value
}

// String renders "all" or the integer cutoff, matching report file names.
func (t Threshold) String() string {
	if t.All {
		return "all"
	}
	return strconv.FormatInt(int64(t.Value), 10)
}

// MarshalJSON renders "all" or the numeric cutoff.
func (t Threshold) MarshalJSON() ([]byte, error) {
	if t.All {
		return json.Marshal("all")
	}
	return json.Marshal(t.Value)
}

// ParseThreshold accepts "all" or a number, matching CLI flags.
func ParseThreshold(s string) (Threshold, error) {
	if s == "all" {
		return ThresholdAll(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold %q: %w", s, err)
	}
	return ThresholdBelow(v), nil
}
