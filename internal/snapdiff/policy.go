package snapdiff

import (
	"fmt"
	"math"
)

// Policy thresholds for the CI regression check.
type Policy struct {
	MaxDownPct            float64
	MaxNegativeDeltaScore float64
}

// DefaultPolicy mirrors the CI defaults.
var DefaultPolicy = Policy{MaxDownPct: 35, MaxNegativeDeltaScore: 0.02}

// EvaluatePolicy reports whether d passes: down_pct must not exceed
// maxDownPct and the mean final-score delta must not fall below
// -|maxNegativeDelta|.
func EvaluatePolicy(d *Diff, maxDownPct, maxNegativeDelta float64) (bool, string) {
	downPct := d.Summary.Ranking.DownPct
	avg := d.Summary.AvgDeltaFinal()
	limit := math.Abs(maxNegativeDelta)

	if downPct > maxDownPct {
		return false, fmt.Sprintf("CI failure: down_pct=%.4f%% exceeds threshold %.4f%%", downPct, maxDownPct)
	}
	if avg < -limit {
		return false, fmt.Sprintf("CI failure: avg_delta_score_final=%.6f is below allowed threshold -%.6f", avg, limit)
	}
	return true, fmt.Sprintf("CI OK: down_pct=%.4f%% | avg_delta_score_final=%.6f", downPct, avg)
}

// Evaluate applies p to d.
func (p Policy) Evaluate(d *Diff) (bool, string) {
	return EvaluatePolicy(d, p.MaxDownPct, p.MaxNegativeDeltaScore)
}
