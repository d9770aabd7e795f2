package analytics

import (
	"time"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

const (
	highRiskFactor   = 2.0
	mediumRiskFactor = 1.2
)

// ClassifyRisk maps recent cases against the all-time daily average.
func ClassifyRisk(recentCases int, avgDailyCases float64) model.RiskLevel {
	recent := float64(recentCases)
	switch {
	case avgDailyCases == 0:
		return model.RiskLow
	case recent > highRiskFactor*avgDailyCases:
		return model.RiskHigh
	case recent > mediumRiskFactor*avgDailyCases:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// ScoreRisk scores every disease reported in the trailing window of days.
// The daily average is the disease's all-time total divided by the number of
// distinct report dates in the (location-filtered) record set.
func ScoreRisk(records []model.CaseRecord, location *string, days int, today time.Time) map[string]model.RiskScore {
	filtered := FilterLocation(records, location)

	distinctDays := len(DistinctDays(filtered))
	if distinctDays < 1 {
		distinctDays = 1
	}

	totals := make(map[string]int)
	for _, r := range filtered {
		totals[r.Disease]++
	}

	recent := make(map[string]int)
	for _, r := range Since(filtered, WindowStart(today, days)) {
		recent[r.Disease]++
	}

	scores := make(map[string]model.RiskScore, len(recent))
	for disease, recentCases := range recent {
		avg := float64(totals[disease]) / float64(distinctDays)
		scores[disease] = model.RiskScore{
			RecentCases:   recentCases,
			AvgDailyCases: avg,
			Risk:          ClassifyRisk(recentCases, avg),
		}
	}

	return scores
}
