package analytics

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

const (
	// TrendLookbackDays is how many days of actuals the trend narrative needs.
	TrendLookbackDays = 14
	// AnomalyLookbackDays is how many days of actuals anomaly flags need.
	AnomalyLookbackDays = 7

	trendHorizon  = 7
	risingFactor  = 1.15
	fallingFactor = 0.85
	anomalySigmas = 2.0
)

// TrendNarrative compares the next seven predicted days with the earlier week
// of the last fourteen days of actuals. It returns nil when there are fewer
// than fourteen actuals or fewer than seven predictions.
func TrendNarrative(predicted []float64, recent DailySeries) *model.Trend {
	if recent.Len() < TrendLookbackDays || len(predicted) < trendHorizon {
		return nil
	}

	window := recent.Tail(TrendLookbackDays)
	var prev7 float64
	for _, p := range window[:trendHorizon] {
		prev7 += float64(p.Count)
	}

	next7, _ := stats.Sum(predicted[:trendHorizon])

	trend := model.TrendStable
	switch {
	case next7 > risingFactor*prev7:
		trend = model.TrendRising
	case next7 < fallingFactor*prev7:
		trend = model.TrendFalling
	}
	return &trend
}

// AnomalyFlags marks each prediction that lies more than two population
// standard deviations from the mean of the last seven actuals. It returns
// nil when fewer than seven actuals are available. A flat history (zero
// deviation) never flags anything.
func AnomalyFlags(predicted []float64, recent DailySeries) []bool {
	if recent.Len() < AnomalyLookbackDays {
		return nil
	}

	last := recent.Tail(AnomalyLookbackDays)
	counts := make(stats.Float64Data, len(last))
	for i, p := range last {
		counts[i] = float64(p.Count)
	}

	mean, _ := stats.Mean(counts)
	std, _ := stats.StandardDeviationPopulation(counts)

	flags := make([]bool, len(predicted))
	if std <= 0 {
		return flags
	}
	for i, v := range predicted {
		flags[i] = math.Abs(v-mean) > anomalySigmas*std
	}
	return flags
}
