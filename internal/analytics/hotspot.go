package analytics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

type locationDisease struct {
	location string
	disease  string
}

// DetectHotspots flags (location, disease) pairs in the trailing window whose
// case count is at least minCases and exceeds the per-disease mean across
// locations by more than one sample standard deviation. A disease reported
// from a single location has no spread and is never flagged.
func DetectHotspots(records []model.CaseRecord, days, minCases int, today time.Time) []model.Hotspot {
	counts := make(map[locationDisease]int)
	for _, r := range Since(records, WindowStart(today, days)) {
		counts[locationDisease{location: r.Location, disease: r.Disease}]++
	}

	perDisease := make(map[string]stats.Float64Data)
	for key, n := range counts {
		perDisease[key.disease] = append(perDisease[key.disease], float64(n))
	}

	type spread struct{ mean, std float64 }
	spreads := make(map[string]spread, len(perDisease))
	for disease, data := range perDisease {
		mean, _ := stats.Mean(data)
		var std float64
		if len(data) > 1 {
			std, _ = stats.StandardDeviationSample(data)
		}
		spreads[disease] = spread{mean: mean, std: std}
	}

	hotspots := make([]model.Hotspot, 0)
	for key, n := range counts {
		s := spreads[key.disease]
		cases := float64(n)
		if n < minCases || s.std <= 0 || cases <= s.mean+s.std {
			continue
		}

		risk := model.RiskMedium
		if cases > s.mean+2*s.std {
			risk = model.RiskHigh
		}
		hotspots = append(hotspots, model.Hotspot{
			Location: key.location,
			Disease:  key.disease,
			Cases:    n,
			Risk:     risk,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Disease != hotspots[j].Disease {
			return hotspots[i].Disease < hotspots[j].Disease
		}
		return hotspots[i].Location < hotspots[j].Location
	})

	return hotspots
}
