package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

// AdvisoryWindowDays is the trailing window used to pick the prevalent disease.
const AdvisoryWindowDays = 14

var diseaseTips = map[string][]string{
	"cholera": {
		"Drink only boiled or treated water.",
		"Wash hands with soap after using the toilet and before eating.",
		"Eat food that is cooked thoroughly and served hot.",
		"Seek care immediately for sudden watery diarrhoea; start oral rehydration.",
	},
	"malaria": {
		"Sleep under an insecticide-treated mosquito net every night.",
		"Clear stagnant water around your home.",
		"Wear long sleeves in the evening and use repellent.",
		"Get tested within 24 hours of a fever.",
	},
	"covid-19": {
		"Wear a mask in crowded indoor spaces.",
		"Wash or sanitize your hands frequently.",
		"Stay home and test if you develop a fever or cough.",
		"Keep up to date with vaccinations.",
	},
	"typhoid": {
		"Drink safe, treated water and avoid raw street food.",
		"Wash fruit and vegetables with clean water.",
		"Complete the full course of any prescribed antibiotics.",
	},
}

var fallbackTips = []string{
	"Wash your hands regularly with soap and clean water.",
	"Visit your nearest clinic if symptoms persist.",
	"Follow guidance from your local health officials.",
}

var genericTips = []string{
	"Wash your hands regularly with soap and clean water.",
	"Drink safe, treated water.",
	"Sleep under a mosquito net.",
	"Visit your nearest clinic if you feel unwell.",
}

// TipsFor returns the tip list for a disease, falling back to general advice.
func TipsFor(disease string) []string {
	if tips, ok := diseaseTips[strings.ToLower(strings.TrimSpace(disease))]; ok {
		return tips
	}
	return fallbackTips
}

// Advise picks the disease with the most cases in the last fourteen days
// (ties go to the alphabetically first name) and returns its tips. With no
// recent cases it returns the generic set and no disease.
func Advise(records []model.CaseRecord, location *string, today time.Time) model.Advisory {
	recent := Since(FilterLocation(records, location), WindowStart(today, AdvisoryWindowDays))

	counts := make(map[string]int)
	for _, r := range recent {
		counts[r.Disease]++
	}
	if len(counts) == 0 {
		return model.Advisory{Tips: genericTips}
	}

	diseases := make([]string, 0, len(counts))
	for d := range counts {
		diseases = append(diseases, d)
	}
	sort.Slice(diseases, func(i, j int) bool {
		if counts[diseases[i]] != counts[diseases[j]] {
			return counts[diseases[i]] > counts[diseases[j]]
		}
		return diseases[i] < diseases[j]
	})

	top := diseases[0]
	return model.Advisory{Disease: &top, Tips: TipsFor(top)}
}
