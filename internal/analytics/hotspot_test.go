package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

func TestDetectHotspotsFlagsOutlierLocation(t *testing.T) {
	// mean 7/3, sample std about 2.31: 5 clears mean+std but not mean+2*std
	records := concat(
		reports(5, "Cholera", "Kibera", daysAgo(1)),
		reports(1, "Cholera", "Mathare", daysAgo(2)),
		reports(1, "Cholera", "Kisumu", daysAgo(3)),
	)

	hotspots := DetectHotspots(records, 7, 3, today)

	require.Len(t, hotspots, 1)
	assert.Equal(t, model.Hotspot{Location: "Kibera", Disease: "Cholera", Cases: 5, Risk: model.RiskMedium}, hotspots[0])
}

func TestDetectHotspotsTwoLocationsNotFlagged(t *testing.T) {
	// mean 3, sample std about 2.83
	records := concat(
		reports(5, "Cholera", "Kibera", daysAgo(1)),
		reports(1, "Cholera", "Mathare", daysAgo(1)),
	)

	assert.Empty(t, DetectHotspots(records, 7, 3, today))
}

func TestDetectHotspotsSingleLocationNeverFlagged(t *testing.T) {
	records := reports(100, "Malaria", "Kibera", daysAgo(1))

	hotspots := DetectHotspots(records, 7, 3, today)

	assert.NotNil(t, hotspots)
	assert.Empty(t, hotspots)
}

func TestDetectHotspotsRespectsMinCases(t *testing.T) {
	// mean 1.25, std 0.5: Kibera is an outlier but below the minimum
	records := concat(
		reports(2, "Cholera", "Kibera", daysAgo(1)),
		reports(1, "Cholera", "Mathare", daysAgo(1)),
		reports(1, "Cholera", "Kisumu", daysAgo(1)),
		reports(1, "Cholera", "Nakuru", daysAgo(1)),
	)

	assert.Empty(t, DetectHotspots(records, 7, 3, today))
	assert.Len(t, DetectHotspots(records, 7, 2, today), 1)
}

func TestDetectHotspotsHighRisk(t *testing.T) {
	records := reports(20, "Cholera", "Kibera", daysAgo(1))
	for _, loc := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		records = append(records, reports(1, "Cholera", loc, daysAgo(2))...)
	}

	hotspots := DetectHotspots(records, 7, 3, today)

	require.Len(t, hotspots, 1)
	assert.Equal(t, model.RiskHigh, hotspots[0].Risk)
	assert.Equal(t, 20, hotspots[0].Cases)
}

func TestDetectHotspotsIgnoresOldRecordsAndSortsOutput(t *testing.T) {
	records := concat(
		reports(5, "Malaria", "Kisumu", daysAgo(1)),
		reports(1, "Malaria", "Kibera", daysAgo(1)),
		reports(1, "Malaria", "Mathare", daysAgo(1)),
		reports(5, "Cholera", "Mathare", daysAgo(2)),
		reports(1, "Cholera", "Kibera", daysAgo(2)),
		reports(1, "Cholera", "Kisumu", daysAgo(2)),
		reports(50, "Cholera", "Kibera", daysAgo(30)),
	)

	hotspots := DetectHotspots(records, 7, 3, today)

	require.Len(t, hotspots, 2)
	assert.Equal(t, "Cholera", hotspots[0].Disease)
	assert.Equal(t, "Mathare", hotspots[0].Location)
	assert.Equal(t, "Malaria", hotspots[1].Disease)
	assert.Equal(t, "Kisumu", hotspots[1].Location)
}
