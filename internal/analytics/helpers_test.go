package analytics

import (
	"time"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

var today = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return today.AddDate(0, 0, -n)
}

// reports returns n case records for disease at location on date.
func reports(n int, disease, location string, date time.Time) []model.CaseRecord {
	out := make([]model.CaseRecord, n)
	for i := range out {
		out[i] = model.CaseRecord{Disease: disease, Location: location, Date: date}
	}
	return out
}

func concat(groups ...[]model.CaseRecord) []model.CaseRecord {
	var out []model.CaseRecord
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// seriesOf builds a series ending today with the given counts.
func seriesOf(counts ...int) DailySeries {
	s := DailySeries{Disease: "Cholera"}
	start := daysAgo(len(counts) - 1)
	for i, c := range counts {
		s.Points = append(s.Points, Point{Date: start.AddDate(0, 0, i), Count: c})
	}
	return s
}

func strPtr(s string) *string { return &s }
