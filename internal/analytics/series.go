// Package analytics holds the pure forecasting and risk computations. Every
// function here is deterministic given its inputs; I/O lives in the services.
package analytics

import (
	"time"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

const day = 24 * time.Hour

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / day)
}

type Point struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DailySeries is a gap-free, day-by-day count series. An empty series means
// there was no data to aggregate.
type DailySeries struct {
	Disease  string
	Location *string
	Points   []Point
}

func (s DailySeries) Len() int { return len(s.Points) }

func (s DailySeries) IsEmpty() bool { return len(s.Points) == 0 }

// Counts returns the counts as float64 for the statistics helpers.
func (s DailySeries) Counts() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = float64(p.Count)
	}
	return out
}

// Tail returns the last n points (or all of them if shorter).
func (s DailySeries) Tail(n int) []Point {
	if n >= len(s.Points) {
		return s.Points
	}
	return s.Points[len(s.Points)-n:]
}

func matches(r model.CaseRecord, disease string, location *string) bool {
	if r.Disease != disease {
		return false
	}
	return location == nil || r.Location == *location
}

// Aggregate counts records of disease (and location, when given) per day over
// [start, end] inclusive, inserting zero for days without reports. When no
// record matches the filter at all the returned series is empty.
func Aggregate(records []model.CaseRecord, disease string, location *string, start, end time.Time) DailySeries {
	series := DailySeries{Disease: disease, Location: location}

	start, end = Day(start), Day(end)
	if end.Before(start) {
		return series
	}

	buckets := make(map[time.Time]int)
	matched := false
	for _, r := range records {
		if !matches(r, disease, location) {
			continue
		}
		matched = true
		buckets[Day(r.Date)]++
	}
	if !matched {
		return series
	}

	n := DaysBetween(start, end) + 1
	series.Points = make([]Point, 0, n)
	for d := start; !d.After(end); d = d.Add(day) {
		series.Points = append(series.Points, Point{Date: d, Count: buckets[d]})
	}

	return series
}

// DistinctDays returns the set of calendar days present in records.
func DistinctDays(records []model.CaseRecord) map[time.Time]struct{} {
	days := make(map[time.Time]struct{})
	for _, r := range records {
		days[Day(r.Date)] = struct{}{}
	}
	return days
}

// FilterLocation keeps records reported at location; nil keeps everything.
func FilterLocation(records []model.CaseRecord, location *string) []model.CaseRecord {
	if location == nil {
		return records
	}
	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if r.Location == *location {
			out = append(out, r)
		}
	}
	return out
}

// Since keeps records dated on or after cutoff.
func Since(records []model.CaseRecord, cutoff time.Time) []model.CaseRecord {
	cutoff = Day(cutoff)
	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if !Day(r.Date).Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// WindowStart returns the first day of a trailing window of the given length
// ending today.
func WindowStart(today time.Time, days int) time.Time {
	return Day(today).AddDate(0, 0, -days)
}
