package analytics

import (
	"errors"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
)

var (
	ErrInsufficientPoints = errors.New("at least two points are required to fit a line")
	ErrZeroDenominator    = errors.New("all x values are equal")
)

const (
	testFraction = 0.2
	splitSeed    = 42
)

// Line is an ordinary least-squares fit y = Intercept + Slope*x.
type Line struct {
	Slope     float64
	Intercept float64
}

func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// FitLine computes the least-squares line through (xs[i], ys[i]).
func FitLine(xs, ys []float64) (Line, error) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return Line{}, ErrInsufficientPoints
	}

	n := float64(len(xs))
	var sumX, sumY, sumXY, sumX2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return Line{}, ErrZeroDenominator
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	return Line{Slope: slope, Intercept: intercept}, nil
}

// TrendFit is the outcome of fitting one disease series.
type TrendFit struct {
	Line        Line
	TrainPoints int
	// TestMSE is nil when the series was too short to hold out points.
	TestMSE *float64
}

// FitTrend fits count ~ days_since_start over a full-history series. Points
// are split 80/20 with a fixed seed; the line is fit on the training part and
// scored on the held-out part. When the training part would have fewer than
// two points the whole series is used and no error metric is reported.
func FitTrend(series DailySeries) (TrendFit, error) {
	n := series.Len()
	if n < 2 {
		return TrendFit{}, ErrInsufficientPoints
	}

	xs := make([]float64, n)
	ys := series.Counts()
	for i := range xs {
		xs[i] = float64(i)
	}

	testN := int(math.Ceil(testFraction * float64(n)))
	if n-testN < 2 {
		line, err := FitLine(xs, ys)
		if err != nil {
			return TrendFit{}, err
		}
		return TrendFit{Line: line, TrainPoints: n}, nil
	}

	perm := rand.New(rand.NewSource(splitSeed)).Perm(n)
	testIdx, trainIdx := perm[:testN], perm[testN:]

	trainX, trainY := pick(xs, trainIdx), pick(ys, trainIdx)
	line, err := FitLine(trainX, trainY)
	if err != nil {
		return TrendFit{}, err
	}

	sqErrs := make([]float64, 0, testN)
	for _, i := range testIdx {
		d := line.At(xs[i]) - ys[i]
		sqErrs = append(sqErrs, d*d)
	}
	mse, err := stats.Mean(sqErrs)
	if err != nil {
		return TrendFit{}, err
	}

	return TrendFit{Line: line, TrainPoints: len(trainIdx), TestMSE: &mse}, nil
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
