package model

import "time"

// TrendModel is a fitted count ~ days_since_start line for one disease.
type TrendModel struct {
	Disease     string    `json:"disease"`
	Slope       float64   `json:"slope"`
	Intercept   float64   `json:"intercept"`
	StartDate   time.Time `json:"start_date"`
	TrainedAt   time.Time `json:"trained_at"`
	TrainPoints int       `json:"train_points"`
	// TestMSE is the held-out error; nil when the series was too short to split.
	TestMSE *float64 `json:"test_mse,omitempty"`
}

// Predict evaluates the line at the given days-since-start.
func (m *TrendModel) Predict(daysSinceStart int) float64 {
	return m.Intercept + m.Slope*float64(daysSinceStart)
}

// DaysSinceStart counts whole days between the model's start date and day.
func (m *TrendModel) DaysSinceStart(day time.Time) int {
	return int(day.Sub(m.StartDate).Hours() / 24)
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

type PredictRequest struct {
	Disease     string
	DaysFromNow *int
	Range       *int
}

type PredictedPoint struct {
	DaysFromNow    int     `json:"days_from_now"`
	PredictedCases float64 `json:"predicted_cases"`
	Anomaly        *bool   `json:"anomaly,omitempty"`
}

// SinglePrediction is returned for a days_from_now request.
type SinglePrediction struct {
	Disease        string  `json:"disease"`
	PredictedCases float64 `json:"predicted_cases"`
	DaysFromNow    int     `json:"days_from_now"`
}

// RangePrediction is returned for a range request.
type RangePrediction struct {
	Disease          string           `json:"disease"`
	Predictions      []PredictedPoint `json:"predictions"`
	TrendExplanation *string          `json:"trend_explanation"`
}

// Prediction holds exactly one of Single or Range.
type Prediction struct {
	Single *SinglePrediction
	Range  *RangePrediction
}

// TrainingReport summarizes a retraining run.
type TrainingReport struct {
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Trained    []string               `json:"trained"`
	Skipped    []string               `json:"skipped"`
	Models     map[string]*TrendModel `json:"models"`
	Records    int                    `json:"records"`
}
