package model

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Rank orders risk levels so Low < Medium < High.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

type RiskScore struct {
	RecentCases   int       `json:"recent_cases"`
	AvgDailyCases float64   `json:"avg_daily_cases"`
	Risk          RiskLevel `json:"risk"`
}

type RiskResponse struct {
	Location   *string              `json:"location"`
	RiskScores map[string]RiskScore `json:"risk_scores"`
}

type Hotspot struct {
	Location string    `json:"location"`
	Disease  string    `json:"disease"`
	Cases    int       `json:"cases"`
	Risk     RiskLevel `json:"risk"`
}

type HotspotResponse struct {
	Hotspots []Hotspot `json:"hotspots"`
}

type Advisory struct {
	Disease *string  `json:"disease,omitempty"`
	Tips    []string `json:"tips"`
}
