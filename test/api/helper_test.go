package api_test

import (
	"fmt"
	"testing"
	"time"
)

// Helper function to generate unique names
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// reportCase files one case dated daysAgo days back at location.
func reportCase(t *testing.T, disease, location string, daysAgo int) {
	t.Helper()

	resp := makeRequest("POST", "/report-case", map[string]interface{}{
		"disease":     disease,
		"symptoms":    "fever",
		"location":    location,
		"age_group":   "18-35",
		"gender":      "female",
		"date":        time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02"),
		"doctor_name": "Dr. Test",
		"clinic_name": "Test Clinic",
	}, "")

	if resp.StatusCode != 201 {
		t.Fatalf("failed to report case: %d %s", resp.StatusCode, resp.Raw)
	}
}
