package services

import "strings"

// Flood risk labels, fixed strings stored with every weather observation.
const (
	RiskHighAlert = "High likelihood of flooding (active flood alert present)"
	RiskHighRain  = "High likelihood of flooding (heavy recent precipitation detected)"
	RiskModerate  = "Moderate likelihood of flooding"
	RiskLow       = "Low likelihood of flooding"
)

var floodKeywords = []string{"flood", "flash flood", "flood watch", "flood warning", "flood advisory"}

// HasFloodAlert reports whether any alert event text names a flood condition.
func HasFloodAlert(events []string) bool {
	for _, event := range events {
		for _, keyword := range floodKeywords {
			if containsFold(event, keyword) {
				return true
			}
		}
	}
	return false
}

// AssessFloodRisk applies the fixed decision order: active flood alert wins,
// then heavy precipitation, then the moderate thresholds, else low.
func AssessFloodRisk(rainfall, humidity float64, floodAlert bool) string {
	switch {
	case floodAlert:
		return RiskHighAlert
	case rainfall >= 10:
		return RiskHighRain
	case rainfall >= 2 || humidity >= 90:
		return RiskModerate
	default:
		return RiskLow
	}
}

func CelsiusToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
