package services

import "testing"

func TestAssessFloodRisk(t *testing.T) {
	tests := []struct {
		name       string
		rainfall   float64
		humidity   float64
		floodAlert bool
		want       string
	}{
		{"heavy rain", 12, 20, false, RiskHighRain},
		{"heavy rain any humidity", 12, 99, false, RiskHighRain},
		{"humid only", 0, 95, false, RiskModerate},
		{"light rain", 2, 10, false, RiskModerate},
		{"dry", 0, 10, false, RiskLow},
		{"alert wins over dry", 0, 10, true, RiskHighAlert},
		{"alert wins over heavy rain", 12, 99, true, RiskHighAlert},
		{"boundary rainfall 10", 10, 0, false, RiskHighRain},
		{"boundary humidity 90", 0, 90, false, RiskModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessFloodRisk(tt.rainfall, tt.humidity, tt.floodAlert)
			if got != tt.want {
				t.Errorf("AssessFloodRisk(%v, %v, %v) = %q, want %q",
					tt.rainfall, tt.humidity, tt.floodAlert, got, tt.want)
			}
		})
	}
}

func TestHasFloodAlert(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		want   bool
	}{
		{"no events", nil, false},
		{"unrelated event", []string{"Red Flag Warning"}, false},
		{"flash flood warning", []string{"Flash Flood Warning"}, true},
		{"case insensitive", []string{"FLOOD ADVISORY"}, true},
		{"mixed events", []string{"Heat Advisory", "Flood Watch"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFloodAlert(tt.events); got != tt.want {
				t.Errorf("HasFloodAlert(%v) = %v, want %v", tt.events, got, tt.want)
			}
		})
	}
}

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		celsius float64
		want    float64
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{20, 68},
	}

	for _, tt := range tests {
		if got := CelsiusToFahrenheit(tt.celsius); got != tt.want {
			t.Errorf("CelsiusToFahrenheit(%v) = %v, want %v", tt.celsius, got, tt.want)
		}
	}
}
