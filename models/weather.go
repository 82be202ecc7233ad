package models

import "time"

// WeatherObservation is an append-only log row; every weather query writes
// one and nothing reads them back through the API.
type WeatherObservation struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Rainfall    float64   `gorm:"column:rainfall;not null" json:"rainfall"`
	Temperature float64   `gorm:"column:temperature;not null" json:"temperature"`
	Humidity    float64   `gorm:"column:humidity;not null" json:"humidity"`
	FloodRisk   string    `gorm:"column:flood_risk;size:50;not null" json:"flood_risk"`
	Timestamp   time.Time `gorm:"column:timestamp" json:"timestamp"`
}

func (WeatherObservation) TableName() string { return "weather_observations" }
