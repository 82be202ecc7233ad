package handlers

import (
	"log/slog"
	"net/http"

	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type WeatherHandler struct {
	db      *gorm.DB
	weather *services.WeatherClient
	clock   clockwork.Clock
	logger  *slog.Logger
}

func NewWeatherHandler(db *gorm.DB, weather *services.WeatherClient, clock clockwork.Clock, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{db: db, weather: weather, clock: clock, logger: logger}
}

// GetData returns the latest weather snapshot and flood-risk label for the
// coordinates, and appends a historical observation row. Every read writes.
func (h *WeatherHandler) GetData(c *gin.Context) {
	latitude, longitude, ok := parseCoords(c)
	if !ok {
		return
	}

	obs, alerts, err := h.weather.Snapshot(c.Request.Context(), latitude, longitude)
	if err != nil {
		h.logger.Error("weather snapshot failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather service unavailable"})
		return
	}

	risk := services.AssessFloodRisk(obs.Rainfall, obs.Humidity, services.HasFloodAlert(alerts))

	record := models.WeatherObservation{
		Rainfall:    obs.Rainfall,
		Temperature: services.CelsiusToFahrenheit(obs.TemperatureC),
		Humidity:    obs.Humidity,
		FloodRisk:   risk,
		Timestamp:   h.clock.Now(),
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store observation"})
		return
	}

	c.JSON(http.StatusOK, record)
}
