package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flood-report-api/config"
	"flood-report-api/metrics"
	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newWeatherRouter(t *testing.T, db *gorm.DB, baseURL string, clock clockwork.Clock) *gin.Engine {
	t.Helper()
	client := services.NewWeatherClient(config.WeatherConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, metrics.NewForTesting(), discardLogger())
	h := NewWeatherHandler(db, client, clock, discardLogger())
	router := gin.New()
	router.GET("/data/:lat/:lon", h.GetData)
	return router
}

func fakeObservationServer(rainfall, temperature string, alerts ...string) *httptest.Server {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/points/"):
			fmt.Fprintf(w, `{"properties":{"observationStations":"%s/stations"}}`, srv.URL)
		case r.URL.Path == "/stations":
			fmt.Fprint(w, `{"features":[{"properties":{"stationIdentifier":"KTEB"}}]}`)
		case strings.HasPrefix(r.URL.Path, "/stations/KTEB/observations"):
			fmt.Fprintf(w, `{"properties":{"temperature":{"value":%s},"relativeHumidity":{"value":55},"precipitationLastHour":{"value":%s}}}`,
				temperature, rainfall)
		case strings.HasPrefix(r.URL.Path, "/alerts/active"):
			events := make([]string, 0, len(alerts))
			for _, a := range alerts {
				events = append(events, fmt.Sprintf(`{"properties":{"event":"%s"}}`, a))
			}
			fmt.Fprintf(w, `{"features":[%s]}`, strings.Join(events, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv
}

func TestGetData_HeavyRainStoresHighRisk(t *testing.T) {
	srv := fakeObservationServer("12.0", "20.0")
	defer srv.Close()

	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	router := newWeatherRouter(t, db, srv.URL, clock)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/data/40.85/-74.06", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload models.WeatherObservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, services.RiskHighRain, payload.FloodRisk)
	assert.Equal(t, 12.0, payload.Rainfall)
	assert.Equal(t, 68.0, payload.Temperature, "stored in Fahrenheit")

	var stored models.WeatherObservation
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, services.RiskHighRain, stored.FloodRisk)
	assert.True(t, clock.Now().Equal(stored.Timestamp))
}

func TestGetData_FloodAlertOutranksDryReading(t *testing.T) {
	srv := fakeObservationServer("0.0", "25.0", "Flash Flood Warning")
	defer srv.Close()

	db := newTestDB(t)
	router := newWeatherRouter(t, db, srv.URL, clockwork.NewFakeClock())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/data/40.85/-74.06", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload models.WeatherObservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, services.RiskHighAlert, payload.FloodRisk)
}

func TestGetData_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	db := newTestDB(t)
	router := newWeatherRouter(t, db, srv.URL, clockwork.NewFakeClock())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/data/40.85/-74.06", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.WeatherObservation{}).Count(&count).Error)
	assert.Zero(t, count, "failed lookups store nothing")
}

func TestGetData_InvalidCoordinates(t *testing.T) {
	db := newTestDB(t)
	router := newWeatherRouter(t, db, "http://127.0.0.1:0", clockwork.NewFakeClock())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/data/abc/-74.06", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
