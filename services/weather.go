package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"flood-report-api/config"
	"flood-report-api/metrics"
)

// WeatherClient talks to an api.weather.gov-style observation API.
type WeatherClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewWeatherClient(cfg config.WeatherConfig, m *metrics.Metrics, logger *slog.Logger) *WeatherClient {
	return &WeatherClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
		logger:  logger,
	}
}

// Observation holds the latest station readings. Missing upstream values
// are zero, never an error.
type Observation struct {
	TemperatureC float64
	Humidity     float64
	Rainfall     float64 // precipitation over the last hour
}

// Snapshot resolves the station nearest to the coordinates and fetches its
// latest observation plus any active alert event names. Three upstream
// round trips, no caching.
func (c *WeatherClient) Snapshot(ctx context.Context, lat, lon float64) (Observation, []string, error) {
	stationsURL, err := c.observationStationsURL(ctx, lat, lon)
	if err != nil {
		return Observation{}, nil, err
	}
	stationID, err := c.firstStationID(ctx, stationsURL)
	if err != nil {
		return Observation{}, nil, err
	}
	obs, err := c.latestObservation(ctx, stationID)
	if err != nil {
		return Observation{}, nil, err
	}
	alerts, err := c.activeAlerts(ctx, lat, lon)
	if err != nil {
		return Observation{}, nil, err
	}
	return obs, alerts, nil
}

func (c *WeatherClient) observationStationsURL(ctx context.Context, lat, lon float64) (string, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)

	var payload struct {
		Properties struct {
			ObservationStations string `json:"observationStations"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, u, "points", &payload); err != nil {
		return "", err
	}
	if payload.Properties.ObservationStations == "" {
		return "", errors.New("no observation stations URL in points response")
	}
	return payload.Properties.ObservationStations, nil
}

func (c *WeatherClient) firstStationID(ctx context.Context, stationsURL string) (string, error) {
	var payload struct {
		Features []struct {
			Properties struct {
				StationIdentifier string `json:"stationIdentifier"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, stationsURL, "stations", &payload); err != nil {
		return "", err
	}
	if len(payload.Features) == 0 {
		return "", errors.New("no observation stations found")
	}
	return payload.Features[0].Properties.StationIdentifier, nil
}

func (c *WeatherClient) latestObservation(ctx context.Context, stationID string) (Observation, error) {
	u := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, url.PathEscape(stationID))

	var payload struct {
		Properties struct {
			Temperature struct {
				Value *float64 `json:"value"`
			} `json:"temperature"`
			RelativeHumidity struct {
				Value *float64 `json:"value"`
			} `json:"relativeHumidity"`
			PrecipitationLastHour struct {
				Value *float64 `json:"value"`
			} `json:"precipitationLastHour"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, u, "observation", &payload); err != nil {
		return Observation{}, err
	}

	return Observation{
		TemperatureC: deref(payload.Properties.Temperature.Value),
		Humidity:     deref(payload.Properties.RelativeHumidity.Value),
		Rainfall:     deref(payload.Properties.PrecipitationLastHour.Value),
	}, nil
}

func (c *WeatherClient) activeAlerts(ctx context.Context, lat, lon float64) ([]string, error) {
	u := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lon)

	var payload struct {
		Features []struct {
			Properties struct {
				Event string `json:"event"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, u, "alerts", &payload); err != nil {
		return nil, err
	}

	events := make([]string, 0, len(payload.Features))
	for _, f := range payload.Features {
		events = append(events, f.Properties.Event)
	}
	return events, nil
}

func (c *WeatherClient) getJSON(ctx context.Context, u, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.metrics.WeatherRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	c.metrics.WeatherRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
