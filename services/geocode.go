package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"flood-report-api/config"
	"flood-report-api/metrics"
)

// GeocodeClient resolves coordinates to administrative regions using a
// Nominatim-compatible reverse geocoding API.
type GeocodeClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewGeocodeClient(cfg config.GeocoderConfig, m *metrics.Metrics, logger *slog.Logger) *GeocodeClient {
	return &GeocodeClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
		logger:  logger,
	}
}

// ReverseResult carries the address fields the county grouping cares about.
// Empty fields mean the geocoder did not report them.
type ReverseResult struct {
	State   string
	County  string
	ISOCode string // ISO3166-2 subdivision code, e.g. "US-NJ"
}

// MatchesState reports whether the result belongs to the two-letter state
// code. Deliberately loose: any one of three comparisons is accepted.
func (r ReverseResult) MatchesState(code string) bool {
	if r.State == "" || r.County == "" {
		return false
	}
	code = strings.ToUpper(code)
	state := strings.ToUpper(r.State)
	return strings.Contains(state, code) ||
		strings.Contains(code, state) ||
		strings.HasSuffix(r.ISOCode, code)
}

// CountyName normalizes the county field for grouping.
func (r ReverseResult) CountyName() string {
	return strings.TrimSpace(strings.ReplaceAll(r.County, " County", ""))
}

// Reverse performs a single reverse-geocode lookup. Callers treat any error
// as "skip this item"; nothing here retries.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (ReverseResult, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lon)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return ReverseResult{}, fmt.Errorf("create request: %w", err)
	}
	// Nominatim requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return ReverseResult{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return ReverseResult{}, fmt.Errorf("geocoder error: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Address struct {
			State  string `json:"state"`
			County string `json:"county"`
			ISO    string `json:"ISO3166-2-lvl4"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return ReverseResult{}, fmt.Errorf("decode response: %w", err)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return ReverseResult{
		State:   payload.Address.State,
		County:  payload.Address.County,
		ISOCode: payload.Address.ISO,
	}, nil
}
