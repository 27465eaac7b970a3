package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
)

// GeoClient resolves the visitor's approximate location from an
// IP-geolocation service.
type GeoClient struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

func NewGeoClient(endpoint string, timeout time.Duration, log *zap.Logger) *GeoClient {
	return &GeoClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      log,
	}
}

// geoResponse mirrors the ipapi.co JSON payload.
type geoResponse struct {
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Timezone    string  `json:"timezone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Lookup performs one best-effort geolocation call. On any failure it
// returns a timezone-only record; it never returns an error.
func (g *GeoClient) Lookup(ctx context.Context, fallbackTimezone string) *domain.GeoData {
	geo, err := g.fetch(ctx)
	if err != nil {
		g.log.Warn("Geo lookup failed, falling back to timezone only", zap.Error(err))
		return &domain.GeoData{Timezone: fallbackTimezone}
	}
	return geo
}

func (g *GeoClient) fetch(ctx context.Context) (*domain.GeoData, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.log.Warn("Failed to close geo response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo service returned %d", resp.StatusCode)
	}

	var payload geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	geo := &domain.GeoData{
		Country:     payload.CountryName,
		CountryCode: payload.CountryCode,
		Region:      payload.Region,
		City:        payload.City,
		Timezone:    payload.Timezone,
	}
	if payload.Latitude != 0 || payload.Longitude != 0 {
		geo.Coordinates = &domain.Coordinates{
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
		}
	}

	return geo, nil
}
