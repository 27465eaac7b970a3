package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service Service
	Store   Store
	Storage Storage
	Tracker Tracker
}

// Service holds settings for the dashboard API binary.
type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
}

// Store configures the remote analytics store REST client.
type Store struct {
	URL        string `envconfig:"ANALYTICS_STORE_URL" required:"true"`
	APIKey     string `envconfig:"ANALYTICS_STORE_API_KEY" default:""`
	TimeoutSec int    `envconfig:"ANALYTICS_STORE_TIMEOUT_SEC" default:"10"`
}

// Storage configures the durable local key-value store backing the
// offline queue and the session attribution slot.
type Storage struct {
	Path string `envconfig:"ANALYTICS_STORAGE_PATH" default:"./data/analytics"`
}

// Tracker holds the batching, retry and probe settings of the tracker.
type Tracker struct {
	BatchSize       int    `envconfig:"TRACKER_BATCH_SIZE" default:"10"`
	FlushIntervalMS int    `envconfig:"TRACKER_FLUSH_INTERVAL_MS" default:"5000"`
	MaxRetries      int    `envconfig:"TRACKER_MAX_RETRIES" default:"3"`
	QueueMaxItems   int    `envconfig:"TRACKER_QUEUE_MAX_ITEMS" default:"500"`
	ProbeTimeoutSec int    `envconfig:"TRACKER_PROBE_TIMEOUT_SEC" default:"3"`
	IPSalt          string `envconfig:"TRACKER_IP_SALT" default:"portfolio_salt_2024"`
	GeoEndpoint     string `envconfig:"TRACKER_GEO_ENDPOINT" default:"https://ipapi.co/json/"`
	IPEndpoint      string `envconfig:"TRACKER_IP_ENDPOINT" default:"https://api.ipify.org?format=json"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
