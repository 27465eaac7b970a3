package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies which store table an analytics record belongs to.
type Kind string

const (
	KindPageView Kind = "pageview"
	KindEvent    Kind = "event"
	KindSession  Kind = "session"
)

// Device type classification. Tablet detection wins over mobile,
// mobile wins over the desktop default.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// DeviceInfo is an immutable snapshot derived once per session from the
// host environment and attached to every outbound record.
type DeviceInfo struct {
	DeviceType       string `json:"device_type"`
	BrowserName      string `json:"browser_name"`
	BrowserVersion   string `json:"browser_version"`
	OSName           string `json:"os_name"`
	OSVersion        string `json:"os_version"`
	ScreenResolution string `json:"screen_resolution"`
	ColorDepth       int    `json:"color_depth"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	IsMobile         bool   `json:"is_mobile"`
	IsTouchDevice    bool   `json:"is_touch_device"`
}

// GeoData is a best-effort geolocation record. When the IP lookup fails
// only Timezone is populated.
type GeoData struct {
	Country     string       `json:"country,omitempty"`
	CountryCode string       `json:"country_code,omitempty"`
	Region      string       `json:"region,omitempty"`
	City        string       `json:"city,omitempty"`
	Timezone    string       `json:"timezone,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// UTMParams carries first-touch campaign attribution for the session.
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// IsZero reports whether no UTM parameter was present in the URL.
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

type Viewport struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	ScrollDepth  int `json:"scroll_depth"`
	TimeToScroll int `json:"time_to_scroll"`
}

// PageView is written to the page_views table on every page-view call.
type PageView struct {
	Timestamp  time.Time   `json:"timestamp"`
	PagePath   string      `json:"page_path"`
	PageTitle  string      `json:"page_title"`
	Referrer   string      `json:"referrer"`
	UserAgent  string      `json:"user_agent"`
	SessionID  string      `json:"session_id"`
	IPHash     string      `json:"ip_hash,omitempty"`
	GeoData    *GeoData    `json:"geo_data,omitempty"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
	UTMParams  *UTMParams  `json:"utm_params,omitempty"`
	Viewport   Viewport    `json:"viewport"`
}

// Event is a custom analytics event (clicks, form submits, time-on-page).
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	EventName  string         `json:"event_name"`
	EventData  map[string]any `json:"event_data"`
	SessionID  string         `json:"session_id"`
	PagePath   string         `json:"page_path"`
	UserAgent  string         `json:"user_agent,omitempty"`
	DeviceInfo *DeviceInfo    `json:"device_info,omitempty"`
	UTMParams  *UTMParams     `json:"utm_params,omitempty"`
}

// Session summarizes one tracker lifetime. Upserted on session end keyed
// by session_id; page view and event counts are filled in by the store.
type Session struct {
	SessionID  string      `json:"session_id"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    *time.Time  `json:"end_time,omitempty"`
	DurationMS int64       `json:"duration,omitempty"`
	PageViews  int         `json:"page_views"`
	Events     int         `json:"events"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
	GeoData    *GeoData    `json:"geo_data,omitempty"`
	UTMParams  *UTMParams  `json:"utm_params,omitempty"`
}

// PerformanceMetrics holds page load timings in milliseconds. Fields
// default to 0 until the corresponding timeline entry has been observed.
type PerformanceMetrics struct {
	PageLoadTime           float64 `json:"page_load_time"`
	DOMContentLoaded       float64 `json:"dom_content_loaded"`
	FirstContentfulPaint   float64 `json:"first_contentful_paint"`
	LargestContentfulPaint float64 `json:"largest_contentful_paint"`
	FirstInputDelay        float64 `json:"first_input_delay"`
	CumulativeLayoutShift  float64 `json:"cumulative_layout_shift"`
	TimeToInteractive      float64 `json:"time_to_interactive"`
}

// PerformanceRecord is the stored form of PerformanceMetrics.
type PerformanceRecord struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	PagePath  string    `json:"page_path"`
	PerformanceMetrics
}

// AnalyticsError captures a failure inside the tracking logic itself.
type AnalyticsError struct {
	Timestamp         time.Time      `json:"timestamp"`
	ErrorType         string         `json:"error_type"`
	ErrorMessage      string         `json:"error_message"`
	ErrorStack        string         `json:"error_stack,omitempty"`
	SessionID         string         `json:"session_id"`
	PagePath          string         `json:"page_path"`
	UserAgent         string         `json:"user_agent"`
	AdditionalContext map[string]any `json:"additional_context,omitempty"`
}

// RealTimeVisitor is the presence record upserted on page views and
// deleted at session end.
type RealTimeVisitor struct {
	SessionID  string      `json:"session_id"`
	LastSeen   time.Time   `json:"last_seen"`
	PagePath   string      `json:"page_path"`
	UserAgent  string      `json:"user_agent"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
	GeoData    *GeoData    `json:"geo_data,omitempty"`
}

// OfflineQueueItem wraps a record that failed delivery. RetryCount is
// incremented on every unsuccessful replay; the item is evicted once it
// reaches MaxRetries.
type OfflineQueueItem struct {
	ID         string          `json:"id"`
	Type       Kind            `json:"type"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}
