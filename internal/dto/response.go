package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DashboardStatsResponse represents aggregated site totals
type DashboardStatsResponse struct {
	Days               int     `json:"days"`
	TotalVisits        uint64  `json:"total_visits"`
	TotalEvents        uint64  `json:"total_events"`
	TotalSessions      uint64  `json:"total_sessions"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	BounceRate         float64 `json:"bounce_rate"`
}

// PageStat represents one page in the top pages breakdown
type PageStat struct {
	PagePath      string  `json:"page_path"`
	PageTitle     string  `json:"page_title"`
	Count         uint64  `json:"count"`
	AvgTimeOnPage float64 `json:"avg_time_on_page"`
}

// GetTopPagesResponse represents the top pages query response
type GetTopPagesResponse struct {
	Days  int        `json:"days"`
	Pages []PageStat `json:"pages"`
}

// DeviceStat represents one device type in the breakdown
type DeviceStat struct {
	DeviceType string  `json:"device_type"`
	Count      uint64  `json:"count"`
	Percentage float64 `json:"percentage"`
}

// GetDeviceBreakdownResponse represents the device breakdown response
type GetDeviceBreakdownResponse struct {
	Days    int          `json:"days"`
	Devices []DeviceStat `json:"devices"`
}

// RealTimeResponse represents the current active visitor count
type RealTimeResponse struct {
	ActiveVisitors int `json:"active_visitors"`
}
