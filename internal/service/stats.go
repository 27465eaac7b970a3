package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/dto"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// realTimeWindow bounds how stale a presence record may be while still
// counting as an active visitor.
const realTimeWindow = 5 * time.Minute

// StatsService aggregates dashboard statistics from the analytics store's
// server-side functions.
type StatsService struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(st store.Store, log *zap.Logger) *StatsService {
	return &StatsService{
		store: st,
		log:   log,
		now:   time.Now,
	}
}

type dashboardStatsRow struct {
	TotalVisits        uint64  `json:"total_visits"`
	TotalEvents        uint64  `json:"total_events"`
	TotalSessions      uint64  `json:"total_sessions"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	BounceRate         float64 `json:"bounce_rate"`
}

type topPageRow struct {
	PagePath      string  `json:"page_path"`
	PageTitle     string  `json:"page_title"`
	Count         uint64  `json:"count"`
	AvgTimeOnPage float64 `json:"avg_time_on_page"`
}

type deviceRow struct {
	DeviceType string  `json:"device_type"`
	Count      uint64  `json:"count"`
	Percentage float64 `json:"percentage"`
}

// GetDashboardStats retrieves site totals for the trailing day window.
func (s *StatsService) GetDashboardStats(ctx context.Context, req *dto.GetStatsRequest) (*dto.DashboardStatsResponse, error) {
	s.log.Info("Querying dashboard stats", zap.Int("days", req.Days))

	var rows []dashboardStatsRow
	params := map[string]any{"days_back": req.Days}
	if err := s.store.RPC(ctx, "get_dashboard_stats", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats from store: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store returned no dashboard stats rows")
	}

	row := rows[0]
	return &dto.DashboardStatsResponse{
		Days:               req.Days,
		TotalVisits:        row.TotalVisits,
		TotalEvents:        row.TotalEvents,
		TotalSessions:      row.TotalSessions,
		AvgSessionDuration: row.AvgSessionDuration,
		BounceRate:         row.BounceRate,
	}, nil
}

// GetTopPages retrieves the most viewed pages for the trailing day window.
func (s *StatsService) GetTopPages(ctx context.Context, req *dto.GetTopPagesRequest) (*dto.GetTopPagesResponse, error) {
	s.log.Info("Querying top pages",
		zap.Int("days", req.Days),
		zap.Int("limit", req.Limit))

	var rows []topPageRow
	params := map[string]any{"days_back": req.Days, "limit_count": req.Limit}
	if err := s.store.RPC(ctx, "get_top_pages", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to get top pages from store: %w", err)
	}

	response := &dto.GetTopPagesResponse{
		Days:  req.Days,
		Pages: make([]dto.PageStat, 0, len(rows)),
	}
	for _, row := range rows {
		response.Pages = append(response.Pages, dto.PageStat{
			PagePath:      row.PagePath,
			PageTitle:     row.PageTitle,
			Count:         row.Count,
			AvgTimeOnPage: row.AvgTimeOnPage,
		})
	}

	return response, nil
}

// GetDeviceBreakdown retrieves visit counts grouped by device type.
func (s *StatsService) GetDeviceBreakdown(ctx context.Context, req *dto.GetDeviceBreakdownRequest) (*dto.GetDeviceBreakdownResponse, error) {
	s.log.Info("Querying device breakdown", zap.Int("days", req.Days))

	var rows []deviceRow
	params := map[string]any{"days_back": req.Days}
	if err := s.store.RPC(ctx, "get_device_breakdown", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to get device breakdown from store: %w", err)
	}

	response := &dto.GetDeviceBreakdownResponse{
		Days:    req.Days,
		Devices: make([]dto.DeviceStat, 0, len(rows)),
	}
	for _, row := range rows {
		response.Devices = append(response.Devices, dto.DeviceStat{
			DeviceType: row.DeviceType,
			Count:      row.Count,
			Percentage: row.Percentage,
		})
	}

	return response, nil
}

// GetRealTimeVisitors counts presence records seen within the last five
// minutes.
func (s *StatsService) GetRealTimeVisitors(ctx context.Context) (*dto.RealTimeResponse, error) {
	cutoff := s.now().Add(-realTimeWindow).UTC().Format(time.RFC3339)

	var visitors []domain.RealTimeVisitor
	filter := store.Filter{"last_seen": store.Gte(cutoff)}
	if err := s.store.Query(ctx, store.TableRealTimeVisitors, filter, &visitors); err != nil {
		return nil, fmt.Errorf("failed to count real-time visitors: %w", err)
	}

	return &dto.RealTimeResponse{ActiveVisitors: len(visitors)}, nil
}
