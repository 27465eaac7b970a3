package service

import (
	"context"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/dto"
)

// StatsServicer defines the interface for dashboard statistics operations
type StatsServicer interface {
	GetDashboardStats(ctx context.Context, req *dto.GetStatsRequest) (*dto.DashboardStatsResponse, error)
	GetTopPages(ctx context.Context, req *dto.GetTopPagesRequest) (*dto.GetTopPagesResponse, error)
	GetDeviceBreakdown(ctx context.Context, req *dto.GetDeviceBreakdownRequest) (*dto.GetDeviceBreakdownResponse, error)
	GetRealTimeVisitors(ctx context.Context) (*dto.RealTimeResponse, error)
}
