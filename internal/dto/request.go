package dto

// GetStatsRequest represents a dashboard stats query
type GetStatsRequest struct {
	Days int `form:"days,default=30" binding:"min=1,max=365"`
}

// GetTopPagesRequest represents a top pages query
type GetTopPagesRequest struct {
	Days  int `form:"days,default=30" binding:"min=1,max=365"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

// GetDeviceBreakdownRequest represents a device breakdown query
type GetDeviceBreakdownRequest struct {
	Days int `form:"days,default=30" binding:"min=1,max=365"`
}
