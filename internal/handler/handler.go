package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/dto"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/service"
)

type Handler struct {
	statsService service.StatsServicer
	router       *gin.Engine
	log          *zap.Logger
}

func NewHandler(statsService service.StatsServicer, log *zap.Logger) *Handler {
	h := &Handler{
		statsService: statsService,
		router:       gin.Default(),
		log:          log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/stats", h.getDashboardStats)
	h.router.GET("/stats/pages", h.getTopPages)
	h.router.GET("/stats/devices", h.getDeviceBreakdown)
	h.router.GET("/stats/realtime", h.getRealTimeVisitors)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// getDashboardStats handles GET /stats
func (h *Handler) getDashboardStats(c *gin.Context) {
	var req dto.GetStatsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid stats request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.statsService.GetDashboardStats(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to get dashboard stats",
			zap.Error(err),
			zap.Int("days", req.Days))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// getTopPages handles GET /stats/pages
func (h *Handler) getTopPages(c *gin.Context) {
	var req dto.GetTopPagesRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid top pages request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.statsService.GetTopPages(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to get top pages",
			zap.Error(err),
			zap.Int("days", req.Days),
			zap.Int("limit", req.Limit))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// getDeviceBreakdown handles GET /stats/devices
func (h *Handler) getDeviceBreakdown(c *gin.Context) {
	var req dto.GetDeviceBreakdownRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid device breakdown request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.statsService.GetDeviceBreakdown(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to get device breakdown",
			zap.Error(err),
			zap.Int("days", req.Days))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// getRealTimeVisitors handles GET /stats/realtime
func (h *Handler) getRealTimeVisitors(c *gin.Context) {
	response, err := h.statsService.GetRealTimeVisitors(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to get real-time visitors", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}
