package handler

import (
	"context"
	"strconv"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/middleware"
	"github.com/gamassss/shortlink/pkg/response"
	"github.com/gin-gonic/gin"
)

type AnalyticsService interface {
	Summary(ctx context.Context, ownerID, linkID string, days int) (*domain.LinkAnalytics, error)
	ClickHistory(ctx context.Context, ownerID, linkID string, page, pageSize int) (*domain.ClickHistory, error)
}

type AnalyticsHandler struct {
	service AnalyticsService
}

func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	days := 30
	if daysParam := c.Query("days"); daysParam != "" {
		if d, err := strconv.Atoi(daysParam); err == nil && d > 0 && d <= 365 {
			days = d
		}
	}

	analytics, err := h.service.Summary(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), days)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "Analytics retrieved successfully", analytics)
}

func (h *AnalyticsHandler) ClickHistory(c *gin.Context) {
	page, pageSize := pagination(c)

	history, err := h.service.ClickHistory(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "Click history retrieved successfully", history)
}
