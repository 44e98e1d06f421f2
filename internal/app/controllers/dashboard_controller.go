package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// DashboardController serves aggregate numbers for the admin dashboard
type DashboardController struct {
	statsService *services.StatsService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(statsService *services.StatsService) *DashboardController {
	return &DashboardController{statsService: statsService}
}

// GetStats godoc
// @Summary Dashboard statistics
// @Description Headline counts plus users by role and experiments by status. Unread notifications are the caller's own.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=dto.DashboardStats}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/dashboard-stats [get]
func (c *DashboardController) GetStats(ctx *gin.Context) {
	stats, err := c.statsService.Dashboard(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(stats, "Dashboard statistics retrieved"))
}
