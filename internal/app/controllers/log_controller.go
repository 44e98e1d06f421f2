package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
	"github.com/quantumlab/labtrack/internal/pkg/helpers"
)

// LogController exposes the audit log to admins
type LogController struct {
	auditService *services.AuditService
}

// NewLogController creates a new LogController
func NewLogController(auditService *services.AuditService) *LogController {
	return &LogController{
		auditService: auditService,
	}
}

// ListLogs godoc
// @Summary Query the audit log
// @Description Filters are exact except q, which is a case-insensitive substring match across event, user name, role, resource and details
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Param event query string false "Event tag, e.g. experiment.status.update"
// @Param user_id query int false "Actor user ID"
// @Param severity query string false "info, warning or error"
// @Param q query string false "Free-text search"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.StructuredResponse{data=dto.LogPage}
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/logs [get]
func (c *LogController) ListLogs(ctx *gin.Context) {
	var query dto.LogQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	query.Page, query.Limit = helpers.ParsePaginationParams(ctx)

	page, err := c.auditService.List(ctx.Request.Context(), query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(page, "Logs retrieved successfully"))
}

// ExportLogs godoc
// @Summary Export the audit log as CSV
// @Description Same filters as the list endpoint, unpaginated. An empty result yields an empty body.
// @Tags logs
// @Produce text/csv
// @Security BearerAuth
// @Param event query string false "Event tag"
// @Param user_id query int false "Actor user ID"
// @Param severity query string false "info, warning or error"
// @Param q query string false "Free-text search"
// @Success 200 {file} file "logs.csv"
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/logs/export [get]
func (c *LogController) ExportLogs(ctx *gin.Context) {
	var query dto.LogQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	body, err := c.auditService.ExportCSV(ctx.Request.Context(), query.Filter())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename=logs.csv")
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}
