package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// NotificationController serves the caller's notification inbox. The same handlers
// are mounted under /admin and /user.
type NotificationController struct {
	notificationService *services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// ListNotifications godoc
// @Summary List my notifications
// @Description Returns the 100 newest notifications for the caller
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=[]models.Notification}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications [get]
// @Router /admin/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	list, err := c.notificationService.List(ctx.Request.Context(), actorFrom(ctx).ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(list, "Notifications retrieved successfully"))
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.IDResponse} "Notification marked as read"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications/{id}/read [put]
// @Router /admin/notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "notification")
	if !ok {
		return
	}

	if err := c.notificationService.MarkRead(ctx.Request.Context(), actorFrom(ctx).ID, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.IDResponse{ID: id}, "Notification marked as read"))
}

// MarkAllRead godoc
// @Summary Mark all my notifications read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=dto.AffectedResponse} "All notifications marked as read"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications/mark-all-read [put]
// @Router /admin/notifications/mark-all-read [put]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	affected, err := c.notificationService.MarkAllRead(ctx.Request.Context(), actorFrom(ctx).ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.AffectedResponse{Affected: affected}, "All notifications marked as read"))
}

// UnreadCount godoc
// @Summary Count my unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=dto.CountResponse}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /user/notifications/unread-count [get]
// @Router /admin/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := c.notificationService.UnreadCount(ctx.Request.Context(), actorFrom(ctx).ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.CountResponse{Count: count}, "Unread count retrieved"))
}
