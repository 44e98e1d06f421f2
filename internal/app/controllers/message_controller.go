package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// MessageController handles direct messages between users
type MessageController struct {
	messageService *services.MessageService
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService *services.MessageService) *MessageController {
	return &MessageController{
		messageService: messageService,
	}
}

// SendMessage godoc
// @Summary Send a direct message
// @Description Stores the message and pushes it to the receiver's open websocket connections
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendMessageRequest true "Receiver and content"
// @Success 201 {object} dto.StructuredResponse{data=dto.IDResponse} "Message sent"
// @Failure 400 {object} dto.ErrorResponse "receiverId and content are required"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	var req dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	msg, err := c.messageService.Send(ctx.Request.Context(), actorFrom(ctx), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(dto.IDResponse{ID: msg.ID}, "Message sent"))
}

// GetConversation godoc
// @Summary Get a conversation
// @Description Messages exchanged with another user in both directions, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param otherUserId path int true "Other user ID"
// @Success 200 {object} dto.StructuredResponse{data=[]models.Message}
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /messages/conversation/{otherUserId} [get]
func (c *MessageController) GetConversation(ctx *gin.Context) {
	otherID, ok := pathID(ctx, "otherUserId", "user")
	if !ok {
		return
	}

	messages, err := c.messageService.Conversation(ctx.Request.Context(), actorFrom(ctx), otherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(messages, "Conversation retrieved successfully"))
}

// UnreadCount godoc
// @Summary Count my unread messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StructuredResponse{data=dto.CountResponse}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /messages/unread-count [get]
func (c *MessageController) UnreadCount(ctx *gin.Context) {
	count, err := c.messageService.UnreadCount(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.CountResponse{Count: count}, "Unread count retrieved"))
}

// MarkConversationRead godoc
// @Summary Mark a conversation read
// @Description Flips only the caller's inbound unread messages from the other user
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param otherUserId path int true "Other user ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.AffectedResponse} "Conversation marked as read"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /messages/conversation/{otherUserId}/mark-read [put]
func (c *MessageController) MarkConversationRead(ctx *gin.Context) {
	otherID, ok := pathID(ctx, "otherUserId", "user")
	if !ok {
		return
	}

	affected, err := c.messageService.MarkConversationRead(ctx.Request.Context(), actorFrom(ctx), otherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.AffectedResponse{Affected: affected}, "Conversation marked as read"))
}
