package services

import (
	"context"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
	"github.com/quantumlab/labtrack/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// MessageService handles direct messages between users
type MessageService struct {
	messages  MessageStore
	publisher Publisher
	tasks     taskqueue.Dispatcher
	logger    zerolog.Logger
}

// NewMessageService creates a new MessageService. publisher may be nil.
func NewMessageService(messages MessageStore, publisher Publisher, tasks taskqueue.Dispatcher, logger zerolog.Logger) *MessageService {
	return &MessageService{
		messages:  messages,
		publisher: publisher,
		tasks:     tasks,
		logger:    logger.With().Str("component", "messages").Logger(),
	}
}

// Send stores a message from the caller and pushes it to the receiver
func (s *MessageService) Send(ctx context.Context, actor Actor, req dto.SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if req.ReceiverID <= 0 || content == "" {
		return nil, apperrors.NewBadRequestError("receiverId and content are required")
	}

	msg := &models.Message{
		SenderID:   actor.ID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		pushed := *msg
		s.tasks.Submit("message.push", func(ctx context.Context) error {
			return s.publisher.Publish(ctx, pushed.ReceiverID, websocket.EventMessage, pushed)
		})
	}
	return msg, nil
}

// Conversation returns the messages between the caller and other, oldest first
func (s *MessageService) Conversation(ctx context.Context, actor Actor, otherID int64) ([]*models.Message, error) {
	return s.messages.Conversation(ctx, actor.ID, otherID)
}

// UnreadCount returns how many messages addressed to the caller are unread
func (s *MessageService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.messages.CountUnread(ctx, actor.ID)
}

// MarkConversationRead marks every unread message from other to the caller as read
func (s *MessageService) MarkConversationRead(ctx context.Context, actor Actor, otherID int64) (int64, error) {
	return s.messages.MarkConversationRead(ctx, actor.ID, otherID)
}
