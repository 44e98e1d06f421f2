// Package services holds the business rules of the lab tracker: the experiment
// lifecycle and its permission gates, users and profiles, notifications, messaging and
// the audit log. Persistence is reached through the small store interfaces below so the
// rules can be exercised without a database.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
)

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListAdminIDs(ctx context.Context) ([]int64, error)
	UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateAvatar(ctx context.Context, id int64, avatar string) error
	UpdatePrefs(ctx context.Context, id int64, prefs json.RawMessage) error
	UpdateProfile(ctx context.Context, id int64, name, phone *string) error
	Delete(ctx context.Context, id int64) error
}

// ExperimentStore persists experiments
type ExperimentStore interface {
	Create(ctx context.Context, exp *models.Experiment) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Experiment, error)
	GetForAssignee(ctx context.Context, id, userID int64) (*models.Experiment, error)
	ListByAssignee(ctx context.Context, userID int64) ([]*models.Experiment, error)
	ListAll(ctx context.Context) ([]*models.Experiment, error)
	Update(ctx context.Context, id int64, title string, description *string) error
	UpdateStatus(ctx context.Context, id int64, status models.ExperimentStatus) error
	Assign(ctx context.Context, id int64, userID *int64) error
	MarkDone(ctx context.Context, id, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// FileStore persists experiment attachment rows
type FileStore interface {
	Create(ctx context.Context, file *models.ExperimentFile) (int64, error)
	ListByExperiment(ctx context.Context, experimentID int64) ([]*models.ExperimentFile, error)
	ListForAssignee(ctx context.Context, userID int64) ([]*models.ExperimentFile, error)
	ListApproved(ctx context.Context) ([]*models.ExperimentFile, error)
	GetInExperiment(ctx context.Context, fileID, experimentID int64) (*models.ExperimentFile, error)
	Delete(ctx context.Context, fileID int64) error
}

// ReportStore persists experiment reports. Getters return nil when nothing exists.
type ReportStore interface {
	Upsert(ctx context.Context, report *models.ExperimentReport) (*models.ExperimentReport, error)
	GetLatest(ctx context.Context, experimentID int64) (*models.ExperimentReport, error)
	GetByUser(ctx context.Context, experimentID, userID int64) (*models.ExperimentReport, error)
}

// NotificationStore persists inbox rows
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// LogStore appends and queries the audit log
type LogStore interface {
	Insert(ctx context.Context, entry *models.LogEntry) error
	List(ctx context.Context, filter models.LogFilter, offset, limit uint64) ([]models.LogEntry, int64, error)
	ListAll(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, error)
}

// MessageStore persists direct messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) (int64, error)
	Conversation(ctx context.Context, a, b int64) ([]*models.Message, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkConversationRead(ctx context.Context, userID, otherID int64) (int64, error)
}

// StatsStore runs dashboard aggregates
type StatsStore interface {
	Counts(ctx context.Context, viewerID int64) (dto.DashboardCounts, error)
	UsersByRole(ctx context.Context) ([]dto.RoleCount, error)
	ExperimentsByStatus(ctx context.Context) ([]dto.StatusCount, error)
}

// Publisher pushes a realtime event to one user's connected clients
type Publisher interface {
	Publish(ctx context.Context, userID int64, eventType string, payload interface{}) error
}

// Actor is the authenticated caller of a request plus the request metadata the
// audit log records
type Actor struct {
	ID        int64
	Role      models.Role
	Email     string
	IP        string
	UserAgent string
}

// IsAdmin reports whether the caller holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// DisplayName is how the caller appears in audit rows and messages
func (a Actor) DisplayName() string {
	if a.Email != "" {
		return a.Email
	}
	return fmt.Sprintf("User %d", a.ID)
}
