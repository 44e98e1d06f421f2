package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/filestorage"
	"github.com/rs/zerolog"
)

// Notification links used by the lifecycle
const (
	userExperimentsLink  = "/user/experiments"
	adminExperimentsLink = "/admin-experiments"
)

const notMineMessage = "Experiment not found or not assigned to this user"

// ExperimentService drives the experiment lifecycle for admins and assignees
type ExperimentService struct {
	experiments   ExperimentStore
	users         UserStore
	storage       filestorage.FileStorage
	audit         *AuditService
	notifications *NotificationService
	logger        zerolog.Logger
}

// NewExperimentService creates a new ExperimentService
func NewExperimentService(
	experiments ExperimentStore,
	users UserStore,
	storage filestorage.FileStorage,
	audit *AuditService,
	notifications *NotificationService,
	logger zerolog.Logger,
) *ExperimentService {
	return &ExperimentService{
		experiments:   experiments,
		users:         users,
		storage:       storage,
		audit:         audit,
		notifications: notifications,
		logger:        logger.With().Str("component", "experiments").Logger(),
	}
}

func notFoundExperiment(err error) error {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return apperrors.NewResourceNotFoundError("Experiment not found")
	}
	return err
}

// Create stores a pending experiment and notifies its assignee, if any
func (s *ExperimentService) Create(ctx context.Context, actor Actor, req dto.CreateExperimentRequest) (*models.Experiment, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title is required")
	}

	assignedTo := req.AssignedTo.Ptr()
	exp := &models.Experiment{
		Title:       title,
		Description: req.Description,
		Status:      models.StatusPending,
		AssignedTo:  assignedTo,
	}
	if _, err := s.experiments.Create(ctx, exp); err != nil {
		return nil, err
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.create",
		ResourceType: "experiment",
		ResourceID:   exp.ID,
		Details:      map[string]interface{}{"title": title, "assigned_to": assignedTo},
	})

	if exp.AssignedTo != nil {
		link := userExperimentsLink
		s.notifications.NotifyAsync(*exp.AssignedTo,
			"New Experiment Assigned",
			fmt.Sprintf("You have been assigned a new experiment: %s.", title),
			&link)
	}
	return exp, nil
}

// ListAll returns every experiment, newest first
func (s *ExperimentService) ListAll(ctx context.Context) ([]*models.Experiment, error) {
	return s.experiments.ListAll(ctx)
}

// Update edits title and description
func (s *ExperimentService) Update(ctx context.Context, actor Actor, id int64, req dto.UpdateExperimentRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return apperrors.NewValidationError("title", "title is required")
	}
	if err := s.experiments.Update(ctx, id, title, req.Description); err != nil {
		return notFoundExperiment(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.update",
		ResourceType: "experiment",
		ResourceID:   id,
		Details:      map[string]interface{}{"title": title, "description": req.Description},
	})
	return nil
}

// UpdateStatus lets an admin set any of the four statuses
func (s *ExperimentService) UpdateStatus(ctx context.Context, actor Actor, id int64, status string) error {
	st := models.ExperimentStatus(status)
	if !st.Valid() {
		return apperrors.NewValidationError("status", "Invalid status value")
	}
	if err := s.experiments.UpdateStatus(ctx, id, st); err != nil {
		return notFoundExperiment(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.status.update",
		ResourceType: "experiment",
		ResourceID:   id,
		Details:      map[string]interface{}{"status": st},
	})
	return nil
}

// Assign hands the experiment to a user and notifies them. A nil assignee clears the
// assignment and notifies nobody.
func (s *ExperimentService) Assign(ctx context.Context, actor Actor, id int64, assignedTo *int64) error {
	if assignedTo != nil && *assignedTo <= 0 {
		assignedTo = nil
	}
	if err := s.experiments.Assign(ctx, id, assignedTo); err != nil {
		return notFoundExperiment(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.assign",
		ResourceType: "experiment",
		ResourceID:   id,
		Details:      map[string]interface{}{"assigned_to": assignedTo},
	})
	if assignedTo == nil {
		return nil
	}

	label := fmt.Sprintf("#%d", id)
	if exp, err := s.experiments.GetByID(ctx, id); err == nil {
		label = exp.Title
	} else {
		s.logger.Warn().Err(err).Int64("experimentID", id).Msg("Could not load experiment title for assignment notice")
	}
	link := userExperimentsLink
	s.notifications.NotifyAsync(*assignedTo,
		"New Experiment Assigned",
		fmt.Sprintf(`Admin assigned you a new experiment: "%s".`, label),
		&link)
	return nil
}

// Delete removes the experiment with its files and reports, then its upload directory
func (s *ExperimentService) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := s.experiments.Delete(ctx, id); err != nil {
		return notFoundExperiment(err)
	}

	if s.storage != nil {
		if err := s.storage.RemoveExperimentDir(id); err != nil {
			s.logger.Warn().Err(err).Int64("experimentID", id).Msg("Failed to remove experiment uploads")
		}
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.delete",
		ResourceType: "experiment",
		ResourceID:   id,
		Severity:     models.SeverityWarning,
	})
	return nil
}

// ListMine returns the experiments assigned to the caller
func (s *ExperimentService) ListMine(ctx context.Context, actor Actor) ([]*models.Experiment, error) {
	return s.experiments.ListByAssignee(ctx, actor.ID)
}

// GetMine returns one experiment assigned to the caller
func (s *ExperimentService) GetMine(ctx context.Context, actor Actor, id int64) (*models.Experiment, error) {
	exp, err := s.experiments.GetForAssignee(ctx, id, actor.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewResourceNotFoundError(notMineMessage)
		}
		return nil, err
	}
	return exp, nil
}

// MarkDone lets an assignee move their experiment to done. Any other target status is
// rejected, and approved experiments stay approved.
func (s *ExperimentService) MarkDone(ctx context.Context, actor Actor, id int64, status string) error {
	if models.ExperimentStatus(status) != models.StatusDone {
		return apperrors.NewValidationError("status", "Users can only mark experiments as 'done'")
	}

	n, err := s.experiments.MarkDone(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		exp, err := s.experiments.GetForAssignee(ctx, id, actor.ID)
		if err == nil && exp.IsApproved() {
			return apperrors.NewCustomError(apperrors.ErrExperimentApproved, ApprovedLockMessage)
		}
		if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
			return err
		}
		return apperrors.NewResourceNotFoundError(notMineMessage)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.status.done",
		ResourceType: "experiment",
		ResourceID:   id,
		Details:      map[string]interface{}{"status": models.StatusDone},
	})

	s.notifyAdminsDone(ctx, actor, id)
	return nil
}

// notifyAdminsDone fans a notice out to every admin. Lookups are best-effort and
// each notice is queued independently.
func (s *ExperimentService) notifyAdminsDone(ctx context.Context, actor Actor, id int64) {
	name := actor.DisplayName()
	if u, err := s.users.GetByID(ctx, actor.ID); err == nil && u.Name != "" {
		name = u.Name
	}

	admins, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("experimentID", id).Msg("Failed to load admins for done notification")
		return
	}

	link := adminExperimentsLink
	message := fmt.Sprintf("%s marked experiment #%d as done.", name, id)
	for _, adminID := range admins {
		s.notifications.NotifyAsync(adminID, "Experiment marked as done", message, &link)
	}
}
