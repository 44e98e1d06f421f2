package services

import (
	"context"
	"errors"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

// ApprovedLockMessage is returned when a non-admin touches an approved experiment
const ApprovedLockMessage = "This experiment has been approved. You can no longer modify files or the report."

// ExperimentGuard answers the per-request access questions shared by files and reports.
// Nothing is cached: every call reads the current experiment row.
type ExperimentGuard struct {
	experiments ExperimentStore
}

// NewExperimentGuard creates a new ExperimentGuard
func NewExperimentGuard(experiments ExperimentStore) *ExperimentGuard {
	return &ExperimentGuard{experiments: experiments}
}

// Access loads the experiment and checks that actor is an admin or its assignee
func (g *ExperimentGuard) Access(ctx context.Context, actor Actor, experimentID int64) (*models.Experiment, error) {
	exp, err := g.experiments.GetByID(ctx, experimentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewResourceNotFoundError("Experiment not found")
		}
		return nil, err
	}
	if !actor.IsAdmin() && !exp.IsAssignedTo(actor.ID) {
		return nil, apperrors.NewForbiddenError("Forbidden")
	}
	return exp, nil
}

// Writable is Access plus the approved-lock
func (g *ExperimentGuard) Writable(ctx context.Context, actor Actor, experimentID int64) (*models.Experiment, error) {
	exp, err := g.Access(ctx, actor, experimentID)
	if err != nil {
		return nil, err
	}
	if exp.IsApproved() && !actor.IsAdmin() {
		return nil, apperrors.NewCustomError(apperrors.ErrExperimentApproved, ApprovedLockMessage)
	}
	return exp, nil
}
