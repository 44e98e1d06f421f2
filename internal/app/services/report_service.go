package services

import (
	"context"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

// ReportService manages the structured write-up attached to an experiment
type ReportService struct {
	reports ReportStore
	guard   *ExperimentGuard
	audit   *AuditService
}

// NewReportService creates a new ReportService
func NewReportService(reports ReportStore, guard *ExperimentGuard, audit *AuditService) *ReportService {
	return &ReportService{reports: reports, guard: guard, audit: audit}
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Upsert writes the caller's report, replacing every field of an earlier one
func (s *ReportService) Upsert(ctx context.Context, actor Actor, experimentID int64, req dto.ReportRequest) (*models.ExperimentReport, error) {
	if _, err := s.guard.Writable(ctx, actor, experimentID); err != nil {
		return nil, err
	}
	if !hasText(req.ToolsUsed) && !hasText(req.ProcedureText) && !hasText(req.Result) {
		return nil, apperrors.NewBadRequestError("At least one field is required")
	}

	report, err := s.reports.Upsert(ctx, &models.ExperimentReport{
		ExperimentID:  experimentID,
		UserID:        actor.ID,
		ToolsUsed:     req.ToolsUsed,
		ProcedureText: req.ProcedureText,
		Result:        req.Result,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.report.upsert",
		ResourceType: "experiment",
		ResourceID:   experimentID,
		Details:      map[string]interface{}{"report_id": report.ID},
	})
	return report, nil
}

// Get returns the latest report for admins and the caller's own report otherwise.
// A nil report with a nil error means none exists.
func (s *ReportService) Get(ctx context.Context, actor Actor, experimentID int64) (*models.ExperimentReport, error) {
	if _, err := s.guard.Access(ctx, actor, experimentID); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return s.reports.GetLatest(ctx, experimentID)
	}
	return s.reports.GetByUser(ctx, experimentID, actor.ID)
}
