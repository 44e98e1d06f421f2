package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/dberrors"
)

const reportColumns = `id, experiment_id, user_id, tools_used, procedure_text, result, created_at, updated_at`

// ReportRepository handles experiment report rows
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Upsert inserts or replaces the report of (experiment, user)
func (r *ReportRepository) Upsert(ctx context.Context, report *models.ExperimentReport) (*models.ExperimentReport, error) {
	saved := &models.ExperimentReport{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO experiment_reports (experiment_id, user_id, tools_used, procedure_text, result)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (experiment_id, user_id) DO UPDATE SET
			tools_used = EXCLUDED.tools_used,
			procedure_text = EXCLUDED.procedure_text,
			result = EXCLUDED.result,
			updated_at = NOW()
		RETURNING `+reportColumns,
		report.ExperimentID, report.UserID, report.ToolsUsed, report.ProcedureText, report.Result,
	).Scan(&saved.ID, &saved.ExperimentID, &saved.UserID, &saved.ToolsUsed, &saved.ProcedureText,
		&saved.Result, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error saving report: %w", err)
	}
	return saved, nil
}

// GetLatest returns the most recently updated report of any submitter, or nil
func (r *ReportRepository) GetLatest(ctx context.Context, experimentID int64) (*models.ExperimentReport, error) {
	return r.getOne(ctx, `
		SELECT `+reportColumns+` FROM experiment_reports
		WHERE experiment_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`, experimentID)
}

// GetByUser returns userID's report on the experiment, or nil
func (r *ReportRepository) GetByUser(ctx context.Context, experimentID, userID int64) (*models.ExperimentReport, error) {
	return r.getOne(ctx, `
		SELECT `+reportColumns+` FROM experiment_reports
		WHERE experiment_id = $1 AND user_id = $2`, experimentID, userID)
}

func (r *ReportRepository) getOne(ctx context.Context, sql string, args ...interface{}) (*models.ExperimentReport, error) {
	rep := &models.ExperimentReport{}
	err := r.db.QueryRow(ctx, sql, args...).Scan(&rep.ID, &rep.ExperimentID, &rep.UserID, &rep.ToolsUsed,
		&rep.ProcedureText, &rep.Result, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting report: %w", err)
	}
	return rep, nil
}
