package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/db"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/dberrors"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

// ExperimentRepository handles database operations for experiments
type ExperimentRepository struct {
	db *pgxpool.Pool
}

// NewExperimentRepository creates a new ExperimentRepository
func NewExperimentRepository(db *pgxpool.Pool) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

// Common select query builder for experiments
func (r *ExperimentRepository) selectExperimentQuery() squirrel.SelectBuilder {
	return squirrel.Select(
		"e.id", "e.title", "e.description", "e.status", "e.assigned_to", "e.created_at", "e.updated_at",
	).
		From("experiments e").
		PlaceholderFormat(squirrel.Dollar)
}

func scanExperiment(row pgx.Row) (*models.Experiment, error) {
	exp := &models.Experiment{}
	err := row.Scan(&exp.ID, &exp.Title, &exp.Description, &exp.Status, &exp.AssignedTo, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (r *ExperimentRepository) queryOne(ctx context.Context, builder squirrel.SelectBuilder) (*models.Experiment, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get experiment SQL")
		return nil, err
	}

	exp, err := scanExperiment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, fmt.Errorf("error getting experiment: %w", err)
	}
	return exp, nil
}

func (r *ExperimentRepository) queryMany(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.Experiment, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list experiments SQL")
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing experiments: %w", err)
	}
	defer rows.Close()

	experiments := make([]*models.Experiment, 0)
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning experiment: %w", err)
		}
		experiments = append(experiments, exp)
	}
	return experiments, rows.Err()
}

// Create inserts a pending experiment and returns its id
func (r *ExperimentRepository) Create(ctx context.Context, exp *models.Experiment) (int64, error) {
	if exp.Status == "" {
		exp.Status = models.StatusPending
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO experiments (title, description, status, assigned_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		exp.Title, exp.Description, exp.Status, exp.AssignedTo).Scan(&exp.ID, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("error creating experiment: %w", err)
	}
	return exp.ID, nil
}

// GetByID retrieves an experiment by ID
func (r *ExperimentRepository) GetByID(ctx context.Context, id int64) (*models.Experiment, error) {
	return r.queryOne(ctx, r.selectExperimentQuery().Where(squirrel.Eq{"e.id": id}))
}

// GetForAssignee retrieves an experiment only if it is assigned to userID
func (r *ExperimentRepository) GetForAssignee(ctx context.Context, id, userID int64) (*models.Experiment, error) {
	return r.queryOne(ctx, r.selectExperimentQuery().Where(squirrel.Eq{"e.id": id, "e.assigned_to": userID}))
}

// ListByAssignee returns the experiments assigned to userID, newest first
func (r *ExperimentRepository) ListByAssignee(ctx context.Context, userID int64) ([]*models.Experiment, error) {
	return r.queryMany(ctx, r.selectExperimentQuery().
		Where(squirrel.Eq{"e.assigned_to": userID}).
		OrderBy("e.created_at DESC", "e.id DESC"))
}

// ListAll returns every experiment with the assignee's name and email, newest first
func (r *ExperimentRepository) ListAll(ctx context.Context) ([]*models.Experiment, error) {
	sql, args, err := r.selectExperimentQuery().
		Columns("u.name", "u.email").
		LeftJoin("users u ON e.assigned_to = u.id").
		OrderBy("e.created_at DESC", "e.id DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list all experiments SQL")
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing experiments: %w", err)
	}
	defer rows.Close()

	experiments := make([]*models.Experiment, 0)
	for rows.Next() {
		exp := &models.Experiment{}
		if err := rows.Scan(&exp.ID, &exp.Title, &exp.Description, &exp.Status, &exp.AssignedTo,
			&exp.CreatedAt, &exp.UpdatedAt, &exp.AssignedUserName, &exp.AssignedUserEmail); err != nil {
			return nil, fmt.Errorf("error scanning experiment: %w", err)
		}
		experiments = append(experiments, exp)
	}
	return experiments, rows.Err()
}

// Update changes title and description
func (r *ExperimentRepository) Update(ctx context.Context, id int64, title string, description *string) error {
	return r.update(ctx, id, map[string]interface{}{"title": title, "description": description})
}

// UpdateStatus sets any lifecycle status; callers validate the value
func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id int64, status models.ExperimentStatus) error {
	return r.update(ctx, id, map[string]interface{}{"status": status})
}

// Assign sets the assignee; nil clears it
func (r *ExperimentRepository) Assign(ctx context.Context, id int64, userID *int64) error {
	return r.update(ctx, id, map[string]interface{}{"assigned_to": userID})
}

func (r *ExperimentRepository) update(ctx context.Context, id int64, fields map[string]interface{}) error {
	sql, args, err := squirrel.Update("experiments").
		SetMap(fields).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update experiment SQL")
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating experiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

// MarkDone moves the caller's own experiment to done. Approved experiments are left
// untouched; the returned count is zero in that case and when the row is not the caller's.
func (r *ExperimentRepository) MarkDone(ctx context.Context, id, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE experiments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND assigned_to = $3 AND status <> $4`,
		models.StatusDone, id, userID, models.StatusApproved)
	if err != nil {
		return 0, fmt.Errorf("error marking experiment done: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes an experiment with its file and report rows in one transaction
func (r *ExperimentRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM experiment_files WHERE experiment_id = $1`, id); err != nil {
			return fmt.Errorf("error deleting experiment files: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM experiment_reports WHERE experiment_id = $1`, id); err != nil {
			return fmt.Errorf("error deleting experiment reports: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM experiments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("error deleting experiment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrResourceNotFound
		}
		return nil
	})
}
