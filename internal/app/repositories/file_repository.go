package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/dberrors"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

// FileRepository handles experiment attachment rows
type FileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

// Common select query builder for files with uploader and experiment joins
func (r *FileRepository) selectFileQuery() squirrel.SelectBuilder {
	return squirrel.Select(
		"f.id", "f.experiment_id", "f.original_name", "f.stored_name", "f.mime_type", "f.size_bytes",
		"f.path", "f.uploaded_by", "f.uploaded_at", "u.name", "e.title",
	).
		From("experiment_files f").
		Join("experiments e ON e.id = f.experiment_id").
		LeftJoin("users u ON u.id = f.uploaded_by").
		OrderBy("f.uploaded_at DESC", "f.id DESC").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *FileRepository) query(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.ExperimentFile, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list files SQL")
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.ExperimentFile, 0)
	for rows.Next() {
		f := &models.ExperimentFile{}
		var mime *string
		if err := rows.Scan(&f.ID, &f.ExperimentID, &f.OriginalName, &f.StoredName, &mime, &f.Size,
			&f.Path, &f.UploadedBy, &f.UploadedAt, &f.UploadedByName, &f.ExperimentTitle); err != nil {
			return nil, fmt.Errorf("error scanning file: %w", err)
		}
		if mime != nil {
			f.MimeType = *mime
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Create inserts a file row and returns its id
func (r *FileRepository) Create(ctx context.Context, file *models.ExperimentFile) (int64, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO experiment_files (experiment_id, original_name, stored_name, mime_type, size_bytes, path, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at`,
		file.ExperimentID, file.OriginalName, file.StoredName, file.MimeType, file.Size, file.Path, file.UploadedBy,
	).Scan(&file.ID, &file.UploadedAt)
	if err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}
	return file.ID, nil
}

// ListByExperiment returns the files of one experiment, newest first
func (r *FileRepository) ListByExperiment(ctx context.Context, experimentID int64) ([]*models.ExperimentFile, error) {
	return r.query(ctx, r.selectFileQuery().Where(squirrel.Eq{"f.experiment_id": experimentID}))
}

// ListForAssignee returns files of every experiment assigned to userID
func (r *FileRepository) ListForAssignee(ctx context.Context, userID int64) ([]*models.ExperimentFile, error) {
	return r.query(ctx, r.selectFileQuery().Where(squirrel.Eq{"e.assigned_to": userID}))
}

// ListApproved returns files of approved experiments
func (r *FileRepository) ListApproved(ctx context.Context) ([]*models.ExperimentFile, error) {
	return r.query(ctx, r.selectFileQuery().Where(squirrel.Eq{"e.status": models.StatusApproved}))
}

// GetInExperiment retrieves a file only when it belongs to experimentID
func (r *FileRepository) GetInExperiment(ctx context.Context, fileID, experimentID int64) (*models.ExperimentFile, error) {
	f := &models.ExperimentFile{}
	var mime *string
	err := r.db.QueryRow(ctx, `
		SELECT id, experiment_id, original_name, stored_name, mime_type, size_bytes, path, uploaded_by, uploaded_at
		FROM experiment_files
		WHERE id = $1 AND experiment_id = $2`,
		fileID, experimentID,
	).Scan(&f.ID, &f.ExperimentID, &f.OriginalName, &f.StoredName, &mime, &f.Size, &f.Path, &f.UploadedBy, &f.UploadedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, fmt.Errorf("error getting file: %w", err)
	}
	if mime != nil {
		f.MimeType = *mime
	}
	return f, nil
}

// Delete removes a file row
func (r *FileRepository) Delete(ctx context.Context, fileID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM experiment_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}
