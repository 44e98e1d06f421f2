package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

// LogRepository handles the append-only audit log. There is no update or delete path.
type LogRepository struct {
	db *pgxpool.Pool
}

// NewLogRepository creates a new LogRepository
func NewLogRepository(db *pgxpool.Pool) *LogRepository {
	return &LogRepository{db: db}
}

// Insert appends one entry
func (r *LogRepository) Insert(ctx context.Context, entry *models.LogEntry) error {
	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO logs (user_id, user_name, role, event, resource_type, resource_id, severity, ip, user_agent, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		RETURNING id, created_at`,
		entry.UserID, entry.UserName, entry.Role, entry.Event, entry.ResourceType, entry.ResourceID,
		entry.Severity, entry.IP, entry.UserAgent, details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("error writing audit log: %w", err)
	}
	return nil
}

// applyLogFilter adds the exact-match filters and the free text search
func applyLogFilter(builder squirrel.SelectBuilder, filter models.LogFilter) squirrel.SelectBuilder {
	if filter.Event != "" {
		builder = builder.Where(squirrel.Eq{"event": filter.Event})
	}
	if filter.UserID != nil {
		builder = builder.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.Severity != "" {
		builder = builder.Where(squirrel.Eq{"severity": filter.Severity})
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.ILike{"event": like},
			squirrel.ILike{"user_name": like},
			squirrel.ILike{"role": like},
			squirrel.ILike{"resource_type": like},
			squirrel.ILike{"resource_id": like},
			squirrel.ILike{"details::text": like},
		})
	}
	return builder
}

// List returns one page of matching entries, newest first, plus the total match count
func (r *LogRepository) List(ctx context.Context, filter models.LogFilter, offset, limit uint64) ([]models.LogEntry, int64, error) {
	countSQL, countArgs, err := applyLogFilter(
		squirrel.Select("COUNT(*)").From("logs").PlaceholderFormat(squirrel.Dollar), filter,
	).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count logs SQL")
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting logs: %w", err)
	}
	if total == 0 {
		return []models.LogEntry{}, 0, nil
	}

	entries, err := r.query(ctx, filter, func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		return b.Limit(limit).Offset(offset)
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAll returns every matching entry, newest first
func (r *LogRepository) ListAll(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, error) {
	return r.query(ctx, filter, nil)
}

func (r *LogRepository) query(ctx context.Context, filter models.LogFilter, page func(squirrel.SelectBuilder) squirrel.SelectBuilder) ([]models.LogEntry, error) {
	builder := applyLogFilter(
		squirrel.Select(models.LogColumns...).From("logs").PlaceholderFormat(squirrel.Dollar), filter,
	).OrderBy("created_at DESC", "id DESC")
	if page != nil {
		builder = page(builder)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list logs SQL")
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing logs: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LogEntry, 0)
	for rows.Next() {
		var e models.LogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.UserID, &e.UserName, &e.Role, &e.Event,
			&e.ResourceType, &e.ResourceID, &e.Severity, &e.IP, &e.UserAgent, &details); err != nil {
			return nil, fmt.Errorf("error scanning log: %w", err)
		}
		e.Details = details
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
