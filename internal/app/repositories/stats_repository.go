package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
)

// StatsRepository runs the read-only dashboard aggregates
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Counts returns the headline numbers; unread notifications are counted for viewerID
func (r *StatsRepository) Counts(ctx context.Context, viewerID int64) (dto.DashboardCounts, error) {
	var c dto.DashboardCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE status = $1),
			(SELECT COUNT(*) FROM experiments),
			(SELECT COUNT(*) FROM experiments WHERE status = $2),
			(SELECT COUNT(*) FROM experiments WHERE status = $3),
			(SELECT COUNT(*) FROM notifications WHERE user_id = $4 AND is_read = FALSE)`,
		models.UserStatusActive, models.StatusPending, models.StatusApproved, viewerID,
	).Scan(&c.TotalUsers, &c.ActiveUsers, &c.TotalExperiments, &c.PendingCount, &c.ApprovedCount, &c.UnreadNotifications)
	if err != nil {
		return c, fmt.Errorf("error loading dashboard counts: %w", err)
	}
	return c, nil
}

// UsersByRole groups users by role
func (r *StatsRepository) UsersByRole(ctx context.Context) ([]dto.RoleCount, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("error grouping users: %w", err)
	}
	defer rows.Close()

	out := make([]dto.RoleCount, 0)
	for rows.Next() {
		var rc dto.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, fmt.Errorf("error scanning role count: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// ExperimentsByStatus groups experiments by status
func (r *StatsRepository) ExperimentsByStatus(ctx context.Context) ([]dto.StatusCount, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM experiments GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("error grouping experiments: %w", err)
	}
	defer rows.Close()

	out := make([]dto.StatusCount, 0)
	for rows.Next() {
		var sc dto.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("error scanning status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
