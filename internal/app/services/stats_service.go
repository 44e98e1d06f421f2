package services

import (
	"context"

	"github.com/quantumlab/labtrack/internal/app/models/dto"
)

// StatsService builds the admin dashboard
type StatsService struct {
	stats StatsStore
}

// NewStatsService creates a new StatsService
func NewStatsService(stats StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// Dashboard returns headline counts plus the role and status breakdowns.
// unreadNotifications is counted for the viewing admin.
func (s *StatsService) Dashboard(ctx context.Context, viewer Actor) (*dto.DashboardStats, error) {
	counts, err := s.stats.Counts(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	byRole, err := s.stats.UsersByRole(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.stats.ExperimentsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	if byRole == nil {
		byRole = []dto.RoleCount{}
	}
	if byStatus == nil {
		byStatus = []dto.StatusCount{}
	}
	return &dto.DashboardStats{
		Counts:              counts,
		UsersByRole:         byRole,
		ExperimentsByStatus: byStatus,
	}, nil
}
