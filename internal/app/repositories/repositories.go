package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	ExperimentRepository   *ExperimentRepository
	FileRepository         *FileRepository
	ReportRepository       *ReportRepository
	NotificationRepository *NotificationRepository
	LogRepository          *LogRepository
	MessageRepository      *MessageRepository
	StatsRepository        *StatsRepository
}

// NewRepositories initializes all repositories over one shared pool
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		ExperimentRepository:   NewExperimentRepository(db),
		FileRepository:         NewFileRepository(db),
		ReportRepository:       NewReportRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		LogRepository:          NewLogRepository(db),
		MessageRepository:      NewMessageRepository(db),
		StatsRepository:        NewStatsRepository(db),
	}
}
