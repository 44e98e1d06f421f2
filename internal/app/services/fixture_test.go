package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/repositories/memory"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/quantumlab/labtrack/internal/pkg/filestorage"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
	"github.com/rs/zerolog"
)

type pushed struct {
	UserID int64
	Event  string
}

// recordingPublisher captures realtime pushes
type recordingPublisher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPublisher) Publish(_ context.Context, userID int64, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{UserID: userID, Event: eventType})
	return nil
}

func (p *recordingPublisher) count(userID int64, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.UserID == userID && e.Event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	db            *memory.DB
	pub           *recordingPublisher
	storage       *filestorage.LocalStorage
	audit         *services.AuditService
	notifications *services.NotificationService
	experiments   *services.ExperimentService
	files         *services.FileService
	reports       *services.ReportService
	messages      *services.MessageService
	users         services.UserService
	auth          *services.AuthService
	stats         *services.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth.BcryptCost = 4

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	log := zerolog.Nop()
	tasks := taskqueue.Inline{Logger: log}
	db := memory.New()
	pub := &recordingPublisher{}

	audit := services.NewAuditService(db.Logs, tasks, log)
	notifications := services.NewNotificationService(db.Notifications, pub, tasks, log)
	guard := services.NewExperimentGuard(db.Experiments)
	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenIssuer: "labtrack-test"})

	return &fixture{
		db:            db,
		pub:           pub,
		storage:       storage,
		audit:         audit,
		notifications: notifications,
		experiments:   services.NewExperimentService(db.Experiments, db.Users, storage, audit, notifications, log),
		files:         services.NewFileService(db.Files, guard, storage, audit, 1, log),
		reports:       services.NewReportService(db.Reports, guard, audit),
		messages:      services.NewMessageService(db.Messages, pub, tasks, log),
		users:         services.NewUserService(db.Users, storage, audit, log),
		auth:          services.NewAuthService(db.Users, jwt, audit, log),
		stats:         services.NewStatsService(db.Stats),
	}
}

// addUser creates an account with password "secret123" and returns the actor for it
func (f *fixture) addUser(t *testing.T, name, email string, role models.Role) services.Actor {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{Name: name, Email: email, Password: hash, Role: role}
	if _, err := f.db.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return services.Actor{ID: u.ID, Role: role, Email: email, IP: "127.0.0.1", UserAgent: "go-test"}
}

func (f *fixture) events() []string {
	entries := f.db.Logs.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Event
	}
	return out
}

func textUpload(name, body string) *services.Upload {
	return &services.Upload{
		Filename: name,
		Size:     int64(len(body)),
		MimeType: "text/plain",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

// expectError fails unless err wraps sentinel and carries message
func expectError(t *testing.T, err, sentinel error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q, got nil", message)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
	if got := apperrors.Message(err); got != message {
		t.Fatalf("expected message %q, got %q", message, got)
	}
}
