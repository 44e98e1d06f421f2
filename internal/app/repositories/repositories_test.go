package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/migrations"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// openTestDB connects to LABTRACK_TEST_DATABASE_URL, migrates and empties every table.
// Tests are skipped when the variable is not set.
func openTestDB(t *testing.T) *Repositories {
	t.Helper()
	url := os.Getenv("LABTRACK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LABTRACK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.NewMigrator(pool, zerolog.Nop()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE users, experiments, experiment_files, experiment_reports,
		notifications, logs, messages RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewRepositories(pool)
}

func strPtr(s string) *string { return &s }

func mustCreateUser(t *testing.T, repos *Repositories, email string, role models.Role) int64 {
	t.Helper()
	id, err := repos.UserRepository.Create(context.Background(), &models.User{
		Name: email, Email: email, Password: "$2a$04$hash", Role: role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return id
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	repos := openTestDB(t)
	mustCreateUser(t, repos, "dup@lab.local", models.RoleUser)

	_, err := repos.UserRepository.Create(context.Background(), &models.User{
		Name: "again", Email: "dup@lab.local", Password: "x", Role: models.RoleUser,
	})
	if !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestExperimentDeleteRemovesFilesAndReports(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	userID := mustCreateUser(t, repos, "u@lab.local", models.RoleUser)

	exp := &models.Experiment{Title: "Resistor Test", AssignedTo: &userID}
	if _, err := repos.ExperimentRepository.Create(ctx, exp); err != nil {
		t.Fatalf("create experiment: %v", err)
	}
	if _, err := repos.FileRepository.Create(ctx, &models.ExperimentFile{
		ExperimentID: exp.ID, OriginalName: "a.txt", StoredName: "1_a.txt", Path: "/uploads/experiments/1/1_a.txt", UploadedBy: &userID,
	}); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := repos.ReportRepository.Upsert(ctx, &models.ExperimentReport{
		ExperimentID: exp.ID, UserID: userID, Result: strPtr("ok"),
	}); err != nil {
		t.Fatalf("upsert report: %v", err)
	}

	if err := repos.ExperimentRepository.Delete(ctx, exp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	files, err := repos.FileRepository.ListByExperiment(ctx, exp.ID)
	if err != nil || len(files) != 0 {
		t.Fatalf("expected no files, got %d (%v)", len(files), err)
	}
	if rep, err := repos.ReportRepository.GetLatest(ctx, exp.ID); err != nil || rep != nil {
		t.Fatalf("expected no report, got %+v (%v)", rep, err)
	}
	if err := repos.ExperimentRepository.Delete(ctx, exp.ID); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestMarkDoneRespectsOwnershipAndApproval(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	owner := mustCreateUser(t, repos, "owner@lab.local", models.RoleUser)
	other := mustCreateUser(t, repos, "other@lab.local", models.RoleUser)

	exp := &models.Experiment{Title: "Ohm", AssignedTo: &owner}
	if _, err := repos.ExperimentRepository.Create(ctx, exp); err != nil {
		t.Fatalf("create: %v", err)
	}

	if n, err := repos.ExperimentRepository.MarkDone(ctx, exp.ID, other); err != nil || n != 0 {
		t.Fatalf("other user must not update, n=%d err=%v", n, err)
	}
	if n, err := repos.ExperimentRepository.MarkDone(ctx, exp.ID, owner); err != nil || n != 1 {
		t.Fatalf("owner update failed, n=%d err=%v", n, err)
	}

	if err := repos.ExperimentRepository.UpdateStatus(ctx, exp.ID, models.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if n, err := repos.ExperimentRepository.MarkDone(ctx, exp.ID, owner); err != nil || n != 0 {
		t.Fatalf("approved experiment must stay approved, n=%d err=%v", n, err)
	}
}

func TestReportUpsertKeepsOneRowPerSubmitter(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	userID := mustCreateUser(t, repos, "r@lab.local", models.RoleUser)
	exp := &models.Experiment{Title: "Diode", AssignedTo: &userID}
	if _, err := repos.ExperimentRepository.Create(ctx, exp); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := repos.ReportRepository.Upsert(ctx, &models.ExperimentReport{ExperimentID: exp.ID, UserID: userID, ToolsUsed: strPtr("probe")})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := repos.ReportRepository.Upsert(ctx, &models.ExperimentReport{ExperimentID: exp.ID, UserID: userID, Result: strPtr("pass")})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row, got %d and %d", first.ID, second.ID)
	}
	if second.ToolsUsed != nil || second.Result == nil || *second.Result != "pass" {
		t.Fatalf("upsert should replace all fields, got %+v", second)
	}
}

func TestLogListFiltersAndPaginates(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	for i, sev := range []models.Severity{models.SeverityInfo, models.SeverityWarning, models.SeverityWarning, models.SeverityWarning} {
		details, _ := json.Marshal(map[string]int{"n": i})
		if err := repos.LogRepository.Insert(ctx, &models.LogEntry{
			Event: "experiment.delete", Severity: sev, ResourceType: strPtr("experiment"), Details: details,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	entries, total, err := repos.LogRepository.List(ctx, models.LogFilter{Severity: "warning"}, 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(entries) != 1 {
		t.Fatalf("expected 1 of 3 warnings, got %d of %d", len(entries), total)
	}

	all, err := repos.LogRepository.ListAll(ctx, models.LogFilter{Query: "EXPERIMENT"})
	if err != nil || len(all) != 4 {
		t.Fatalf("case-insensitive search should match all rows, got %d (%v)", len(all), err)
	}
}
