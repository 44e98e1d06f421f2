package services_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

func TestFileAccessChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	stranger := f.addUser(t, "Stranger", "stranger@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Prism", AssignedTo: dto.NewFlexibleID(owner.ID)})

	_, err := f.files.List(ctx, stranger, exp.ID)
	expectError(t, err, apperrors.ErrPermissionDenied, "Forbidden")

	_, err = f.files.List(ctx, owner, 404)
	expectError(t, err, apperrors.ErrResourceNotFound, "Experiment not found")

	_, err = f.files.Upload(ctx, owner, exp.ID, nil)
	expectError(t, err, apperrors.ErrValidationFailed, "No file uploaded")

	big := textUpload("huge.bin", "x")
	big.Size = f.files.MaxUploadBytes() + 1
	_, err = f.files.Upload(ctx, owner, exp.ID, big)
	expectError(t, err, apperrors.ErrFileTooLarge, "File is too large. Max size is 1MB.")
}

// trackedSource records whether a service asked for the file
type trackedSource struct {
	received bool
	up       *services.Upload
	err      error
}

func (s *trackedSource) Receive() (*services.Upload, error) {
	s.received = true
	return s.up, s.err
}

func TestUploadReceivesFileOnlyAfterAccessCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	stranger := f.addUser(t, "Stranger", "stranger@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Prism", AssignedTo: dto.NewFlexibleID(owner.ID)})

	src := &trackedSource{up: textUpload("a.csv", "1")}
	_, err := f.files.Upload(ctx, stranger, exp.ID, src)
	expectError(t, err, apperrors.ErrPermissionDenied, "Forbidden")
	if src.received {
		t.Fatal("file received before the access check")
	}

	_, err = f.files.Upload(ctx, owner, 404, src)
	expectError(t, err, apperrors.ErrResourceNotFound, "Experiment not found")
	if src.received {
		t.Fatal("file received for a missing experiment")
	}

	// transport failures surface unchanged
	src = &trackedSource{err: services.FileTooLargeError(f.files.MaxUploadBytes())}
	_, err = f.files.Upload(ctx, owner, exp.ID, src)
	expectError(t, err, apperrors.ErrFileTooLarge, "File is too large. Max size is 1MB.")
	if !src.received {
		t.Fatal("allowed upload never received the file")
	}
}

func TestFileUploadListDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Prism", AssignedTo: dto.NewFlexibleID(owner.ID)})

	first, err := f.files.Upload(ctx, owner, exp.ID, textUpload("spectrum data.csv", "nm,i\n500,3\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(first.Path, "/uploads/experiments/1/") || !strings.HasSuffix(first.Path, "_spectrum_data.csv") {
		t.Fatalf("unexpected path %q", first.Path)
	}
	onDisk := filepath.Join(f.storage.BasePath(), strings.TrimPrefix(first.Path, "/uploads/"))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	second, err := f.files.Upload(ctx, owner, exp.ID, textUpload("notes.txt", "ok"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	list, err := f.files.List(ctx, admin, exp.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].UploadedByName == nil || *list[0].UploadedByName != "Owner" {
		t.Fatalf("uploader name not joined: %+v", list[0])
	}

	err = f.files.Delete(ctx, owner, exp.ID, 99)
	expectError(t, err, apperrors.ErrResourceNotFound, "File not found")

	if err := f.files.Delete(ctx, owner, exp.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("expected file removed from disk, stat err=%v", err)
	}

	mine, _ := f.files.ListForAssignee(ctx, owner)
	if len(mine) != 1 || mine[0].ExperimentTitle == nil || *mine[0].ExperimentTitle != "Prism" {
		t.Fatalf("ListForAssignee = %+v", mine)
	}
}

func TestListApprovedFilesIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	done, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Done", AssignedTo: dto.NewFlexibleID(owner.ID)})
	open, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Open", AssignedTo: dto.NewFlexibleID(owner.ID)})
	f.files.Upload(ctx, owner, done.ID, textUpload("final.txt", "1"))
	f.files.Upload(ctx, owner, open.ID, textUpload("draft.txt", "2"))
	f.experiments.UpdateStatus(ctx, admin, done.ID, "approved")

	_, err := f.files.ListApproved(ctx, owner)
	expectError(t, err, apperrors.ErrPermissionDenied, "Forbidden")

	approved, err := f.files.ListApproved(ctx, admin)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(approved) != 1 || approved[0].OriginalName != "final.txt" {
		t.Fatalf("ListApproved = %+v", approved)
	}
}

func TestReportUpsertAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Pendulum", AssignedTo: dto.NewFlexibleID(owner.ID)})

	rep, err := f.reports.Get(ctx, owner, exp.ID)
	if err != nil || rep != nil {
		t.Fatalf("expected no report yet, got %+v (%v)", rep, err)
	}

	_, err = f.reports.Upsert(ctx, owner, exp.ID, dto.ReportRequest{Result: strPtr("  ")})
	expectError(t, err, apperrors.ErrBadRequest, "At least one field is required")

	first, err := f.reports.Upsert(ctx, owner, exp.ID, dto.ReportRequest{ToolsUsed: strPtr("stopwatch")})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := f.reports.Upsert(ctx, owner, exp.ID, dto.ReportRequest{Result: strPtr("T = 2.01s")})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID || second.ToolsUsed != nil {
		t.Fatalf("upsert should replace the same row, got %+v then %+v", first, second)
	}

	latest, err := f.reports.Get(ctx, admin, exp.ID)
	if err != nil || latest == nil || *latest.Result != "T = 2.01s" {
		t.Fatalf("admin Get = %+v (%v)", latest, err)
	}
}
