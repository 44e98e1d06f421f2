package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/websocket"
)

func TestResistorExperimentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	second := f.addUser(t, "Second Admin", "admin2@lab.local", models.RoleAdmin)
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)

	exp, err := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{
		Title:      "  Resistor Test ",
		AssignedTo: dto.NewFlexibleID(user.ID),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if exp.Title != "Resistor Test" || exp.Status != models.StatusPending {
		t.Fatalf("unexpected experiment %+v", exp)
	}

	inbox, _ := f.notifications.List(ctx, user.ID)
	if len(inbox) != 1 || inbox[0].Title != "New Experiment Assigned" ||
		inbox[0].Message != "You have been assigned a new experiment: Resistor Test." {
		t.Fatalf("assignee inbox = %+v", inbox)
	}
	if f.pub.count(user.ID, websocket.EventNotification) != 1 {
		t.Fatal("assignee should get a realtime push")
	}

	if err := f.experiments.MarkDone(ctx, user, exp.ID, "done"); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	for _, a := range []services.Actor{admin, second} {
		notes, _ := f.notifications.List(ctx, a.ID)
		if len(notes) != 1 || notes[0].Message != "Ada marked experiment #1 as done." ||
			notes[0].Link == nil || *notes[0].Link != "/admin-experiments" {
			t.Fatalf("admin %d inbox = %+v", a.ID, notes)
		}
	}

	if err := f.experiments.UpdateStatus(ctx, admin, exp.ID, "approved"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.files.Upload(ctx, user, exp.ID, textUpload("data.txt", "v=ir"))
	expectError(t, err, apperrors.ErrExperimentApproved, services.ApprovedLockMessage)

	_, err = f.reports.Upsert(ctx, user, exp.ID, dto.ReportRequest{Result: strPtr("ok")})
	expectError(t, err, apperrors.ErrExperimentApproved, services.ApprovedLockMessage)

	if _, err := f.files.Upload(ctx, admin, exp.ID, textUpload("review.txt", "looks good")); err != nil {
		t.Fatalf("admin upload on approved experiment: %v", err)
	}

	// approved stays approved
	err = f.experiments.MarkDone(ctx, user, exp.ID, "done")
	expectError(t, err, apperrors.ErrExperimentApproved, services.ApprovedLockMessage)
	got, _ := f.db.Experiments.GetByID(ctx, exp.ID)
	if got.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}

	want := []string{"experiment.create", "experiment.status.done", "experiment.status.update", "experiment.file.upload"}
	if strings.Join(f.events(), ",") != strings.Join(want, ",") {
		t.Fatalf("audit events = %v, want %v", f.events(), want)
	}
}

func TestCreateExperimentRequiresTitle(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)

	_, err := f.experiments.Create(context.Background(), admin, dto.CreateExperimentRequest{Title: "   "})
	expectError(t, err, apperrors.ErrValidationFailed, "title is required")
	if len(f.events()) != 0 {
		t.Fatal("rejected create must not be audited")
	}
}

func TestCreateUnassignedSendsNoNotification(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)

	if _, err := f.experiments.Create(context.Background(), admin, dto.CreateExperimentRequest{Title: "Ohm"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("unexpected pushes %+v", f.pub.events)
	}
}

func TestMarkDoneRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	other := f.addUser(t, "Other", "other@lab.local", models.RoleUser)

	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Diode", AssignedTo: dto.NewFlexibleID(owner.ID)})

	err := f.experiments.MarkDone(ctx, owner, exp.ID, "approved")
	expectError(t, err, apperrors.ErrValidationFailed, "Users can only mark experiments as 'done'")

	err = f.experiments.MarkDone(ctx, other, exp.ID, "done")
	expectError(t, err, apperrors.ErrResourceNotFound, "Experiment not found or not assigned to this user")

	err = f.experiments.MarkDone(ctx, owner, 999, "done")
	expectError(t, err, apperrors.ErrResourceNotFound, "Experiment not found or not assigned to this user")

	got, _ := f.db.Experiments.GetByID(ctx, exp.ID)
	if got.Status != models.StatusPending {
		t.Fatalf("status changed to %s", got.Status)
	}
}

func TestAdminStatusAndAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Capacitor"})

	expectError(t, f.experiments.UpdateStatus(ctx, admin, exp.ID, "archived"), apperrors.ErrValidationFailed, "Invalid status value")
	expectError(t, f.experiments.UpdateStatus(ctx, admin, 42, "active"), apperrors.ErrResourceNotFound, "Experiment not found")

	// admins may jump backwards
	for _, st := range []string{"approved", "pending"} {
		if err := f.experiments.UpdateStatus(ctx, admin, exp.ID, st); err != nil {
			t.Fatalf("status %s: %v", st, err)
		}
	}

	expectError(t, f.experiments.Assign(ctx, admin, 42, int64Ptr(user.ID)), apperrors.ErrResourceNotFound, "Experiment not found")
	if err := f.experiments.Assign(ctx, admin, exp.ID, int64Ptr(user.ID)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	notes, _ := f.notifications.List(ctx, user.ID)
	if len(notes) != 1 || notes[0].Message != `Admin assigned you a new experiment: "Capacitor".` {
		t.Fatalf("assign notice = %+v", notes)
	}

	mine, _ := f.experiments.ListMine(ctx, user)
	if len(mine) != 1 || mine[0].ID != exp.ID {
		t.Fatalf("ListMine = %+v", mine)
	}
	all, _ := f.experiments.ListAll(ctx)
	if len(all) != 1 || all[0].AssignedUserEmail == nil || *all[0].AssignedUserEmail != "ada@lab.local" {
		t.Fatalf("ListAll should join the assignee, got %+v", all)
	}
}

func TestDeleteExperimentCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Ohm", AssignedTo: dto.NewFlexibleID(user.ID)})

	if _, err := f.files.Upload(ctx, user, exp.ID, textUpload("a.txt", "1")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := f.reports.Upsert(ctx, user, exp.ID, dto.ReportRequest{ToolsUsed: strPtr("multimeter")}); err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := f.experiments.Delete(ctx, admin, exp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	files, _ := f.db.Files.ListByExperiment(ctx, exp.ID)
	rep, _ := f.db.Reports.GetLatest(ctx, exp.ID)
	if len(files) != 0 || rep != nil {
		t.Fatalf("expected cascade, files=%d report=%+v", len(files), rep)
	}

	expectError(t, f.experiments.Delete(ctx, admin, exp.ID), apperrors.ErrResourceNotFound, "Experiment not found")

	entries := f.db.Logs.Entries()
	last := entries[len(entries)-1]
	if last.Event != "experiment.delete" || last.Severity != models.SeverityWarning {
		t.Fatalf("last audit entry = %+v", last)
	}
}

func TestGetMineHidesOtherUsersExperiments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	owner := f.addUser(t, "Owner", "owner@lab.local", models.RoleUser)
	other := f.addUser(t, "Other", "other@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Lens", AssignedTo: dto.NewFlexibleID(owner.ID)})

	if _, err := f.experiments.GetMine(ctx, owner, exp.ID); err != nil {
		t.Fatalf("owner GetMine: %v", err)
	}
	_, err := f.experiments.GetMine(ctx, other, exp.ID)
	expectError(t, err, apperrors.ErrResourceNotFound, "Experiment not found or not assigned to this user")
}

func TestAssignNilClearsAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)
	exp, _ := f.experiments.Create(ctx, admin, dto.CreateExperimentRequest{Title: "Inductor", AssignedTo: dto.NewFlexibleID(user.ID)})

	if err := f.experiments.Assign(ctx, admin, exp.ID, nil); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	mine, _ := f.experiments.ListMine(ctx, user)
	if len(mine) != 0 {
		t.Fatalf("ListMine after unassign = %+v", mine)
	}
	stored, err := f.db.Experiments.GetByID(ctx, exp.ID)
	if err != nil || stored.AssignedTo != nil {
		t.Fatalf("stored assignee = %v, err %v", stored, err)
	}

	// only the creation notice, nothing for the unassignment
	if notes, _ := f.notifications.List(ctx, user.ID); len(notes) != 1 {
		t.Fatalf("notifications = %+v", notes)
	}

	entries := f.db.Logs.Entries()
	last := entries[len(entries)-1]
	if last.Event != "experiment.assign" || string(last.Details) != `{"assigned_to":null}` {
		t.Fatalf("audit entry = %s %s", last.Event, last.Details)
	}

	// the assignee lost access to files
	_, err = f.files.List(ctx, user, exp.ID)
	expectError(t, err, apperrors.ErrPermissionDenied, "Forbidden")
}
