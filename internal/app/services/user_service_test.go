package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)

	resp, err := f.auth.Login(ctx, dto.LoginRequest{Email: "ada@lab.local", Password: "secret123"}, "127.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" || resp.User.ID != user.ID || resp.User.Role != models.RoleUser {
		t.Fatalf("unexpected login response %+v", resp)
	}

	_, err = f.auth.Login(ctx, dto.LoginRequest{Email: "ada@lab.local", Password: "wrong"}, "", "")
	expectError(t, err, apperrors.ErrInvalidCredentials, "Invalid credentials")

	_, err = f.auth.Login(ctx, dto.LoginRequest{Email: "nobody@lab.local", Password: "secret123"}, "", "")
	expectError(t, err, apperrors.ErrInvalidCredentials, "Invalid credentials")

	f.db.Users.UpdateStatus(ctx, user.ID, models.UserStatusInactive)
	_, err = f.auth.Login(ctx, dto.LoginRequest{Email: "ada@lab.local", Password: "secret123"}, "", "")
	expectError(t, err, apperrors.ErrAccountDisabled, "Account is inactive")
}

func TestLoginRejectsPlaintextPasswords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.Users.Create(ctx, &models.User{Name: "Legacy", Email: "legacy@lab.local", Password: "hunter2", Role: models.RoleUser})

	_, err := f.auth.Login(ctx, dto.LoginRequest{Email: "legacy@lab.local", Password: "hunter2"}, "", "")
	expectError(t, err, apperrors.ErrInvalidCredentials, "Invalid credentials")
}

func TestRegisterForcesUserRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, dto.RegisterRequest{Name: "Grace", Email: "grace@lab.local", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != models.RoleUser {
		t.Fatalf("role = %s", u.Role)
	}
	_, err = f.auth.Register(ctx, dto.RegisterRequest{Name: "Again", Email: "grace@lab.local", Password: "secret123"})
	expectError(t, err, apperrors.ErrEmailAlreadyExists, "Email already exists")
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Admin", "admin@lab.local", models.RoleAdmin)

	created, err := f.users.CreateUser(ctx, admin, dto.CreateUserRequest{
		Name: "Tech", Email: "tech@lab.local", Password: "secret123", Role: "user",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Password == "secret123" {
		t.Fatal("password must be hashed")
	}

	_, err = f.users.CreateUser(ctx, admin, dto.CreateUserRequest{
		Name: "Dup", Email: "tech@lab.local", Password: "secret123", Role: "user",
	})
	expectError(t, err, apperrors.ErrEmailAlreadyExists, "Email already exists")

	if err := f.users.UpdateStatus(ctx, admin, created.ID, "inactive"); err != nil {
		t.Fatalf("status: %v", err)
	}
	expectError(t, f.users.UpdateStatus(ctx, admin, 99, "active"), apperrors.ErrUserNotFound, "User not found")

	if err := f.users.ResetPassword(ctx, admin, created.ID, "brandnew1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	f.users.UpdateStatus(ctx, admin, created.ID, "active")
	if _, err := f.auth.Login(ctx, dto.LoginRequest{Email: "tech@lab.local", Password: "brandnew1"}, "", ""); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	expectError(t, f.users.DeleteUser(ctx, admin, admin.ID), apperrors.ErrBadRequest, "You cannot delete your own account")
	if err := f.users.DeleteUser(ctx, admin, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectError(t, f.users.DeleteUser(ctx, admin, created.ID), apperrors.ErrUserNotFound, "User not found")

	var sawReset bool
	for _, e := range f.db.Logs.Entries() {
		if e.Event == "user.password.reset" {
			sawReset = e.Severity == models.SeverityWarning
		}
	}
	if !sawReset {
		t.Fatal("password reset should be audited as a warning")
	}
}

func TestProfileSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)

	profile, err := f.users.GetProfile(ctx, user, "http://lab.local:5000")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Avatar != models.DefaultAvatar || profile.AvatarURL != "http://lab.local:5000"+models.DefaultAvatar {
		t.Fatalf("default avatar not applied: %+v", profile)
	}
	if string(profile.Prefs) != "{}" {
		t.Fatalf("prefs = %s", profile.Prefs)
	}

	expectError(t, f.users.UpdateProfile(ctx, user, dto.UpdateProfileRequest{}), apperrors.ErrBadRequest, "No fields to update")
	if err := f.users.UpdateProfile(ctx, user, dto.UpdateProfileRequest{Phone: strPtr("+1 555 0100")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, _ = f.users.GetProfile(ctx, user, "")
	if profile.Name != "Ada" || profile.Phone == nil || *profile.Phone != "+1 555 0100" {
		t.Fatalf("partial update lost data: %+v", profile)
	}

	err = f.users.ChangePassword(ctx, user, dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another1"})
	expectError(t, err, apperrors.ErrBadRequest, "Current password is incorrect")
	if err := f.users.ChangePassword(ctx, user, dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "another1"}); err != nil {
		t.Fatalf("change password: %v", err)
	}

	expectError(t, f.users.UpdatePrefs(ctx, user, json.RawMessage(`[1,2]`)), apperrors.ErrValidationFailed, "Preferences must be a JSON object")
	if err := f.users.UpdatePrefs(ctx, user, json.RawMessage(`{"email":false}`)); err != nil {
		t.Fatalf("prefs: %v", err)
	}
	prefs, _ := f.users.GetPrefs(ctx, user)
	if string(prefs) != `{"email":false}` {
		t.Fatalf("prefs = %s", prefs)
	}
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ada", "ada@lab.local", models.RoleUser)

	_, err := f.users.UploadAvatar(ctx, user, textUpload("cv.txt", "x"), "")
	expectError(t, err, apperrors.ErrValidationFailed, "Only image files are allowed")

	png := textUpload("me.PNG", "\x89PNG")
	png.MimeType = "image/png"
	resp, err := f.users.UploadAvatar(ctx, user, png, "http://lab.local")
	if err != nil {
		t.Fatalf("avatar: %v", err)
	}
	if resp.AvatarURL != "http://lab.local"+resp.Avatar {
		t.Fatalf("unexpected avatar response %+v", resp)
	}

	big := textUpload("big.png", "x")
	big.MimeType = "image/png"
	big.Size = services.MaxAvatarBytes + 1
	_, err = f.users.UploadAvatar(ctx, user, big, "")
	expectError(t, err, apperrors.ErrFileTooLarge, "File is too large. Max size is 5MB.")
}
