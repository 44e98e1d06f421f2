package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/quantumlab/labtrack/internal/pkg/filestorage"
	"github.com/rs/zerolog"
)

// MaxAvatarBytes bounds profile image uploads
const MaxAvatarBytes = 5 << 20

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UserService defines the interface for user administration and self-service settings
type UserService interface {
	CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateStatus(ctx context.Context, actor Actor, id int64, status string) error
	ResetPassword(ctx context.Context, actor Actor, id int64, password string) error
	DeleteUser(ctx context.Context, actor Actor, id int64) error

	GetProfile(ctx context.Context, actor Actor, baseURL string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, actor Actor, req dto.UpdateProfileRequest) error
	ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error
	UploadAvatar(ctx context.Context, actor Actor, in UploadSource, baseURL string) (*dto.AvatarResponse, error)
	GetPrefs(ctx context.Context, actor Actor) (json.RawMessage, error)
	UpdatePrefs(ctx context.Context, actor Actor, prefs json.RawMessage) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	users   UserStore
	storage filestorage.FileStorage
	audit   *AuditService
	logger  zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, storage filestorage.FileStorage, audit *AuditService, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		users:   users,
		storage: storage,
		audit:   audit,
		logger:  logger.With().Str("component", "users").Logger(),
	}
}

func userNotFound(err error) error {
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.NewCustomError(apperrors.ErrUserNotFound, "User not found")
	}
	return err
}

// CreateUser adds an account on behalf of an admin
func (s *userServiceImpl) CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*models.User, error) {
	role := models.Role(req.Role)
	if !role.Valid() {
		return nil, apperrors.NewValidationError("role", "Invalid role")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: hash,
		Role:     role,
		Status:   models.UserStatusActive,
		Phone:    req.Phone,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, apperrors.NewCustomError(apperrors.ErrEmailAlreadyExists, "Email already exists")
		}
		return nil, err
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "user.create",
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      map[string]interface{}{"email": user.Email, "role": user.Role},
	})
	return user, nil
}

// ListUsers returns every account
func (s *userServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// UpdateStatus activates or deactivates an account
func (s *userServiceImpl) UpdateStatus(ctx context.Context, actor Actor, id int64, status string) error {
	st := models.UserStatus(status)
	if !st.Valid() {
		return apperrors.NewValidationError("status", "Invalid status value")
	}
	if err := s.users.UpdateStatus(ctx, id, st); err != nil {
		return userNotFound(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "user.status.update",
		ResourceType: "user",
		ResourceID:   id,
		Details:      map[string]interface{}{"status": st},
	})
	return nil
}

// ResetPassword replaces another user's password
func (s *userServiceImpl) ResetPassword(ctx context.Context, actor Actor, id int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return userNotFound(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "user.password.reset",
		ResourceType: "user",
		ResourceID:   id,
		Severity:     models.SeverityWarning,
	})
	return nil
}

// DeleteUser removes an account other than the caller's own
func (s *userServiceImpl) DeleteUser(ctx context.Context, actor Actor, id int64) error {
	if id == actor.ID {
		return apperrors.NewBadRequestError("You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return userNotFound(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "user.delete",
		ResourceType: "user",
		ResourceID:   id,
		Severity:     models.SeverityWarning,
	})
	return nil
}

func (s *userServiceImpl) self(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// GetProfile returns the caller's profile. baseURL prefixes the avatar path.
func (s *userServiceImpl) GetProfile(ctx context.Context, actor Actor, baseURL string) (*dto.ProfileResponse, error) {
	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}

	avatar := user.AvatarPath()
	return &dto.ProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    string(user.Status),
		Phone:     user.Phone,
		Avatar:    avatar,
		AvatarURL: strings.TrimRight(baseURL, "/") + avatar,
		Prefs:     prefsOrEmpty(user.Prefs),
	}, nil
}

// UpdateProfile changes name and phone; absent fields are kept
func (s *userServiceImpl) UpdateProfile(ctx context.Context, actor Actor, req dto.UpdateProfileRequest) error {
	if req.Name == nil && req.Phone == nil {
		return apperrors.NewBadRequestError("No fields to update")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apperrors.NewValidationError("name", "name cannot be empty")
		}
		req.Name = &name
	}
	if err := s.users.UpdateProfile(ctx, actor.ID, req.Name, req.Phone); err != nil {
		return userNotFound(err)
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *userServiceImpl) ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error {
	user, err := s.self(ctx, actor)
	if err != nil {
		return err
	}
	if !auth.IsHashed(user.Password) || !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.NewBadRequestError("Current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return userNotFound(err)
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "user.password.change",
		ResourceType: "user",
		ResourceID:   actor.ID,
	})
	return nil
}

// UploadAvatar stores a new profile image and drops the previous one
func (s *userServiceImpl) UploadAvatar(ctx context.Context, actor Actor, in UploadSource, baseURL string) (*dto.AvatarResponse, error) {
	up, err := receive(in)
	if err != nil {
		return nil, err
	}
	if up == nil || up.Open == nil {
		return nil, apperrors.NewValidationError("avatar", "No file uploaded")
	}
	if !avatarTypes[strings.ToLower(up.MimeType)] {
		return nil, apperrors.NewValidationError("avatar", "Only image files are allowed")
	}
	if up.Size > MaxAvatarBytes {
		return nil, FileTooLargeError(MaxAvatarBytes)
	}

	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}

	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening upload: %w", err)
	}
	defer src.Close()

	stored, err := s.storage.SaveAvatar(up.Filename, src)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateAvatar(ctx, actor.ID, stored.PublicPath); err != nil {
		if delErr := s.storage.DeleteFile(stored.PublicPath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", stored.PublicPath).Msg("Failed to clean up avatar")
		}
		return nil, userNotFound(err)
	}

	if user.Avatar != nil && *user.Avatar != "" && *user.Avatar != models.DefaultAvatar {
		if err := s.storage.DeleteFile(*user.Avatar); err != nil {
			s.logger.Warn().Err(err).Str("path", *user.Avatar).Msg("Failed to delete previous avatar")
		}
	}

	return &dto.AvatarResponse{
		Avatar:    stored.PublicPath,
		AvatarURL: strings.TrimRight(baseURL, "/") + stored.PublicPath,
	}, nil
}

// GetPrefs returns the caller's notification preferences
func (s *userServiceImpl) GetPrefs(ctx context.Context, actor Actor) (json.RawMessage, error) {
	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}
	return prefsOrEmpty(user.Prefs), nil
}

// UpdatePrefs stores free-form preferences. Only JSON objects are accepted.
func (s *userServiceImpl) UpdatePrefs(ctx context.Context, actor Actor, prefs json.RawMessage) error {
	trimmed := bytes.TrimSpace(prefs)
	var obj map[string]interface{}
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &obj) != nil {
		return apperrors.NewValidationError("prefs", "Preferences must be a JSON object")
	}
	if err := s.users.UpdatePrefs(ctx, actor.ID, json.RawMessage(trimmed)); err != nil {
		return userNotFound(err)
	}
	return nil
}

func prefsOrEmpty(p json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(p)) == 0 || string(p) == "null" {
		return json.RawMessage("{}")
	}
	return p
}
