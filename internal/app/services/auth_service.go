package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/rs/zerolog"
)

// AuthService handles authentication operations
type AuthService struct {
	users      UserStore
	jwtService *auth.JWTService
	audit      *AuditService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, jwtService *auth.JWTService, audit *AuditService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		audit:      audit,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

func invalidCredentials() error {
	return apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "Invalid credentials")
}

// Login verifies email and password and issues a token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, ip, userAgent string) (*dto.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	// Stored values that are not bcrypt hashes are never compared
	if !auth.IsHashed(user.Password) {
		s.logger.Warn().Int64("userID", user.ID).Msg("Account has a non-hashed password and must be reset by an administrator")
		return nil, invalidCredentials()
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, invalidCredentials()
	}
	if !user.IsActive() {
		return nil, apperrors.NewCustomError(apperrors.ErrAccountDisabled, "Account is inactive")
	}

	token, expiresAt, err := s.jwtService.GenerateToken(auth.Identity{
		ID:    user.ID,
		Role:  string(user.Role),
		Email: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	s.audit.Record(&Actor{ID: user.ID, Role: user.Role, Email: user.Email, IP: ip, UserAgent: userAgent}, AuditEvent{
		Event:        "auth.login",
		ResourceType: "user",
		ResourceID:   user.ID,
	})

	return &dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      dto.NewAuthUser(user),
	}, nil
}

// Register creates an active account with the user role
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: hash,
		Role:     models.RoleUser,
		Status:   models.UserStatusActive,
		Phone:    req.Phone,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, apperrors.NewCustomError(apperrors.ErrEmailAlreadyExists, "Email already exists")
		}
		return nil, err
	}

	s.audit.Record(&Actor{ID: user.ID, Role: user.Role, Email: user.Email}, AuditEvent{
		Event:        "auth.register",
		ResourceType: "user",
		ResourceID:   user.ID,
	})
	return user, nil
}

// Me echoes the identity resolved from the caller's token
func (s *AuthService) Me(actor Actor) dto.MeResponse {
	return dto.MeResponse{ID: actor.ID, Role: string(actor.Role), Email: actor.Email}
}
