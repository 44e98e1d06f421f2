package seed

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	appModels "github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/config"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/rs/zerolog"
)

// UserStore is the slice of user persistence the seeder needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*appModels.User, error)
	Create(ctx context.Context, user *appModels.User) (int64, error)
}

// Admin describes an administrator account to provision
type Admin struct {
	Name     string
	Email    string
	Password string
}

// CreateDefaultData provisions the configured admin account and the default avatar
// image. Every step runs; failures are joined.
func CreateDefaultData(ctx context.Context, users UserStore, cfg *config.Config, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (admin account, default avatar)...")
	var finalErr error

	if cfg.Seed.AdminEmail != "" {
		admin := Admin{Name: cfg.Seed.AdminName, Email: cfg.Seed.AdminEmail, Password: cfg.Seed.AdminPassword}
		if _, err := EnsureAdmin(ctx, users, admin, lgr); err != nil {
			lgr.Error().Err(err).Msg("Error creating seed admin")
			finalErr = errors.Join(finalErr, err)
		}
	} else {
		lgr.Debug().Msg("No seed admin configured")
	}

	if err := EnsureDefaultAvatar(cfg.Server.StoragePath); err != nil {
		lgr.Error().Err(err).Msg("Error creating default avatar")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}

// EnsureAdmin creates the admin account unless the email is already taken.
// It reports whether a new account was created.
func EnsureAdmin(ctx context.Context, users UserStore, admin Admin, lgr zerolog.Logger) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return false, errors.New("admin email and password are required")
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != appModels.RoleAdmin {
			lgr.Warn().Str("email", email).Msg("Seed admin email belongs to a non-admin account")
		}
		return false, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return false, fmt.Errorf("error looking up %s: %w", email, err)
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return false, fmt.Errorf("error hashing admin password: %w", err)
	}

	name := strings.TrimSpace(admin.Name)
	if name == "" {
		name = "Administrator"
	}

	id, err := users.Create(ctx, &appModels.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     appModels.RoleAdmin,
		Status:   appModels.UserStatusActive,
	})
	if err != nil {
		// lost a race with another instance
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("error creating admin %s: %w", email, err)
	}

	lgr.Info().Int64("userID", id).Str("email", email).Msg("Seed admin created")
	return true, nil
}

// EnsureDefaultAvatar writes the placeholder image served for users without an avatar
func EnsureDefaultAvatar(storagePath string) error {
	target := filepath.Join(storagePath, filepath.FromSlash(strings.TrimPrefix(appModels.DefaultAvatar, "/uploads/")))
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("error creating avatar directory: %w", err)
	}

	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	bg := color.RGBA{R: 0xd0, G: 0xd5, B: 0xdd, A: 0xff}
	fg := color.RGBA{R: 0x8a, G: 0x94, B: 0xa6, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, bg)
			dx, dy := x-size/2, y-size*2/5
			if dx*dx+dy*dy <= (size/5)*(size/5) {
				img.Set(x, y, fg)
			}
		}
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("error creating default avatar: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("error encoding default avatar: %w", err)
	}
	return f.Close()
}
