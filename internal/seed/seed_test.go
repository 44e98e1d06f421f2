package seed

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/repositories/memory"
	"github.com/quantumlab/labtrack/internal/config"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/rs/zerolog"
)

func init() {
	auth.BcryptCost = 4
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	admin := Admin{Email: "  Root@Lab.Local ", Password: "secret123"}

	created, err := EnsureAdmin(ctx, db.Users, admin, zerolog.Nop())
	if err != nil || !created {
		t.Fatalf("first run: created=%v err=%v", created, err)
	}

	user, err := db.Users.GetByEmail(ctx, "root@lab.local")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.Role != models.RoleAdmin || user.Name != "Administrator" || !auth.CheckPassword(user.Password, "secret123") {
		t.Fatalf("seeded admin = %+v", user)
	}

	created, err = EnsureAdmin(ctx, db.Users, admin, zerolog.Nop())
	if err != nil || created {
		t.Fatalf("second run: created=%v err=%v", created, err)
	}
}

func TestEnsureAdminRequiresCredentials(t *testing.T) {
	if _, err := EnsureAdmin(context.Background(), memory.New().Users, Admin{Email: "a@lab.local"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing password")
	}
}

type racingStore struct{}

func (racingStore) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, apperrors.ErrUserNotFound
}

func (racingStore) Create(context.Context, *models.User) (int64, error) {
	return 0, apperrors.ErrEmailAlreadyExists
}

func TestEnsureAdminLostRace(t *testing.T) {
	created, err := EnsureAdmin(context.Background(), racingStore{}, Admin{Email: "a@lab.local", Password: "secret123"}, zerolog.Nop())
	if err != nil || created {
		t.Fatalf("created=%v err=%v", created, err)
	}
}

type brokenStore struct{ racingStore }

func (brokenStore) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestCreateDefaultDataJoinsErrors(t *testing.T) {
	cfg := &config.Config{}
	cfg.Seed.AdminEmail = "root@lab.local"
	cfg.Seed.AdminPassword = "secret123"
	cfg.Server.StoragePath = t.TempDir()

	err := CreateDefaultData(context.Background(), brokenStore{}, cfg, zerolog.Nop())
	if err == nil {
		t.Fatal("expected lookup failure to surface")
	}
	// the avatar step still ran
	if _, statErr := os.Stat(filepath.Join(cfg.Server.StoragePath, "avatars", "default-avatar.png")); statErr != nil {
		t.Fatalf("default avatar missing: %v", statErr)
	}
}

func TestEnsureDefaultAvatar(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureDefaultAvatar(dir); err != nil {
		t.Fatalf("EnsureDefaultAvatar: %v", err)
	}

	path := filepath.Join(dir, "avatars", "default-avatar.png")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("bounds = %v", b)
	}

	// an existing file is left alone
	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDefaultAvatar(dir); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "custom" {
		t.Fatalf("avatar overwritten: %q", got)
	}
}
