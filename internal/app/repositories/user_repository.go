package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/dberrors"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

const userColumns = `id, name, email, password, role, status, phone, avatar, prefs, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var prefs []byte
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Status,
		&user.Phone, &user.Avatar, &prefs, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Prefs = json.RawMessage(prefs)
	return user, nil
}

// Create inserts a user and returns its id. The password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	status := user.Status
	if status == "" {
		status = models.UserStatusActive
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password, role, status, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		user.Name, user.Email, user.Password, user.Role, status, user.Phone).Scan(&id)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		return 0, fmt.Errorf("error creating user: %w", err)
	}

	user.ID = id
	user.Status = status
	return id, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}
	return user, nil
}

// List returns every user ordered by id
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListAdminIDs returns the ids of every admin account
func (r *UserRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE role = $1 ORDER BY id`, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("error listing admins: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// UpdateStatus activates or deactivates an account
func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error {
	return r.exec(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, `UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, hash, id)
}

// UpdateAvatar stores the public path of a new avatar
func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, avatar string) error {
	return r.exec(ctx, `UPDATE users SET avatar = $1, updated_at = NOW() WHERE id = $2`, avatar, id)
}

// UpdatePrefs replaces the notification preferences document
func (r *UserRepository) UpdatePrefs(ctx context.Context, id int64, prefs json.RawMessage) error {
	return r.exec(ctx, `UPDATE users SET prefs = $1::jsonb, updated_at = NOW() WHERE id = $2`, string(prefs), id)
}

// UpdateProfile updates whichever of name and phone are non-nil
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, phone *string) error {
	builder := squirrel.Update("users").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)
	if name != nil {
		builder = builder.Set("name", *name)
	}
	if phone != nil {
		builder = builder.Set("phone", *phone)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update profile SQL")
		return err
	}
	return r.exec(ctx, sql, args...)
}

// Delete removes a user row. References held by other tables are left in place.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
