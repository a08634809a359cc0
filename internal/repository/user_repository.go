package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/konversi-api/internal/models"
)

const userColumns = `
	SELECT id, email, password_hash, full_name, role, program_id, active,
	       last_login, created_at, updated_at
	FROM users`

// UserRepository reads application users for authentication.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns an active user by email. sql.ErrNoRows is passed
// through for the caller to translate into an auth failure.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := userColumns + ` WHERE email = $1 AND active = true`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by id. sql.ErrNoRows is passed through.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := userColumns + ` WHERE id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the latest successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2`
	if _, err := ext(ctx, r.db).ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
