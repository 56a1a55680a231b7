package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

const userColumns = `id, username, email, password_hash, display_name, role, is_active,
	last_login_at, created_at, updated_at`

// CreateUser inserts a new admin panel user. ID, CreatedAt and UpdatedAt are
// populated on success. A duplicate username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.Must(uuid.NewV7()).String()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	const q = `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :email, :password_hash, :display_name, :role, :is_active,
			:last_login_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	q := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns a user by their unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	q := s.rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	if err := s.db.GetContext(ctx, &u, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser persists the mutable user fields (email, display name, role,
// active flag, password hash). UpdatedAt is refreshed automatically.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()

	const q = `UPDATE users SET
		email = :email, display_name = :display_name, role = :role, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, u)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchUserLogin records a successful login.
func (s *Store) TouchUserLogin(ctx context.Context, id string, at time.Time) error {
	q := s.rebind("UPDATE users SET last_login_at = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return fmt.Errorf("touch user login: %w", err)
	}
	return nil
}

// CountUsers returns the total number of users and how many are active.
func (s *Store) CountUsers(ctx context.Context) (total, active int64, err error) {
	if err = s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	q := s.rebind("SELECT COUNT(*) FROM users WHERE is_active = ?")
	if err = s.db.GetContext(ctx, &active, q, true); err != nil {
		return 0, 0, fmt.Errorf("count active users: %w", err)
	}
	return total, active, nil
}
