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

// CreateSession inserts a new admin session. ID and CreatedAt are populated
// when empty.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.Must(uuid.NewV7()).String()
	}
	sess.CreatedAt = time.Now().UTC()
	sess.ExpiresAt = sess.ExpiresAt.UTC()

	const q = `INSERT INTO sessions (id, user_id, ip, user_agent, created_at, expires_at)
		VALUES (:id, :user_id, :ip, :user_agent, :created_at, :expires_at)`
	if _, err := s.db.NamedExecContext(ctx, q, sess); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns a session by ID. Expired sessions are still returned;
// callers decide validity.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	q := s.rebind(`SELECT id, user_id, ip, user_agent, created_at, expires_at
		FROM sessions WHERE id = ?`)
	if err := s.db.GetContext(ctx, &sess, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a single session. Deleting a missing session is not
// an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of a user and returns how many
// were deleted.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions rows affected: %w", err)
	}
	return n, nil
}

// DeleteExpiredSessions removes sessions that expired at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
