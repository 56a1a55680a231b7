package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// tokenRow maps 1:1 to the api_tokens table. The permission matrix is stored
// as a JSON document.
type tokenRow struct {
	ID                 string     `db:"id"`
	UserID             string     `db:"user_id"`
	Name               string     `db:"name"`
	TokenHash          string     `db:"token_hash"`
	TokenPrefix        string     `db:"token_prefix"`
	PermissionsJSON    string     `db:"permissions_json"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	IsActive           bool       `db:"is_active"`
	ExpiresAt          *time.Time `db:"expires_at"`
	LastUsedAt         *time.Time `db:"last_used_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

const tokenColumns = `id, user_id, name, token_hash, token_prefix, permissions_json,
	rate_limit_per_minute, is_active, expires_at, last_used_at, created_at, updated_at`

func tokenRowFromModel(t *model.APIToken) (tokenRow, error) {
	perms := t.Permissions
	if perms == nil {
		perms = model.Permissions{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return tokenRow{}, fmt.Errorf("encode permissions: %w", err)
	}
	row := tokenRow{
		ID:                 t.ID,
		UserID:             t.UserID,
		Name:               t.Name,
		TokenHash:          t.TokenHash,
		TokenPrefix:        t.TokenPrefix,
		PermissionsJSON:    string(b),
		RateLimitPerMinute: t.RateLimitPerMinute,
		IsActive:           t.IsActive,
		ExpiresAt:          utcPtr(t.ExpiresAt),
		LastUsedAt:         utcPtr(t.LastUsedAt),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	return row, nil
}

func (r tokenRow) toModel() (model.APIToken, error) {
	perms := model.Permissions{}
	if r.PermissionsJSON != "" {
		if err := json.Unmarshal([]byte(r.PermissionsJSON), &perms); err != nil {
			return model.APIToken{}, fmt.Errorf("decode permissions for token %s: %w", r.ID, err)
		}
	}
	return model.APIToken{
		ID:                 r.ID,
		UserID:             r.UserID,
		Name:               r.Name,
		TokenHash:          r.TokenHash,
		TokenPrefix:        r.TokenPrefix,
		Permissions:        perms,
		RateLimitPerMinute: r.RateLimitPerMinute,
		IsActive:           r.IsActive,
		ExpiresAt:          r.ExpiresAt,
		LastUsedAt:         r.LastUsedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

func tokensFromRows(rows []tokenRow) ([]model.APIToken, error) {
	out := make([]model.APIToken, len(rows))
	for i, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// CreateToken inserts a new API token. ID, CreatedAt and UpdatedAt are
// populated on success. Only the hash and prefix of the plaintext are stored.
func (s *Store) CreateToken(ctx context.Context, t *model.APIToken) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	row, err := tokenRowFromModel(t)
	if err != nil {
		return err
	}

	const q = `INSERT INTO api_tokens (` + tokenColumns + `)
		VALUES (:id, :user_id, :name, :token_hash, :token_prefix, :permissions_json,
			:rate_limit_per_minute, :is_active, :expires_at, :last_used_at, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetToken returns a token by ID.
func (s *Store) GetToken(ctx context.Context, id string) (*model.APIToken, error) {
	var row tokenRow
	q := s.rebind("SELECT " + tokenColumns + " FROM api_tokens WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTokens returns tokens newest first. A non-empty userID restricts the
// result to that user's tokens.
func (s *Store) ListTokens(ctx context.Context, userID string) ([]model.APIToken, error) {
	var rows []tokenRow
	var err error
	if userID == "" {
		err = s.db.SelectContext(ctx, &rows,
			"SELECT "+tokenColumns+" FROM api_tokens ORDER BY created_at DESC")
	} else {
		err = s.db.SelectContext(ctx, &rows,
			s.rebind("SELECT "+tokenColumns+" FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC"), userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokensFromRows(rows)
}

// ListTokensByPrefix returns every token, active or not, whose stored prefix
// equals prefix. Several tokens may share a prefix; callers disambiguate by
// hash.
func (s *Store) ListTokensByPrefix(ctx context.Context, prefix string) ([]model.APIToken, error) {
	var rows []tokenRow
	q := s.rebind("SELECT " + tokenColumns + " FROM api_tokens WHERE token_prefix = ?")
	if err := s.db.SelectContext(ctx, &rows, q, prefix); err != nil {
		return nil, fmt.Errorf("list tokens by prefix: %w", err)
	}
	return tokensFromRows(rows)
}

// UpdateToken persists name, permissions, rate limit, expiry and the active
// flag. UpdatedAt is refreshed automatically.
func (s *Store) UpdateToken(ctx context.Context, t *model.APIToken) error {
	t.UpdatedAt = time.Now().UTC()
	row, err := tokenRowFromModel(t)
	if err != nil {
		return err
	}

	const q = `UPDATE api_tokens SET
		name = :name, permissions_json = :permissions_json,
		rate_limit_per_minute = :rate_limit_per_minute, is_active = :is_active,
		expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`
	return s.execOne(ctx, "update token", q, row)
}

// ReplaceTokenSecret swaps the hash and prefix of a token, invalidating the
// previous plaintext. Every other field is preserved.
func (s *Store) ReplaceTokenSecret(ctx context.Context, id, hash, prefix string) error {
	q := s.rebind("UPDATE api_tokens SET token_hash = ?, token_prefix = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, hash, prefix, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("replace token secret: %w", err)
	}
	return rowsOrNotFound(result, "replace token secret")
}

// RevokeToken marks a token inactive. The row is kept for audit purposes.
func (s *Store) RevokeToken(ctx context.Context, id string) error {
	q := s.rebind("UPDATE api_tokens SET is_active = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, false, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return rowsOrNotFound(result, "revoke token")
}

// TouchTokenLastUsed records that a token authenticated a request.
func (s *Store) TouchTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	q := s.rebind("UPDATE api_tokens SET last_used_at = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return fmt.Errorf("touch token: %w", err)
	}
	return nil
}

// CountTokens returns the total number of tokens and how many are active and
// unexpired at now.
func (s *Store) CountTokens(ctx context.Context, now time.Time) (total, active int64, err error) {
	if err = s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM api_tokens"); err != nil {
		return 0, 0, fmt.Errorf("count tokens: %w", err)
	}
	q := s.rebind(`SELECT COUNT(*) FROM api_tokens
		WHERE is_active = ? AND (expires_at IS NULL OR expires_at > ?)`)
	if err = s.db.GetContext(ctx, &active, q, true, now.UTC()); err != nil {
		return 0, 0, fmt.Errorf("count active tokens: %w", err)
	}
	return total, active, nil
}

func (s *Store) execOne(ctx context.Context, op, q string, arg interface{}) error {
	result, err := s.db.NamedExecContext(ctx, q, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return rowsOrNotFound(result, op)
}

func rowsOrNotFound(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
