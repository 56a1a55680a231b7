package config

import (
	"fmt"
	"strings"
)

// dialect holds the column types that differ between backends. Migrations
// are written once with {placeholders} and expanded per dialect.
type dialect struct {
	name       string
	driverName string
	replacer   *strings.Replacer
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:       DriverSQLite,
		driverName: "sqlite",
		replacer: strings.NewReplacer(
			"{id}", "TEXT",
			"{str}", "TEXT",
			"{text}", "TEXT",
			"{bool}", "INTEGER",
			"{int}", "INTEGER",
			"{ts}", "DATETIME",
		),
	},
	DriverPostgres: {
		name:       DriverPostgres,
		driverName: "pgx",
		replacer: strings.NewReplacer(
			"{id}", "VARCHAR(64)",
			"{str}", "VARCHAR(255)",
			"{text}", "TEXT",
			"{bool}", "BOOLEAN",
			"{int}", "INTEGER",
			"{ts}", "TIMESTAMPTZ",
		),
	},
	DriverMySQL: {
		name:       DriverMySQL,
		driverName: "mysql",
		replacer: strings.NewReplacer(
			"{id}", "VARCHAR(64)",
			"{str}", "VARCHAR(255)",
			"{text}", "TEXT",
			"{bool}", "BOOLEAN",
			"{int}", "INT",
			"{ts}", "DATETIME(6)",
		),
	},
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {id} PRIMARY KEY,
		username {str} NOT NULL UNIQUE,
		email {str} NOT NULL,
		password_hash {str} NOT NULL,
		display_name {str} NOT NULL,
		role {str} NOT NULL,
		is_active {bool} NOT NULL,
		last_login_at {ts} NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id {id} PRIMARY KEY,
		user_id {id} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ip {str} NOT NULL,
		user_agent {text} NOT NULL,
		created_at {ts} NOT NULL,
		expires_at {ts} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS api_tokens (
		id {id} PRIMARY KEY,
		user_id {id} NOT NULL REFERENCES users(id),
		name {str} NOT NULL,
		token_hash {str} NOT NULL,
		token_prefix {str} NOT NULL,
		permissions_json {text} NOT NULL,
		rate_limit_per_minute {int} NOT NULL,
		is_active {bool} NOT NULL,
		expires_at {ts} NULL,
		last_used_at {ts} NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id {id} PRIMARY KEY,
		actor_type {str} NOT NULL,
		actor_id {str} NOT NULL,
		action {str} NOT NULL,
		method {str} NOT NULL,
		path {text} NOT NULL,
		status {int} NOT NULL,
		ip {str} NOT NULL,
		user_agent {text} NOT NULL,
		request_id {str} NOT NULL,
		metadata_json {text} NOT NULL,
		created_at {ts} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tool_instructions (
		tool_name {str} PRIMARY KEY,
		instructions {text} NOT NULL,
		updated_by {str} NOT NULL,
		updated_at {ts} NOT NULL
	)`,

	`CREATE INDEX idx_sessions_user_id ON sessions(user_id)`,
	`CREATE INDEX idx_api_tokens_prefix ON api_tokens(token_prefix)`,
	`CREATE INDEX idx_api_tokens_user_id ON api_tokens(user_id)`,
	`CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at)`,
	`CREATE INDEX idx_audit_logs_action ON audit_logs(action)`,
}

func (s *Store) migrate() error {
	for _, m := range migrations {
		stmt := s.dialect.replacer.Replace(m)
		if _, err := s.db.Exec(stmt); err != nil {
			// Re-running CREATE INDEX is reported differently by each backend;
			// an existing object is a no-op for idempotent migrations.
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "duplicate key name") ||
		strings.Contains(msg, "duplicate column")
}
