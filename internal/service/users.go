package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// MinPasswordLength is the shortest password accepted for admin users.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// CreateUserInput describes a new admin panel user.
type CreateUserInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UpdateUserInput carries the fields to change; nil fields are left alone.
type UpdateUserInput struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

// UserService manages admin panel accounts and their sessions.
type UserService struct {
	store  *config.Store
	cost   int
	logger *slog.Logger
}

func NewUserService(store *config.Store, bcryptCost int, logger *slog.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, cost: bcryptCost, logger: logger}
}

// Create validates in and stores a new user. A taken username yields
// config.ErrConflict.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-64 characters of letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = model.RoleViewer
	}
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, model.RoleAdmin, model.RoleViewer)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = username
	}
	u := &model.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		DisplayName:  display,
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// Update applies in to a user. Deactivating a user ends all of their
// sessions. An admin cannot demote or deactivate themselves.
func (s *UserService) Update(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Role != nil {
		if !model.ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, model.RoleAdmin, model.RoleViewer)
		}
		if actor.ID == u.ID && *in.Role != model.RoleAdmin {
			return nil, fmt.Errorf("%w: you cannot remove your own admin role", ErrInvalidInput)
		}
		u.Role = *in.Role
	}
	deactivating := false
	if in.IsActive != nil {
		if actor.ID == u.ID && !*in.IsActive {
			return nil, fmt.Errorf("%w: you cannot deactivate yourself", ErrInvalidInput)
		}
		deactivating = u.IsActive && !*in.IsActive
		u.IsActive = *in.IsActive
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	if deactivating {
		s.endSessions(ctx, u.ID)
	}
	return u, nil
}

// Deactivate disables a user and deletes all of their sessions. Users are
// never hard-deleted because tokens and audit entries reference them.
func (s *UserService) Deactivate(ctx context.Context, actor *model.User, id string) error {
	inactive := false
	_, err := s.Update(ctx, actor, id, UpdateUserInput{IsActive: &inactive})
	return err
}

// ChangePassword sets a new password for the target user. Users changing
// their own password must supply the current one; an admin changing someone
// else's password ends that user's sessions.
func (s *UserService) ChangePassword(ctx context.Context, actor *model.User, id, current, next string) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}

	self := actor.ID == u.ID
	if !self && !actor.IsAdmin() {
		return ErrForbidden
	}
	if self && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	if !self {
		s.endSessions(ctx, u.ID)
	}
	return nil
}

func (s *UserService) endSessions(ctx context.Context, userID string) {
	n, err := s.store.DeleteUserSessions(ctx, userID)
	if err != nil {
		s.logger.Error("delete user sessions failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("user sessions ended", "user_id", userID, "count", n)
}
