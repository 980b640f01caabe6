package app

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/ports/secondary"
)

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	users secondary.UserDirectory
}

// NewUserService creates a new UserService with injected dependencies.
func NewUserService(users secondary.UserDirectory) *UserServiceImpl {
	return &UserServiceImpl{users: users}
}

// AddUser registers an enabled user.
func (s *UserServiceImpl) AddUser(ctx context.Context, userID, email string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q: %w", email, err)
	}
	return s.users.CreateUser(ctx, &secondary.UserRecord{ID: userID, Email: email, Enabled: true})
}

// GrantRole gives a user an escalation role.
func (s *UserServiceImpl) GrantRole(ctx context.Context, userID, role string) error {
	if role == "" {
		return fmt.Errorf("role is required")
	}
	return s.users.GrantRole(ctx, userID, role)
}

// SetUserEnabled enables or disables a user.
func (s *UserServiceImpl) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	return s.users.SetEnabled(ctx, userID, enabled)
}

// RecipientsForRole lists the addresses escalations for role would go to.
func (s *UserServiceImpl) RecipientsForRole(ctx context.Context, role string) ([]string, error) {
	return s.users.RecipientsForRole(ctx, role)
}

var _ primary.UserService = (*UserServiceImpl)(nil)
