package primary

import "context"

// UserService defines the primary port for escalation recipients.
type UserService interface {
	// AddUser registers an enabled user.
	AddUser(ctx context.Context, userID, email string) error

	// GrantRole gives a user an escalation role.
	GrantRole(ctx context.Context, userID, role string) error

	// SetUserEnabled enables or disables a user.
	SetUserEnabled(ctx context.Context, userID string, enabled bool) error

	// RecipientsForRole lists the addresses escalations for role would go to.
	RecipientsForRole(ctx context.Context, role string) ([]string, error)
}
