package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/slaengine/internal/ports/secondary"
)

// UserRepository implements secondary.UserDirectory with SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite user directory.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// RecipientsForRole returns the emails of enabled users holding role.
func (r *UserRepository) RecipientsForRole(ctx context.Context, role string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.email FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role = ? AND u.enabled = 1
		ORDER BY u.id`,
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role %s: %w", role, err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// CreateUser persists a new user and its roles.
func (r *UserRepository) CreateUser(ctx context.Context, user *secondary.UserRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, email, enabled) VALUES (?, ?, ?)",
		user.ID, user.Email, user.Enabled); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx, "INSERT INTO user_roles (user_id, role) VALUES (?, ?)", user.ID, role); err != nil {
			return fmt.Errorf("failed to grant role %s: %w", role, err)
		}
	}
	return tx.Commit()
}

// GrantRole gives a user a role. Granting an existing role is a no-op.
func (r *UserRepository) GrantRole(ctx context.Context, userID, role string) error {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&count); err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user %s: %w", userID, secondary.ErrNotFound)
	}

	_, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)", userID, role)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// SetEnabled enables or disables a user.
func (r *UserRepository) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET enabled = ? WHERE id = ?", enabled, userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, secondary.ErrNotFound)
	}
	return nil
}

// Ensure UserRepository implements the interface
var _ secondary.UserDirectory = (*UserRepository)(nil)
