package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/slaengine/internal/ports/secondary"
)

// EscalationRepository implements secondary.EscalationLedger with SQLite.
// The primary key on (work_item_id, level) is the idempotency guarantee.
type EscalationRepository struct {
	db *sql.DB
}

// NewEscalationRepository creates a new SQLite escalation ledger.
func NewEscalationRepository(db *sql.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

// Claim inserts a pending row, or takes over a pending row whose lease expired.
// A sent row is never taken over.
func (r *EscalationRepository) Claim(ctx context.Context, c secondary.EscalationClaim) (bool, error) {
	now := c.Now.UTC()
	staleBefore := now.Add(-c.Lease)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO escalation_records (work_item_id, level, status, role, claim_token, claimed_at)
		VALUES (?, ?, 'pending', ?, ?, ?)
		ON CONFLICT(work_item_id, level) DO UPDATE SET
			role = excluded.role,
			claim_token = excluded.claim_token,
			claimed_at = excluded.claimed_at
		WHERE escalation_records.status = 'pending' AND escalation_records.claimed_at < ?`,
		c.WorkItemID, c.Level, c.Role, c.Token, now, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim escalation %s/L%d: %w", c.WorkItemID, c.Level, err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// Confirm marks a claim as sent.
func (r *EscalationRepository) Confirm(ctx context.Context, workItemID string, level int, token string, sentAt time.Time, recipients []string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalation_records SET status = 'sent', sent_at = ?, recipients = ?
		WHERE work_item_id = ? AND level = ? AND claim_token = ? AND status = 'pending'`,
		sentAt.UTC(), strings.Join(recipients, ","), workItemID, level, token,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm escalation %s/L%d: %w", workItemID, level, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("escalation %s/L%d claim lost: %w", workItemID, level, secondary.ErrConflict)
	}
	return nil
}

// Release deletes a pending claim held by token.
func (r *EscalationRepository) Release(ctx context.Context, workItemID string, level int, token string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM escalation_records WHERE work_item_id = ? AND level = ? AND claim_token = ? AND status = 'pending'",
		workItemID, level, token,
	)
	if err != nil {
		return fmt.Errorf("failed to release escalation %s/L%d: %w", workItemID, level, err)
	}
	return nil
}

// Exists reports whether a sent record exists.
func (r *EscalationRepository) Exists(ctx context.Context, workItemID string, level int) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM escalation_records WHERE work_item_id = ? AND level = ? AND status = 'sent'",
		workItemID, level,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check escalation existence: %w", err)
	}
	return count > 0, nil
}

// List retrieves ledger entries matching the given filters.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := `SELECT work_item_id, level, status, role, recipients, claimed_at, sent_at FROM escalation_records WHERE 1=1`
	args := []any{}

	if filters.WorkItemID != "" {
		query += " AND work_item_id = ?"
		args = append(args, filters.WorkItemID)
	}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY claimed_at DESC, work_item_id, level"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var records []*secondary.EscalationRecord
	for rows.Next() {
		var (
			recipients sql.NullString
			claimedAt  time.Time
			sentAt     sql.NullTime
		)

		record := &secondary.EscalationRecord{}
		err := rows.Scan(&record.WorkItemID, &record.Level, &record.Status, &record.Role, &recipients, &claimedAt, &sentAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		if recipients.String != "" {
			record.Recipients = strings.Split(recipients.String, ",")
		}
		record.ClaimedAt = claimedAt.UTC()
		record.SentAt = timeOf(sentAt)

		records = append(records, record)
	}

	return records, rows.Err()
}

// Ensure EscalationRepository implements the interface
var _ secondary.EscalationLedger = (*EscalationRepository)(nil)
