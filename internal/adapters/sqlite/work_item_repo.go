// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

const workItemColumns = `id, current_state, service_type, workshop, sla_policy_id, sla_policy_pinned, sla_start_event, sla_start, sla_due,
	sla_progress_pct, sla_status, sla_breached, sla_closed_at, sla_version`

// WorkItemRepository implements secondary.WorkItemRepository with SQLite.
type WorkItemRepository struct {
	db *sql.DB
}

// NewWorkItemRepository creates a new SQLite work item repository.
func NewWorkItemRepository(db *sql.DB) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

// Create persists a new work item.
func (r *WorkItemRepository) Create(ctx context.Context, item *sla.WorkItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_items (id, current_state, service_type, workshop, sla_policy_id) VALUES (?, ?, ?, ?, ?)`,
		item.ID,
		item.CurrentState,
		nullString(item.ServiceType),
		nullString(item.Workshop),
		nullString(item.PolicyID),
	)
	if err != nil {
		return fmt.Errorf("failed to create work item: %w", err)
	}
	return nil
}

// GetByID retrieves a work item by its ID.
func (r *WorkItemRepository) GetByID(ctx context.Context, id string) (*sla.WorkItem, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+workItemColumns+" FROM work_items WHERE id = ?", id)
	item, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work item %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}
	return item, nil
}

// UpdateSLA writes the workflow state label and the SLA fields guarded by
// the version column.
// Progress is rounded to two decimals here and nowhere earlier.
func (r *WorkItemRepository) UpdateSLA(ctx context.Context, item *sla.WorkItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE work_items SET
			current_state = ?,
			sla_policy_id = ?,
			sla_policy_pinned = ?,
			sla_start_event = ?,
			sla_start = ?,
			sla_due = ?,
			sla_progress_pct = ?,
			sla_status = ?,
			sla_breached = ?,
			sla_closed_at = ?,
			sla_version = sla_version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND sla_version = ?`,
		item.CurrentState,
		nullString(item.PolicyID),
		item.PolicyPinned,
		nullString(item.StartEvent),
		nullTime(item.Start),
		nullTime(item.Due),
		sla.RoundPct(item.ProgressPct),
		string(item.Status),
		item.Breached,
		nullTime(item.ClosedAt),
		item.ID,
		item.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update work item sla: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_items WHERE id = ?", item.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check work item existence: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("work item %s: %w", item.ID, secondary.ErrNotFound)
		}
		return fmt.Errorf("work item %s at version %d: %w", item.ID, item.Version, secondary.ErrConflict)
	}

	item.Version++
	return nil
}

// ListOpen returns items with a running SLA clock, most overdue first.
func (r *WorkItemRepository) ListOpen(ctx context.Context) ([]*sla.WorkItem, error) {
	return r.query(ctx,
		"SELECT "+workItemColumns+" FROM work_items WHERE sla_due IS NOT NULL AND sla_closed_at IS NULL ORDER BY sla_due ASC, id ASC",
	)
}

// List retrieves work items matching the given filters.
func (r *WorkItemRepository) List(ctx context.Context, filters secondary.WorkItemFilters) ([]*sla.WorkItem, error) {
	var where []string
	args := []any{}

	if filters.Status != sla.StatusNone {
		where = append(where, "sla_status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.BreachedOnly {
		where = append(where, "sla_breached = 1")
	}
	if filters.OpenOnly {
		where = append(where, "sla_due IS NOT NULL AND sla_closed_at IS NULL")
	}

	query := "SELECT " + workItemColumns + " FROM work_items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sla_due IS NULL, sla_due ASC, id ASC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.query(ctx, query, args...)
}

func (r *WorkItemRepository) query(ctx context.Context, query string, args ...any) ([]*sla.WorkItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	var items []*sla.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (*sla.WorkItem, error) {
	var (
		serviceType sql.NullString
		workshop    sql.NullString
		policyID    sql.NullString
		startEvent  sql.NullString
		start       sql.NullTime
		due         sql.NullTime
		closedAt    sql.NullTime
		status      string
	)

	item := &sla.WorkItem{}
	err := row.Scan(&item.ID, &item.CurrentState, &serviceType, &workshop, &policyID, &item.PolicyPinned, &startEvent,
		&start, &due, &item.ProgressPct, &status, &item.Breached, &closedAt, &item.Version)
	if err != nil {
		return nil, err
	}
	item.ServiceType = serviceType.String
	item.Workshop = workshop.String
	item.PolicyID = policyID.String
	item.StartEvent = startEvent.String
	item.Start = timeOf(start)
	item.Due = timeOf(due)
	item.ClosedAt = timeOf(closedAt)
	item.Status = sla.Status(status)
	return item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime stores times in UTC so lexical ordering in SQLite matches time ordering.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timeOf(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// Ensure WorkItemRepository implements the interface
var _ secondary.WorkItemRepository = (*WorkItemRepository)(nil)
