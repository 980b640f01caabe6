// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/example/slaengine/internal/core/sla"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a compare-and-write lost to a concurrent writer.
var ErrConflict = errors.New("concurrent modification")

// WorkItemRepository defines the secondary port for the narrow SLA view of work items.
// Only SLA fields are written; business fields belong to the external work-item store.
type WorkItemRepository interface {
	// GetByID retrieves a work item by its ID. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*sla.WorkItem, error)

	// Create persists a new work item (operator seeding; the external store normally owns creation).
	Create(ctx context.Context, item *sla.WorkItem) error

	// UpdateSLA writes the SLA fields if the stored version still equals item.Version,
	// and bumps the version. Returns ErrConflict when the version moved.
	UpdateSLA(ctx context.Context, item *sla.WorkItem) error

	// ListOpen returns items with sla_due set and not closed, ordered by sla_due ascending.
	ListOpen(ctx context.Context) ([]*sla.WorkItem, error)

	// List retrieves work items matching the given filters.
	List(ctx context.Context, filters WorkItemFilters) ([]*sla.WorkItem, error)
}

// WorkItemFilters contains filter options for querying work items.
type WorkItemFilters struct {
	Status       sla.Status
	BreachedOnly bool
	OpenOnly     bool
	Limit        int
}

// PolicyRepository defines the secondary port for SLA policy persistence.
type PolicyRepository interface {
	// GetByID retrieves a policy with its rules. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*sla.Policy, error)

	// GetDefault retrieves the enabled default policy. Returns ErrNotFound if none.
	GetDefault(ctx context.Context) (*sla.Policy, error)

	// Save replaces a policy and its rules atomically.
	Save(ctx context.Context, policy *sla.Policy) error

	// List retrieves all policies with their rules.
	List(ctx context.Context) ([]*sla.Policy, error)

	// Delete removes a policy and its rules.
	Delete(ctx context.Context, id string) error
}

// EscalationLedger is the idempotency ledger for escalation notifications.
// A (work item, level) pair is claimed before sending, confirmed after a
// successful send, and released after a failed one.
type EscalationLedger interface {
	// Claim atomically reserves (workItemID, level). It returns false when a
	// sent record exists or another claim is still within its lease.
	Claim(ctx context.Context, claim EscalationClaim) (bool, error)

	// Confirm marks a claim as sent. Returns ErrConflict if the claim was lost.
	Confirm(ctx context.Context, workItemID string, level int, token string, sentAt time.Time, recipients []string) error

	// Release drops a pending claim so a later sweep can retry.
	Release(ctx context.Context, workItemID string, level int, token string) error

	// Exists reports whether a sent record exists for (workItemID, level).
	Exists(ctx context.Context, workItemID string, level int) (bool, error)

	// List retrieves ledger entries matching the given filters.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)
}

// EscalationClaim carries the values of a ledger reservation.
type EscalationClaim struct {
	WorkItemID string
	Level      int
	Role       string
	Token      string
	Now        time.Time
	Lease      time.Duration
}

// EscalationRecord represents an escalation ledger entry as stored in persistence.
type EscalationRecord struct {
	WorkItemID string
	Level      int
	Status     string // 'pending', 'sent'
	Role       string
	Recipients []string
	ClaimedAt  time.Time
	SentAt     time.Time // zero while pending
}

// EscalationFilters contains filter options for listing ledger entries.
type EscalationFilters struct {
	WorkItemID string
	Status     string
}

// Escalation ledger status constants.
const (
	EscalationStatusPending = "pending"
	EscalationStatusSent    = "sent"
)

// UserDirectory resolves role holders to notification recipients.
type UserDirectory interface {
	// RecipientsForRole returns the addresses of all enabled users holding role.
	RecipientsForRole(ctx context.Context, role string) ([]string, error)

	// CreateUser persists a new user.
	CreateUser(ctx context.Context, user *UserRecord) error

	// GrantRole gives a user a role.
	GrantRole(ctx context.Context, userID, role string) error

	// SetEnabled enables or disables a user.
	SetEnabled(ctx context.Context, userID string, enabled bool) error
}

// UserRecord represents a user as stored in persistence.
type UserRecord struct {
	ID      string
	Email   string
	Enabled bool
	Roles   []string
}
