package primary

import (
	"context"
	"time"
)

// EscalationService defines the primary port for inspecting the escalation ledger.
type EscalationService interface {
	// ListEscalations lists ledger entries with optional filters.
	ListEscalations(ctx context.Context, filters EscalationFilters) ([]*Escalation, error)
}

// Escalation represents an escalation ledger entry at the port boundary.
type Escalation struct {
	WorkItemID string
	Level      int
	Status     string // 'pending', 'sent'
	Role       string
	Recipients []string
	ClaimedAt  time.Time
	SentAt     *time.Time // nil while pending
}

// EscalationFilters contains filter options for listing escalations.
type EscalationFilters struct {
	WorkItemID string
	Status     string
}

// Escalation status constants
const (
	EscalationStatusPending = "pending"
	EscalationStatusSent    = "sent"
)
