package primary

import (
	"context"
	"time"
)

// SLAService defines the primary port for SLA compliance tracking.
type SLAService interface {
	// OnEvent applies or refreshes SLA fields after a workflow transition.
	OnEvent(ctx context.Context, workItemID, event string) (*ItemSLA, error)

	// Sweep recomputes every open SLA and fires due escalations.
	Sweep(ctx context.Context) (*SweepSummary, error)

	// GetItem retrieves the SLA view of a work item.
	GetItem(ctx context.Context, workItemID string) (*ItemSLA, error)

	// ListItems lists work items with optional filters.
	ListItems(ctx context.Context, filters ItemFilters) ([]*ItemSLA, error)

	// CreateItem registers a work item with the engine.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemSLA, error)
}

// ItemSLA represents a work item's SLA fields at the port boundary.
type ItemSLA struct {
	ID           string
	CurrentState string
	ServiceType  string
	Workshop     string
	PolicyID     string     // May be empty
	Phase        string     // 'unset', 'active', 'closed'
	Start        *time.Time // nil when unset
	Due          *time.Time // nil when unset
	ProgressPct  float64
	Status       string // '', 'green', 'yellow', 'red'
	Breached     bool
	ClosedAt     *time.Time // nil unless closed
}

// ItemFilters contains filter options for listing work items.
type ItemFilters struct {
	Status       string
	BreachedOnly bool
	OpenOnly     bool
	Limit        int
}

// CreateItemRequest contains parameters for registering a work item.
type CreateItemRequest struct {
	ID           string
	CurrentState string
	ServiceType  string
	Workshop     string
	PolicyID     string
}

// SweepSummary reports the outcome of one sweep pass.
type SweepSummary struct {
	SweepID         string
	ItemsChecked    int
	EscalationsSent int
	Errors          int
	Conflicts       int // items whose write lost to a concurrent writer
	Duration        time.Duration
}
