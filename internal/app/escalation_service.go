package app

import (
	"context"
	"fmt"

	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/ports/secondary"
)

// EscalationServiceImpl implements the EscalationService interface.
type EscalationServiceImpl struct {
	ledger secondary.EscalationLedger
}

// NewEscalationService creates a new EscalationService with injected dependencies.
func NewEscalationService(ledger secondary.EscalationLedger) *EscalationServiceImpl {
	return &EscalationServiceImpl{
		ledger: ledger,
	}
}

// ListEscalations lists escalations with optional filters.
func (s *EscalationServiceImpl) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	switch filters.Status {
	case "", primary.EscalationStatusPending, primary.EscalationStatusSent:
	default:
		return nil, fmt.Errorf("invalid status: %s (must be 'pending' or 'sent')", filters.Status)
	}

	records, err := s.ledger.List(ctx, secondary.EscalationFilters{
		WorkItemID: filters.WorkItemID,
		Status:     filters.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	escalations := make([]*primary.Escalation, len(records))
	for i, r := range records {
		escalations[i] = s.recordToEscalation(r)
	}
	return escalations, nil
}

func (s *EscalationServiceImpl) recordToEscalation(r *secondary.EscalationRecord) *primary.Escalation {
	e := &primary.Escalation{
		WorkItemID: r.WorkItemID,
		Level:      r.Level,
		Status:     r.Status,
		Role:       r.Role,
		Recipients: r.Recipients,
		ClaimedAt:  r.ClaimedAt,
	}
	if !r.SentAt.IsZero() {
		sentAt := r.SentAt
		e.SentAt = &sentAt
	}
	return e
}

var _ primary.EscalationService = (*EscalationServiceImpl)(nil)
