package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/slaengine/internal/ports/primary"
)

// EscalationAdapter prints the escalation ledger.
type EscalationAdapter struct {
	service primary.EscalationService
	out     io.Writer
}

// NewEscalationAdapter creates a new EscalationAdapter with the given service.
func NewEscalationAdapter(service primary.EscalationService, out io.Writer) *EscalationAdapter {
	return &EscalationAdapter{service: service, out: out}
}

// List lists ledger entries matching filters.
func (a *EscalationAdapter) List(ctx context.Context, filters primary.EscalationFilters) error {
	records, err := a.service.ListEscalations(ctx, filters)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No escalations found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-15s %-5s %-8s %-12s %-20s %s\n", "WORK ITEM", "LEVEL", "STATUS", "ROLE", "SENT", "RECIPIENTS")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────")
	for _, e := range records {
		sent := "-"
		if e.SentAt != nil {
			sent = e.SentAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(a.out, "%-15s L%-4d %-8s %-12s %-20s %s\n",
			e.WorkItemID, e.Level, e.Status, e.Role, sent, strings.Join(e.Recipients, ", "))
	}
	fmt.Fprintln(a.out)
	return nil
}
