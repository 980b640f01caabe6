// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/example/slaengine/internal/ports/primary"
)

// ItemAdapter is a thin adapter that translates CLI operations to SLAService calls.
type ItemAdapter struct {
	service primary.SLAService
	out     io.Writer
}

// NewItemAdapter creates a new ItemAdapter with the given service.
func NewItemAdapter(service primary.SLAService, out io.Writer) *ItemAdapter {
	return &ItemAdapter{
		service: service,
		out:     out,
	}
}

// Add registers a work item.
func (a *ItemAdapter) Add(ctx context.Context, req primary.CreateItemRequest) error {
	item, err := a.service.CreateItem(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to add work item: %w", err)
	}
	fmt.Fprintf(a.out, "✓ Added work item %s\n", item.ID)
	return nil
}

// Event applies a workflow event and prints the resulting SLA.
func (a *ItemAdapter) Event(ctx context.Context, workItemID, event string) error {
	item, err := a.service.OnEvent(ctx, workItemID, event)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ %s: %s → %s %s\n", item.ID, event, item.Phase, formatProgress(item))
	return nil
}

// Sweep runs one sweep pass and prints its summary.
func (a *ItemAdapter) Sweep(ctx context.Context) error {
	summary, err := a.service.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Sweep %s: %d checked, %d escalations sent, %d errors, %d conflicts (%s)\n",
		summary.SweepID, summary.ItemsChecked, summary.EscalationsSent, summary.Errors, summary.Conflicts,
		summary.Duration.Round(time.Millisecond))
	return nil
}

// List lists work items matching filters.
func (a *ItemAdapter) List(ctx context.Context, filters primary.ItemFilters) error {
	items, err := a.service.ListItems(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list work items: %w", err)
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "No work items found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-15s %-8s %-18s %-8s %s\n", "ID", "PHASE", "DUE", "PCT", "STATUS")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────")
	for _, it := range items {
		due := "-"
		if it.Due != nil {
			due = it.Due.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(a.out, "%-15s %-8s %-18s %-8s %s\n", it.ID, it.Phase, due,
			fmt.Sprintf("%.2f", it.ProgressPct), colorStatus(it))
	}
	fmt.Fprintln(a.out)
	return nil
}

// Show displays the SLA details of a single work item.
func (a *ItemAdapter) Show(ctx context.Context, workItemID string) (*primary.ItemSLA, error) {
	item, err := a.service.GetItem(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}

	fmt.Fprintf(a.out, "\nWork item: %s\n", item.ID)
	fmt.Fprintf(a.out, "State:     %s\n", item.CurrentState)
	if item.ServiceType != "" {
		fmt.Fprintf(a.out, "Service:   %s\n", item.ServiceType)
	}
	if item.Workshop != "" {
		fmt.Fprintf(a.out, "Workshop:  %s\n", item.Workshop)
	}
	fmt.Fprintf(a.out, "Phase:     %s\n", item.Phase)
	if item.PolicyID != "" {
		fmt.Fprintf(a.out, "Policy:    %s\n", item.PolicyID)
	}
	if item.Start != nil {
		fmt.Fprintf(a.out, "Start:     %s\n", item.Start.Format(time.RFC3339))
		fmt.Fprintf(a.out, "Due:       %s\n", item.Due.Format(time.RFC3339))
		fmt.Fprintf(a.out, "Progress:  %s\n", formatProgress(item))
	}
	if item.ClosedAt != nil {
		fmt.Fprintf(a.out, "Closed:    %s\n", item.ClosedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(a.out)
	return item, nil
}

func formatProgress(item *primary.ItemSLA) string {
	if item.Status == "" {
		return ""
	}
	return fmt.Sprintf("%.2f%% %s", item.ProgressPct, colorStatus(item))
}

func colorStatus(item *primary.ItemSLA) string {
	label := item.Status
	if label == "" {
		label = "-"
	}
	if item.Breached {
		label += " BREACHED"
	}
	switch item.Status {
	case "green":
		return color.New(color.FgGreen).Sprint(label)
	case "yellow":
		return color.New(color.FgYellow).Sprint(label)
	case "red":
		return color.New(color.FgRed).Sprint(label)
	}
	return label
}
