package sla

import (
	"fmt"
	"math"
	"time"
)

// Compliance is the computed real-time state of one SLA clock.
// ProgressPct is unrounded; RoundPct is applied only when persisting.
type Compliance struct {
	ProgressPct float64
	Status      Status
	Breached    bool
}

// Compute derives progress, status and breach from the clock bounds.
func Compute(p *Policy, start, due, now time.Time) Compliance {
	total := due.Sub(start)
	if total < time.Second {
		total = time.Second
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	pct := float64(elapsed) / float64(total) * 100
	pct = math.Max(0, math.Min(100, pct))

	return Compliance{
		ProgressPct: pct,
		Status:      StatusFor(p, pct),
		Breached:    now.After(due.Add(p.Grace())),
	}
}

// StatusFor maps a progress percentage to a color using the policy thresholds.
func StatusFor(p *Policy, pct float64) Status {
	switch {
	case pct >= float64(p.CriticalThresholdPct):
		return StatusRed
	case pct >= float64(p.WarnThresholdPct):
		return StatusYellow
	}
	return StatusGreen
}

// RoundPct rounds a percentage to two decimal places.
func RoundPct(pct float64) float64 {
	return math.Round(pct*100) / 100
}

// ApplyStart starts the SLA clock for an item. sla_start is only set when
// unset, and sla_due is only derived when unset, so repeated calls with the
// same rule never move either value.
func ApplyStart(item *WorkItem, p *Policy, rule *Rule, event string, now time.Time) error {
	if item.Phase() == PhaseClosed {
		return fmt.Errorf("work item %s: sla is closed", item.ID)
	}
	if r := ValidateRule(rule); !r.Allowed {
		return r.Error()
	}
	if item.Start.IsZero() {
		item.Start = now
		item.StartEvent = event
	}
	if item.Due.IsZero() {
		item.Due = item.Start.Add(rule.TAT())
	}
	if item.PolicyID == "" {
		item.PolicyID = p.ID
		item.PolicyPinned = true
	}
	if item.StartEvent == "" {
		item.StartEvent = event
	}
	return nil
}

// Recompute refreshes progress, status and breach for an active item.
func Recompute(item *WorkItem, p *Policy, now time.Time) error {
	if item.Start.IsZero() || item.Due.IsZero() {
		return fmt.Errorf("work item %s: sla clock not started", item.ID)
	}
	if item.Phase() == PhaseClosed {
		return fmt.Errorf("work item %s: sla is closed", item.ID)
	}
	c := Compute(p, item.Start, item.Due, now)
	item.ProgressPct = c.ProgressPct
	item.Status = c.Status
	item.Breached = c.Breached
	return nil
}

// Close freezes the SLA fields at now.
func Close(item *WorkItem, now time.Time) {
	if item.ClosedAt.IsZero() {
		item.ClosedAt = now
	}
}

// Reset clears every SLA field back to unset. An explicitly assigned policy
// survives; only a policy pinned from the default at start is dropped.
func Reset(item *WorkItem) {
	if item.PolicyPinned {
		item.PolicyID = ""
	}
	item.PolicyPinned = false
	item.StartEvent = ""
	item.Start = time.Time{}
	item.Due = time.Time{}
	item.ProgressPct = 0
	item.Status = StatusNone
	item.Breached = false
	item.ClosedAt = time.Time{}
}

// MinutesOverdue returns whole minutes past due, or 0 if not yet due.
func MinutesOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / time.Minute)
}
