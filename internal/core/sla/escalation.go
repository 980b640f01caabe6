package sla

import "fmt"

// EscalationContext provides context for escalation guards.
type EscalationContext struct {
	WorkItemID     string
	Level          int
	Breached       bool
	ThresholdMins  int
	Role           string
	MinutesOverdue int
}

// NewEscalationContext fills an EscalationContext from an item and its rule.
func NewEscalationContext(item *WorkItem, rule *Rule, level int, minutesOverdue int) EscalationContext {
	minutes, role, _ := rule.Escalation(level)
	return EscalationContext{
		WorkItemID:     item.ID,
		Level:          level,
		Breached:       item.Breached,
		ThresholdMins:  minutes,
		Role:           role,
		MinutesOverdue: minutesOverdue,
	}
}

// CanEscalate evaluates whether an escalation level is due.
// Rules:
// - Item must be breached
// - Level threshold must be positive
// - Level must have a target role
// - Minutes overdue must reach the threshold
func CanEscalate(ctx EscalationContext) GuardResult {
	if !ctx.Breached {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("work item %s is not breached", ctx.WorkItemID),
		}
	}
	if ctx.ThresholdMins <= 0 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("level %d has no escalation threshold", ctx.Level),
		}
	}
	if ctx.Role == "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("level %d has no escalation role", ctx.Level),
		}
	}
	if ctx.MinutesOverdue < ctx.ThresholdMins {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("work item %s is %d minutes overdue, level %d fires at %d",
				ctx.WorkItemID, ctx.MinutesOverdue, ctx.Level, ctx.ThresholdMins),
		}
	}
	return GuardResult{Allowed: true}
}
