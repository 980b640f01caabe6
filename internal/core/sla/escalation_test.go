package sla

import "testing"

func TestCanEscalate(t *testing.T) {
	tests := []struct {
		name        string
		ctx         EscalationContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "due",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 1, Breached: true, ThresholdMins: 60, Role: "Lead", MinutesOverdue: 90},
			wantAllowed: true,
		},
		{
			name:        "exactly at threshold",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 1, Breached: true, ThresholdMins: 60, Role: "Lead", MinutesOverdue: 60},
			wantAllowed: true,
		},
		{
			name:        "not breached",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 1, ThresholdMins: 60, Role: "Lead", MinutesOverdue: 90},
			wantAllowed: false,
			wantReason:  "work item WI-1 is not breached",
		},
		{
			name:        "zero threshold",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 2, Breached: true, Role: "Manager", MinutesOverdue: 90},
			wantAllowed: false,
			wantReason:  "level 2 has no escalation threshold",
		},
		{
			name:        "no role",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 1, Breached: true, ThresholdMins: 30, MinutesOverdue: 90},
			wantAllowed: false,
			wantReason:  "level 1 has no escalation role",
		},
		{
			name:        "below threshold",
			ctx:         EscalationContext{WorkItemID: "WI-1", Level: 2, Breached: true, ThresholdMins: 120, Role: "Manager", MinutesOverdue: 90},
			wantAllowed: false,
			wantReason:  "work item WI-1 is 90 minutes overdue, level 2 fires at 120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanEscalate(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestNewEscalationContext(t *testing.T) {
	item := &WorkItem{ID: "WI-1", Breached: true}
	rule := &Rule{EscalationMinutes1: 30, EscalateToRole1: "Lead", EscalationMinutes2: 120, EscalateToRole2: "Manager"}

	ctx := NewEscalationContext(item, rule, 2, 45)
	if ctx.ThresholdMins != 120 || ctx.Role != "Manager" || ctx.MinutesOverdue != 45 || !ctx.Breached {
		t.Errorf("unexpected context %+v", ctx)
	}

	if _, _, ok := rule.Escalation(3); ok {
		t.Error("level 3 must be undefined")
	}
}
