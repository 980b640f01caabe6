// Package sla contains the pure business logic for SLA compliance tracking.
// Nothing in this package performs I/O: callers load policies and work items,
// hand them to these functions together with the current time, and persist
// whatever comes back.
package sla

import (
	"fmt"
	"time"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// Status is the three-color compliance status of a work item.
type Status string

// Status constants. StatusNone means no SLA is applied.
const (
	StatusNone   Status = ""
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Policy is an SLA policy with its nested rule list.
type Policy struct {
	ID                   string
	Name                 string
	Enabled              bool
	IsDefault            bool
	ApplyPerWorkshop     bool
	WarnThresholdPct     int
	CriticalThresholdPct int
	BreachGraceMinutes   int
	Rules                []Rule
}

// Grace returns the breach grace window as a duration.
func (p *Policy) Grace() time.Duration {
	return time.Duration(p.BreachGraceMinutes) * time.Minute
}

// Rule is a single SLA rule. Empty ServiceType or Workshop is a wildcard.
type Rule struct {
	ServiceType        string // Empty string means unset (wildcard)
	Workshop           string // Empty string means unset (wildcard)
	StartEvent         string
	StopEvent          string
	TATHours           int
	EscalationMinutes1 int
	EscalateToRole1    string // Empty string means unset
	EscalationMinutes2 int
	EscalateToRole2    string // Empty string means unset
}

// TAT returns the turn-around time as a duration.
func (r *Rule) TAT() time.Duration {
	return time.Duration(r.TATHours) * time.Hour
}

// Escalation returns the threshold and target role for an escalation level.
// ok is false for levels the rule does not define.
func (r *Rule) Escalation(level int) (minutes int, role string, ok bool) {
	switch level {
	case 1:
		return r.EscalationMinutes1, r.EscalateToRole1, true
	case 2:
		return r.EscalationMinutes2, r.EscalateToRole2, true
	}
	return 0, "", false
}

// EscalationLevels lists the levels a sweep attempts, in order.
var EscalationLevels = []int{1, 2}

// Phase is the lifecycle phase of a work item's SLA fields.
type Phase int

const (
	// PhaseUnset means no policy or rule has been applied.
	PhaseUnset Phase = iota
	// PhaseActive means the SLA clock is running.
	PhaseActive
	// PhaseClosed means a stop event froze the SLA fields.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseClosed:
		return "closed"
	}
	return "unset"
}

// WorkItem is the narrow view of a work item the engine reads and writes.
// Zero times mean unset.
type WorkItem struct {
	ID           string
	CurrentState string
	ServiceType  string // Empty string means null
	Workshop     string // Empty string means null
	PolicyID     string // Empty string means null
	PolicyPinned bool   // PolicyID was filled from the default policy at start
	StartEvent   string // event that started the SLA clock, used to re-select the rule
	Start        time.Time
	Due          time.Time
	ProgressPct  float64
	Status       Status
	Breached     bool
	ClosedAt     time.Time
	Version      int64
}

// Phase derives the lifecycle phase from the SLA fields.
func (w *WorkItem) Phase() Phase {
	switch {
	case !w.ClosedAt.IsZero():
		return PhaseClosed
	case !w.Start.IsZero() && !w.Due.IsZero():
		return PhaseActive
	}
	return PhaseUnset
}
