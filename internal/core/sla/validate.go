package sla

import "fmt"

// ValidatePolicy evaluates whether a policy definition is usable.
// Rules:
// - Thresholds must be within 0..100
// - Critical threshold must be strictly greater than warn threshold
// - Grace minutes must not be negative
// - Every rule must pass ValidateRule
func ValidatePolicy(p *Policy) GuardResult {
	if p.ID == "" {
		return GuardResult{Allowed: false, Reason: "policy id is required"}
	}
	if p.WarnThresholdPct < 0 || p.WarnThresholdPct > 100 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("policy %s: warn_threshold_pct %d out of range 0..100", p.ID, p.WarnThresholdPct),
		}
	}
	if p.CriticalThresholdPct < 0 || p.CriticalThresholdPct > 100 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("policy %s: critical_threshold_pct %d out of range 0..100", p.ID, p.CriticalThresholdPct),
		}
	}
	if p.CriticalThresholdPct <= p.WarnThresholdPct {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("policy %s: critical_threshold_pct (%d) must be greater than warn_threshold_pct (%d)",
				p.ID, p.CriticalThresholdPct, p.WarnThresholdPct),
		}
	}
	if p.BreachGraceMinutes < 0 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("policy %s: breach_grace_minutes must not be negative", p.ID),
		}
	}
	for i := range p.Rules {
		if r := ValidateRule(&p.Rules[i]); !r.Allowed {
			return GuardResult{Allowed: false, Reason: fmt.Sprintf("policy %s: rule %d: %s", p.ID, i, r.Reason)}
		}
	}
	return GuardResult{Allowed: true}
}

// ValidateRule evaluates whether a single rule is usable.
// Rules:
// - start and stop events are required
// - tat_hours must be positive
// - escalation minutes must not be negative
func ValidateRule(r *Rule) GuardResult {
	if r.StartEvent == "" || r.StopEvent == "" {
		return GuardResult{Allowed: false, Reason: "start_event and stop_event are required"}
	}
	if r.TATHours <= 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("tat_hours must be positive (got %d)", r.TATHours)}
	}
	if r.EscalationMinutes1 < 0 || r.EscalationMinutes2 < 0 {
		return GuardResult{Allowed: false, Reason: "escalation minutes must not be negative"}
	}
	return GuardResult{Allowed: true}
}

// RuleViolation describes a rule that failed validation.
type RuleViolation struct {
	Index  int
	Reason string
}

// InvalidRules lists the rules of a policy that the matcher will skip.
func InvalidRules(p *Policy) []RuleViolation {
	var out []RuleViolation
	for i := range p.Rules {
		if r := ValidateRule(&p.Rules[i]); !r.Allowed {
			out = append(out, RuleViolation{Index: i, Reason: r.Reason})
		}
	}
	return out
}
