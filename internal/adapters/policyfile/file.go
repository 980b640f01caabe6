// Package policyfile reads SLA policies from a YAML document and watches
// that document for changes.
package policyfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/slaengine/internal/core/sla"
)

// Document is the on-disk layout of a policy file.
//
//	policies:
//	  - id: POL-STD
//	    default: true
//	    warn_threshold_pct: 70
//	    critical_threshold_pct: 90
//	    rules:
//	      - start_event: Started
//	        stop_event: Done
//	        tat_hours: 24
type Document struct {
	Policies []PolicyDoc `yaml:"policies"`
}

// PolicyDoc is one policy entry.
type PolicyDoc struct {
	ID                   string    `yaml:"id"`
	Name                 string    `yaml:"name,omitempty"`
	Enabled              *bool     `yaml:"enabled,omitempty"`
	Default              bool      `yaml:"default,omitempty"`
	ApplyPerWorkshop     bool      `yaml:"apply_per_workshop,omitempty"`
	WarnThresholdPct     int       `yaml:"warn_threshold_pct"`
	CriticalThresholdPct int       `yaml:"critical_threshold_pct"`
	BreachGraceMinutes   int       `yaml:"breach_grace_minutes,omitempty"`
	Rules                []RuleDoc `yaml:"rules"`
}

// RuleDoc is one rule entry. Omitted service_type or workshop is a wildcard.
type RuleDoc struct {
	ServiceType        string `yaml:"service_type,omitempty"`
	Workshop           string `yaml:"workshop,omitempty"`
	StartEvent         string `yaml:"start_event"`
	StopEvent          string `yaml:"stop_event"`
	TATHours           int    `yaml:"tat_hours"`
	EscalationMinutes1 int    `yaml:"escalation_minutes_1,omitempty"`
	EscalateToRole1    string `yaml:"escalate_to_role_1,omitempty"`
	EscalationMinutes2 int    `yaml:"escalation_minutes_2,omitempty"`
	EscalateToRole2    string `yaml:"escalate_to_role_2,omitempty"`
}

// Load reads and validates the policy file at path.
func Load(path string) ([]*sla.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	policies, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policies, nil
}

// Parse decodes and validates a policy document. Unknown keys are rejected.
func Parse(data []byte) ([]*sla.Policy, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}

	seen := make(map[string]bool)
	var defaultID string
	policies := make([]*sla.Policy, 0, len(doc.Policies))
	for i, pd := range doc.Policies {
		p := pd.toPolicy()
		if r := sla.ValidatePolicy(p); !r.Allowed {
			return nil, fmt.Errorf("policy #%d: %s", i, r.Reason)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("policy #%d: duplicate id %s", i, p.ID)
		}
		seen[p.ID] = true
		if p.IsDefault && p.Enabled {
			if defaultID != "" {
				return nil, fmt.Errorf("policies %s and %s are both enabled defaults", defaultID, p.ID)
			}
			defaultID = p.ID
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// Marshal renders policies back into the file layout.
func Marshal(policies []*sla.Policy) ([]byte, error) {
	doc := Document{Policies: make([]PolicyDoc, 0, len(policies))}
	for _, p := range policies {
		doc.Policies = append(doc.Policies, fromPolicy(p))
	}
	return yaml.Marshal(&doc)
}

func (pd PolicyDoc) toPolicy() *sla.Policy {
	enabled := true
	if pd.Enabled != nil {
		enabled = *pd.Enabled
	}
	p := &sla.Policy{
		ID:                   pd.ID,
		Name:                 pd.Name,
		Enabled:              enabled,
		IsDefault:            pd.Default,
		ApplyPerWorkshop:     pd.ApplyPerWorkshop,
		WarnThresholdPct:     pd.WarnThresholdPct,
		CriticalThresholdPct: pd.CriticalThresholdPct,
		BreachGraceMinutes:   pd.BreachGraceMinutes,
		Rules:                make([]sla.Rule, 0, len(pd.Rules)),
	}
	for _, rd := range pd.Rules {
		p.Rules = append(p.Rules, sla.Rule{
			ServiceType:        rd.ServiceType,
			Workshop:           rd.Workshop,
			StartEvent:         rd.StartEvent,
			StopEvent:          rd.StopEvent,
			TATHours:           rd.TATHours,
			EscalationMinutes1: rd.EscalationMinutes1,
			EscalateToRole1:    rd.EscalateToRole1,
			EscalationMinutes2: rd.EscalationMinutes2,
			EscalateToRole2:    rd.EscalateToRole2,
		})
	}
	return p
}

func fromPolicy(p *sla.Policy) PolicyDoc {
	enabled := p.Enabled
	pd := PolicyDoc{
		ID:                   p.ID,
		Name:                 p.Name,
		Enabled:              &enabled,
		Default:              p.IsDefault,
		ApplyPerWorkshop:     p.ApplyPerWorkshop,
		WarnThresholdPct:     p.WarnThresholdPct,
		CriticalThresholdPct: p.CriticalThresholdPct,
		BreachGraceMinutes:   p.BreachGraceMinutes,
	}
	for _, r := range p.Rules {
		pd.Rules = append(pd.Rules, RuleDoc(r))
	}
	return pd
}
