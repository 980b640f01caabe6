package db

import (
	"database/sql"
	"fmt"
)

// SeedFixtures populates the database with a demo policy, escalation
// recipients and work items.
func SeedFixtures(database *sql.DB) error {
	if _, err := database.Exec(
		`INSERT INTO sla_policies (id, name, enabled, is_default, apply_per_workshop, warn_threshold_pct, critical_threshold_pct, breach_grace_minutes)
		 VALUES ('POL-STD', 'Standard service', 1, 1, 0, 70, 90, 30)`,
	); err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}

	rules := []struct {
		serviceType any
		start, stop string
		tat         int
		esc1        int
		role1       any
		esc2        int
		role2       any
	}{
		{nil, "Started", "Done", 24, 60, "Lead", 240, "Manager"},
		{"Overhaul", "Started", "Done", 72, 120, "Lead", 480, "Manager"},
		{nil, "Queued", "Started", 4, 30, "Dispatcher", 0, nil},
	}
	for i, r := range rules {
		if _, err := database.Exec(
			`INSERT INTO sla_rules (policy_id, position, service_type, start_event, stop_event, tat_hours,
			 escalation_minutes_1, escalate_to_role_1, escalation_minutes_2, escalate_to_role_2)
			 VALUES ('POL-STD', ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.serviceType, r.start, r.stop, r.tat, r.esc1, r.role1, r.esc2, r.role2,
		); err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
	}

	users := []struct{ id, email, role string }{
		{"USR-001", "lead@example.com", "Lead"},
		{"USR-002", "manager@example.com", "Manager"},
		{"USR-003", "dispatch@example.com", "Dispatcher"},
	}
	for _, u := range users {
		if _, err := database.Exec("INSERT INTO users (id, email, enabled) VALUES (?, ?, 1)", u.id, u.email); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if _, err := database.Exec("INSERT INTO user_roles (user_id, role) VALUES (?, ?)", u.id, u.role); err != nil {
			return fmt.Errorf("seed user roles: %w", err)
		}
	}

	items := []struct{ id, state, serviceType string }{
		{"WI-001", "New", "Repair"},
		{"WI-002", "New", "Overhaul"},
		{"WI-003", "New", ""},
	}
	for _, it := range items {
		var serviceType any
		if it.serviceType != "" {
			serviceType = it.serviceType
		}
		if _, err := database.Exec(
			"INSERT INTO work_items (id, current_state, service_type) VALUES (?, ?, ?)",
			it.id, it.state, serviceType,
		); err != nil {
			return fmt.Errorf("seed work items: %w", err)
		}
	}

	return nil
}
