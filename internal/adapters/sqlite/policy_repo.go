package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

const policyColumns = `id, name, enabled, is_default, apply_per_workshop, warn_threshold_pct, critical_threshold_pct, breach_grace_minutes`

// PolicyRepository implements secondary.PolicyRepository with SQLite.
type PolicyRepository struct {
	db *sql.DB
}

// NewPolicyRepository creates a new SQLite policy repository.
func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetByID retrieves a policy and its rules.
func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*sla.Policy, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+policyColumns+" FROM sla_policies WHERE id = ?", id)
	return r.load(ctx, row, fmt.Sprintf("policy %s", id))
}

// GetDefault retrieves the enabled default policy.
func (r *PolicyRepository) GetDefault(ctx context.Context) (*sla.Policy, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+policyColumns+" FROM sla_policies WHERE enabled = 1 AND is_default = 1 ORDER BY id LIMIT 1")
	return r.load(ctx, row, "default policy")
}

func (r *PolicyRepository) load(ctx context.Context, row *sql.Row, what string) (*sla.Policy, error) {
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", what, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	if p.Rules, err = r.rules(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all policies with their rules.
func (r *PolicyRepository) List(ctx context.Context) ([]*sla.Policy, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+policyColumns+" FROM sla_policies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	var policies []*sla.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	for _, p := range policies {
		if p.Rules, err = r.rules(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

// Save replaces a policy and all of its rules in one transaction.
func (r *PolicyRepository) Save(ctx context.Context, p *sla.Policy) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sla_policies (`+policyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			enabled = excluded.enabled,
			is_default = excluded.is_default,
			apply_per_workshop = excluded.apply_per_workshop,
			warn_threshold_pct = excluded.warn_threshold_pct,
			critical_threshold_pct = excluded.critical_threshold_pct,
			breach_grace_minutes = excluded.breach_grace_minutes,
			updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, p.Enabled, p.IsDefault, p.ApplyPerWorkshop,
		p.WarnThresholdPct, p.CriticalThresholdPct, p.BreachGraceMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sla_rules WHERE policy_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear rules for policy %s: %w", p.ID, err)
	}

	for i, rule := range p.Rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sla_rules (policy_id, position, service_type, workshop, start_event, stop_event, tat_hours,
				escalation_minutes_1, escalate_to_role_1, escalation_minutes_2, escalate_to_role_2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i,
			nullString(rule.ServiceType),
			nullString(rule.Workshop),
			rule.StartEvent,
			rule.StopEvent,
			rule.TATHours,
			rule.EscalationMinutes1,
			nullString(rule.EscalateToRole1),
			rule.EscalationMinutes2,
			nullString(rule.EscalateToRole2),
		)
		if err != nil {
			return fmt.Errorf("failed to save rule %d of policy %s: %w", i, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit policy %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a policy; its rules cascade.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sla_rules WHERE policy_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM sla_policies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("policy %s: %w", id, secondary.ErrNotFound)
	}
	return tx.Commit()
}

func (r *PolicyRepository) rules(ctx context.Context, policyID string) ([]sla.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT service_type, workshop, start_event, stop_event, tat_hours,
			escalation_minutes_1, escalate_to_role_1, escalation_minutes_2, escalate_to_role_2
		FROM sla_rules WHERE policy_id = ? ORDER BY position`,
		policyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for policy %s: %w", policyID, err)
	}
	defer rows.Close()

	var rules []sla.Rule
	for rows.Next() {
		var (
			serviceType sql.NullString
			workshop    sql.NullString
			role1       sql.NullString
			role2       sql.NullString
			rule        sla.Rule
		)
		err := rows.Scan(&serviceType, &workshop, &rule.StartEvent, &rule.StopEvent, &rule.TATHours,
			&rule.EscalationMinutes1, &role1, &rule.EscalationMinutes2, &role2)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.ServiceType = serviceType.String
		rule.Workshop = workshop.String
		rule.EscalateToRole1 = role1.String
		rule.EscalateToRole2 = role2.String
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanPolicy(row rowScanner) (*sla.Policy, error) {
	p := &sla.Policy{}
	err := row.Scan(&p.ID, &p.Name, &p.Enabled, &p.IsDefault, &p.ApplyPerWorkshop,
		&p.WarnThresholdPct, &p.CriticalThresholdPct, &p.BreachGraceMinutes)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Ensure PolicyRepository implements the interface
var _ secondary.PolicyRepository = (*PolicyRepository)(nil)
