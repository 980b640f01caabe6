package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/slaengine/internal/adapters/sqlite"
	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

func samplePolicy(id string, isDefault bool) *sla.Policy {
	return &sla.Policy{
		ID:                   id,
		Name:                 "Standard",
		Enabled:              true,
		IsDefault:            isDefault,
		WarnThresholdPct:     70,
		CriticalThresholdPct: 90,
		BreachGraceMinutes:   15,
		Rules: []sla.Rule{
			{StartEvent: "Started", StopEvent: "Done", TATHours: 24, EscalationMinutes1: 60, EscalateToRole1: "Lead"},
			{ServiceType: "Overhaul", Workshop: "North", StartEvent: "Started", StopEvent: "Done", TATHours: 72,
				EscalationMinutes1: 120, EscalateToRole1: "Lead", EscalationMinutes2: 480, EscalateToRole2: "Manager"},
		},
	}
}

func TestPolicyRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPolicyRepository(db)
	ctx := context.Background()

	if err := repo.Save(ctx, samplePolicy("POL-1", true)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "POL-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.WarnThresholdPct != 70 || got.CriticalThresholdPct != 90 || got.BreachGraceMinutes != 15 {
		t.Errorf("thresholds = %+v", got)
	}
	if len(got.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(got.Rules))
	}
	if got.Rules[0].ServiceType != "" || got.Rules[1].ServiceType != "Overhaul" {
		t.Errorf("rule order not preserved: %+v", got.Rules)
	}
	if got.Rules[1].EscalateToRole2 != "Manager" || got.Rules[1].Workshop != "North" {
		t.Errorf("rule fields = %+v", got.Rules[1])
	}

	def, err := repo.GetDefault(ctx)
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if def.ID != "POL-1" {
		t.Errorf("default = %s, want POL-1", def.ID)
	}
}

func TestPolicyRepository_SaveReplacesRules(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPolicyRepository(db)
	ctx := context.Background()

	p := samplePolicy("POL-1", false)
	repo.Save(ctx, p)

	p.Rules = p.Rules[:1]
	p.WarnThresholdPct = 50
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, "POL-1")
	if len(got.Rules) != 1 || got.WarnThresholdPct != 50 {
		t.Errorf("got %+v", got)
	}
}

func TestPolicyRepository_DefaultRules(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPolicyRepository(db)
	ctx := context.Background()

	t.Run("no default", func(t *testing.T) {
		_, err := repo.GetDefault(ctx)
		if !errors.Is(err, secondary.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("disabled default is ignored", func(t *testing.T) {
		p := samplePolicy("POL-OFF", true)
		p.Enabled = false
		repo.Save(ctx, p)
		_, err := repo.GetDefault(ctx)
		if !errors.Is(err, secondary.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("second enabled default rejected", func(t *testing.T) {
		if err := repo.Save(ctx, samplePolicy("POL-A", true)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repo.Save(ctx, samplePolicy("POL-B", true)); err == nil {
			t.Error("expected unique default violation")
		}
	})

	t.Run("thresholds checked by schema", func(t *testing.T) {
		p := samplePolicy("POL-BAD", false)
		p.CriticalThresholdPct = 60
		if err := repo.Save(ctx, p); err == nil {
			t.Error("expected check constraint violation")
		}
	})
}

func TestPolicyRepository_ListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPolicyRepository(db)
	ctx := context.Background()

	repo.Save(ctx, samplePolicy("POL-1", false))
	repo.Save(ctx, samplePolicy("POL-2", false))

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || len(list[1].Rules) != 2 {
		t.Errorf("List = %+v", list)
	}

	if err := repo.Delete(ctx, "POL-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "POL-1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "POL-1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
