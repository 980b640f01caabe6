package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/slaengine/internal/adapters/sqlite"
	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

func TestWorkItemRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWorkItemRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &sla.WorkItem{ID: "WI-001", CurrentState: "New", ServiceType: "Overhaul", Workshop: "North"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "WI-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ServiceType != "Overhaul" || got.Workshop != "North" {
		t.Errorf("got %+v", got)
	}
	if got.Phase() != sla.PhaseUnset {
		t.Errorf("Phase = %v, want unset", got.Phase())
	}

	_, err = repo.GetByID(ctx, "WI-999")
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkItemRepository_UpdateSLA(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWorkItemRepository(db)
	ctx := context.Background()
	seedWorkItem(t, db, "WI-001", "")

	item, _ := repo.GetByID(ctx, "WI-001")
	item.CurrentState = "Started"
	item.PolicyID = "POL-STD"
	item.PolicyPinned = true
	item.StartEvent = "Started"
	item.Start = t0
	item.Due = t0.Add(10 * time.Hour)
	item.ProgressPct = 33.33333
	item.Status = sla.StatusGreen

	t.Run("writes fields and bumps version", func(t *testing.T) {
		if err := repo.UpdateSLA(ctx, item); err != nil {
			t.Fatalf("UpdateSLA failed: %v", err)
		}
		if item.Version != 1 {
			t.Errorf("Version = %d, want 1", item.Version)
		}

		got, _ := repo.GetByID(ctx, "WI-001")
		if !got.Start.Equal(t0) || !got.Due.Equal(t0.Add(10*time.Hour)) {
			t.Errorf("Start/Due = %v/%v", got.Start, got.Due)
		}
		if got.ProgressPct != 33.33 {
			t.Errorf("ProgressPct = %v, want rounded 33.33", got.ProgressPct)
		}
		if got.Status != sla.StatusGreen || got.PolicyID != "POL-STD" || got.StartEvent != "Started" {
			t.Errorf("got %+v", got)
		}
		if !got.PolicyPinned || got.CurrentState != "Started" {
			t.Errorf("PolicyPinned/CurrentState = %v/%q", got.PolicyPinned, got.CurrentState)
		}
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := *item
		stale.Version = 0
		err := repo.UpdateSLA(ctx, &stale)
		if !errors.Is(err, secondary.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		err := repo.UpdateSLA(ctx, &sla.WorkItem{ID: "WI-404"})
		if !errors.Is(err, secondary.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reset clears fields", func(t *testing.T) {
		sla.Reset(item)
		if err := repo.UpdateSLA(ctx, item); err != nil {
			t.Fatalf("UpdateSLA failed: %v", err)
		}
		got, _ := repo.GetByID(ctx, "WI-001")
		if !got.Start.IsZero() || !got.Due.IsZero() || got.PolicyID != "" || got.Status != sla.StatusNone {
			t.Errorf("fields not cleared: %+v", got)
		}
		if got.PolicyPinned {
			t.Error("PolicyPinned not cleared")
		}
	})

	t.Run("reset keeps explicit policy", func(t *testing.T) {
		seedWorkItem(t, db, "WI-002", "")
		explicit, _ := repo.GetByID(ctx, "WI-002")
		explicit.PolicyID = "POL-SPECIAL"
		explicit.Start = t0
		explicit.Due = t0.Add(time.Hour)
		if err := repo.UpdateSLA(ctx, explicit); err != nil {
			t.Fatalf("UpdateSLA failed: %v", err)
		}

		sla.Reset(explicit)
		if err := repo.UpdateSLA(ctx, explicit); err != nil {
			t.Fatalf("UpdateSLA failed: %v", err)
		}
		got, _ := repo.GetByID(ctx, "WI-002")
		if got.PolicyID != "POL-SPECIAL" || got.Phase() != sla.PhaseUnset {
			t.Errorf("got policy %q phase %v", got.PolicyID, got.Phase())
		}
	})
}

func TestWorkItemRepository_ListOpenOrdersByDue(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWorkItemRepository(db)
	ctx := context.Background()

	dues := map[string]time.Duration{"WI-A": 5 * time.Hour, "WI-B": time.Hour, "WI-C": 3 * time.Hour}
	for id, d := range dues {
		seedWorkItem(t, db, id, "")
		item, _ := repo.GetByID(ctx, id)
		item.Start = t0
		item.Due = t0.Add(d)
		item.Status = sla.StatusGreen
		if err := repo.UpdateSLA(ctx, item); err != nil {
			t.Fatalf("UpdateSLA failed: %v", err)
		}
	}
	seedWorkItem(t, db, "WI-UNSET", "")

	closed, _ := repo.GetByID(ctx, "WI-C")
	closed.ClosedAt = t0.Add(2 * time.Hour)
	if err := repo.UpdateSLA(ctx, closed); err != nil {
		t.Fatalf("UpdateSLA failed: %v", err)
	}

	items, err := repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "WI-B" || items[1].ID != "WI-A" {
		t.Errorf("order = %s, %s; want WI-B, WI-A", items[0].ID, items[1].ID)
	}
}

func TestWorkItemRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWorkItemRepository(db)
	ctx := context.Background()

	seedWorkItem(t, db, "WI-1", "")
	seedWorkItem(t, db, "WI-2", "")
	item, _ := repo.GetByID(ctx, "WI-2")
	item.Start, item.Due = t0, t0.Add(time.Hour)
	item.ProgressPct, item.Status, item.Breached = 100, sla.StatusRed, true
	if err := repo.UpdateSLA(ctx, item); err != nil {
		t.Fatalf("UpdateSLA failed: %v", err)
	}

	red, err := repo.List(ctx, secondary.WorkItemFilters{Status: sla.StatusRed})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(red) != 1 || red[0].ID != "WI-2" {
		t.Errorf("red = %+v", red)
	}

	breached, _ := repo.List(ctx, secondary.WorkItemFilters{BreachedOnly: true})
	if len(breached) != 1 {
		t.Errorf("breached count = %d, want 1", len(breached))
	}

	all, _ := repo.List(ctx, secondary.WorkItemFilters{})
	if len(all) != 2 {
		t.Errorf("all count = %d, want 2", len(all))
	}
}
