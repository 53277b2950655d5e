package services

import (
	"errors"
	"testing"
	"time"

	"conquest-engine/models"
)

func TestDeductResourcesRejectsOverdraft(t *testing.T) {
	e := newTestEngine(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	v := e.createVillage(t, "poor", 0, 0, models.ResourceVector{Wood: 100, Clay: 100, Iron: 100, Crop: 100})

	err := e.ledger.DeductResources(e.db, v, models.ResourceVector{Wood: 200})
	if !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}

	reloaded := e.reloadVillage(t, v.ID)
	if reloaded.Resources.Wood != 100 {
		t.Fatalf("failed deduct must leave balances untouched, got %+v", reloaded.Resources)
	}
}

func TestDeductResourcesIsAllOrNothing(t *testing.T) {
	e := newTestEngine(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	v := e.createVillage(t, "payer", 0, 0, models.ResourceVector{Wood: 500, Clay: 500, Iron: 500, Crop: 500})

	cost := models.ResourceVector{Wood: 100, Clay: 200, Iron: 300, Crop: 400}
	if err := e.ledger.DeductResources(e.db, v, cost); err != nil {
		t.Fatalf("deduct failed: %v", err)
	}

	reloaded := e.reloadVillage(t, v.ID)
	want := models.ResourceVector{Wood: 400, Clay: 300, Iron: 200, Crop: 100}
	if reloaded.Resources != want {
		t.Fatalf("expected balances %+v, got %+v", want, reloaded.Resources)
	}
}

func TestAddResourcesClampsToStorage(t *testing.T) {
	e := newTestEngine(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	// No warehouse/granary: capacity is the 800 base everywhere.
	v := e.createVillage(t, "full", 0, 0, models.ResourceVector{Wood: 700, Clay: 700, Iron: 700, Crop: 700})

	if err := e.ledger.AddResources(e.db, v, models.ResourceVector{Wood: 500, Clay: 50, Iron: 0, Crop: 200}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	reloaded := e.reloadVillage(t, v.ID)
	want := models.ResourceVector{Wood: 800, Clay: 750, Iron: 700, Crop: 800}
	if reloaded.Resources != want {
		t.Fatalf("expected clamped balances %+v, got %+v", want, reloaded.Resources)
	}
}

func TestTouchAccruesProductionOnce(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, t0)

	v := e.createVillage(t, "mine", 0, 0, models.ResourceVector{})
	v.BuildingLevels = models.BuildingLevels{models.BuildingWoodcutter: 1}
	if err := e.db.Model(v).Select("building_levels").Updates(v).Error; err != nil {
		t.Fatalf("failed to set building levels: %v", err)
	}

	later := t0.Add(time.Hour)
	if err := e.ledger.Touch(e.db, v, later); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if v.Resources.Wood != 30 {
		t.Fatalf("expected 30 wood after one hour, got %+v", v.Resources)
	}
	if !v.LastResourceTick.Equal(later) {
		t.Fatalf("watermark not advanced: %v", v.LastResourceTick)
	}

	// Same instant again: the watermark makes the accrual a no-op.
	if err := e.ledger.Touch(e.db, v, later); err != nil {
		t.Fatalf("second touch failed: %v", err)
	}
	if v.Resources.Wood != 30 {
		t.Fatalf("double touch must not double-accrue, got %+v", v.Resources)
	}

	reloaded := e.reloadVillage(t, v.ID)
	if reloaded.Resources.Wood != 30 {
		t.Fatalf("persisted balance mismatch, got %+v", reloaded.Resources)
	}
}

func TestAccrueProductionClampsToCapacity(t *testing.T) {
	e := newTestEngine(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	v := &models.Village{
		BuildingLevels: models.BuildingLevels{models.BuildingWoodcutter: 5},
		Resources:      models.ResourceVector{Wood: 790},
	}
	// 5 * 30 * 1.16^4 ≈ 268/hour for a full day: far past the 800 cap.
	e.ledger.AccrueProduction(v, 24*3600)
	if v.Resources.Wood != 800 {
		t.Fatalf("expected wood clamped to 800, got %+v", v.Resources)
	}
}
