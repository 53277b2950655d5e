package services

import (
	"testing"
	"time"

	"conquest-engine/models"

	"gorm.io/gorm"
)

func TestCreditGarrisonCreatesKeyedRow(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, t0)
	v := e.createVillage(t, "fresh", 0, 0, models.ResourceVector{Wood: 750, Clay: 750, Iron: 750, Crop: 750})

	// No VillageTroop rows exist yet; the credit must create one carrying
	// the village/unit key, not a blank row.
	err := e.db.Transaction(func(tx *gorm.DB) error {
		return creditGarrison(tx, v.ID, models.TroopComposition{"legionnaire": 7}, bucketInVillage)
	})
	if err != nil {
		t.Fatalf("credit on fresh garrison failed: %v", err)
	}

	row := e.troopRow(t, v.ID, "legionnaire")
	if row.VillageID != v.ID || row.UnitTypeID != "legionnaire" {
		t.Fatalf("created row missing its key: %+v", row)
	}
	if row.InVillage != 7 {
		t.Fatalf("expected 7 in_village, got %+v", row)
	}

	var count int64
	if err := e.db.Model(&models.VillageTroop{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 garrison row, found %d", count)
	}
}

func TestDrainThenCreditShareOneRow(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, t0)
	v := e.createVillage(t, "fresh", 0, 0, models.ResourceVector{Wood: 750, Clay: 750, Iron: 750, Crop: 750})

	// Drain on a unit type with no row yet clamps at zero; the credit right
	// after must land on the same row instead of colliding on the unique
	// village/unit index.
	err := e.db.Transaction(func(tx *gorm.DB) error {
		comp := models.TroopComposition{"praetorian": 3}
		if err := drainGarrison(tx, v.ID, comp, bucketInSupport); err != nil {
			return err
		}
		return creditGarrison(tx, v.ID, comp, bucketInDefense)
	})
	if err != nil {
		t.Fatalf("drain-then-credit failed: %v", err)
	}

	row := e.troopRow(t, v.ID, "praetorian")
	if row.InSupport != 0 || row.InDefense != 3 {
		t.Fatalf("expected 0 in_support and 3 in_defense, got %+v", row)
	}

	var count int64
	if err := e.db.Model(&models.VillageTroop{}).Where("village_id = ?", v.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single praetorian row, found %d", count)
	}
}
