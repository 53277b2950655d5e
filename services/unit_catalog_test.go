package services

import (
	"testing"

	"conquest-engine/models"
)

func TestLoadUnitCatalogFromConfigFile(t *testing.T) {
	catalog, err := LoadUnitCatalog("../config/units.yaml")
	if err != nil {
		t.Fatalf("failed to load shipped catalog: %v", err)
	}

	leg, ok := catalog.Unit("legionnaire")
	if !ok {
		t.Fatal("shipped catalog missing legionnaire")
	}
	if leg.Attack <= 0 || leg.Speed <= 0 || leg.TrainingSecs <= 0 {
		t.Fatalf("legionnaire stats incomplete: %+v", leg)
	}

	if _, ok := catalog.Building(models.BuildingMain); !ok {
		t.Fatal("shipped catalog missing main building")
	}
	if _, ok := catalog.Building(models.BuildingWall); !ok {
		t.Fatal("shipped catalog missing wall")
	}
}

func TestSlowestSpeed(t *testing.T) {
	catalog := testCatalog()

	got := catalog.SlowestSpeed(models.TroopComposition{"legionnaire": 1, "equites_imperatoris": 1})
	if got != 6 {
		t.Fatalf("expected slowest speed 6, got %v", got)
	}

	got = catalog.SlowestSpeed(models.TroopComposition{"equites_imperatoris": 1})
	if got != 14 {
		t.Fatalf("expected speed 14, got %v", got)
	}

	// Zero counts and unknown ids never dictate the pace.
	got = catalog.SlowestSpeed(models.TroopComposition{"praetorian": 0, "ghost_unit": 3, "equites_imperatoris": 2})
	if got != 14 {
		t.Fatalf("expected speed 14 ignoring zero counts and unknowns, got %v", got)
	}

	if got := catalog.SlowestSpeed(models.TroopComposition{"ghost_unit": 5}); got != 0 {
		t.Fatalf("all-unknown composition must report zero speed, got %v", got)
	}
}

func TestCarryCapacity(t *testing.T) {
	catalog := testCatalog()

	got := catalog.CarryCapacity(models.TroopComposition{"legionnaire": 2, "equites_imperatoris": 1})
	if got != 200 {
		t.Fatalf("expected carry capacity 200, got %d", got)
	}
	if got := catalog.CarryCapacity(models.TroopComposition{"ghost_unit": 10}); got != 0 {
		t.Fatalf("unknown units carry nothing, got %d", got)
	}
}
