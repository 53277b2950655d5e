package services

import (
	"testing"
	"time"

	"conquest-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testConfig mirrors the LoadConfig defaults so tests do not depend on the
// environment.
func testConfig() *Config {
	return &Config{
		LossFactor:        0.3,
		WallBonusPerLevel: 0.03,
		HeroBonus:         0.1,

		SpeedMultiplier: 1.0,
		TradeSpeed:      16.0,
		WorldSize:       400,

		ProductionBasePerHour: 30,
		ProductionFactor:      1.16,
		StorageBase:           800,
		StorageFactor:         1.33,

		BattleArchiveAfter: 14 * 24 * time.Hour,
		VillageCacheTTL:    30 * time.Second,
	}
}

// testCatalog is a small fixed catalog with one unit per combat archetype:
// balanced infantry, defensive infantry, cavalry and a cheap throwaway unit
// whose attack equals its defense (handy for forcing draws).
func testCatalog() *UnitCatalog {
	units := []UnitStats{
		{
			ID: "legionnaire", Name: "Legionnaire", Tribe: "romans",
			Attack: 40, DefenseInfantry: 35, DefenseCavalry: 50,
			Speed: 6, CarryCapacity: 50,
			TrainingCost: models.ResourceVector{Wood: 120, Clay: 100, Iron: 150, Crop: 30},
			TrainingSecs: 2,
		},
		{
			ID: "praetorian", Name: "Praetorian", Tribe: "romans",
			Attack: 30, DefenseInfantry: 65, DefenseCavalry: 35,
			Speed: 5, CarryCapacity: 20,
			TrainingCost: models.ResourceVector{Wood: 100, Clay: 130, Iron: 160, Crop: 70},
			TrainingSecs: 2,
		},
		{
			ID: "equites_imperatoris", Name: "Equites Imperatoris", Tribe: "romans",
			Attack: 120, DefenseInfantry: 65, DefenseCavalry: 50,
			Speed: 14, CarryCapacity: 100, Cavalry: true,
			TrainingCost: models.ResourceVector{Wood: 550, Clay: 440, Iron: 320, Crop: 100},
			TrainingSecs: 3,
		},
		{
			ID: "militia", Name: "Militia", Tribe: "romans",
			Attack: 10, DefenseInfantry: 10, DefenseCavalry: 10,
			Speed: 7, CarryCapacity: 10,
			TrainingCost: models.ResourceVector{Wood: 50, Clay: 30, Iron: 20, Crop: 10},
			TrainingSecs: 1,
		},
	}
	buildings := []BuildingStats{
		{
			Key: models.BuildingMain, Name: "Main Building", MaxLevel: 20,
			BaseCost:   models.ResourceVector{Wood: 70, Clay: 40, Iron: 60, Crop: 20},
			CostFactor: 1.28, BaseSecs: 60, TimeFactor: 1.26,
		},
		{
			Key: models.BuildingWarehouse, Name: "Warehouse", MaxLevel: 20,
			BaseCost:   models.ResourceVector{Wood: 130, Clay: 160, Iron: 90, Crop: 40},
			CostFactor: 1.28, BaseSecs: 120, TimeFactor: 1.26,
		},
		{
			Key: models.BuildingWall, Name: "City Wall", MaxLevel: 20,
			BaseCost:   models.ResourceVector{Wood: 70, Clay: 90, Iron: 170, Crop: 70},
			CostFactor: 1.28, BaseSecs: 100, TimeFactor: 1.26,
		},
	}
	return NewUnitCatalog(units, buildings)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A second pooled connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Alliance{},
		&models.Player{},
		&models.Village{},
		&models.VillageTroop{},
		&models.StationedSupport{},
		&models.Movement{},
		&models.Battle{},
		&models.BuildingQueueEntry{},
		&models.TrainingQueueEntry{},
		&models.DomainEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// testEngine wires the full service graph against an in-memory database and
// a mutable fixed clock.
type testEngine struct {
	db        *gorm.DB
	cfg       *Config
	catalog   *UnitCatalog
	clock     *FixedClock
	ledger    *ResourceLedger
	villages  *VillageService
	movements *MovementService
	scheduler *MovementScheduler
	queues    *QueueService
	events    *EventService
}

func newTestEngine(t *testing.T, at time.Time) *testEngine {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	catalog := testCatalog()
	clock := &FixedClock{T: at}

	ledger := NewResourceLedger(cfg)
	strength := NewStrengthCalculator(catalog, cfg)
	resolver := NewBattleResolver(strength, catalog, cfg)
	events := NewEventService()
	villages := NewVillageService(db, ledger, cfg, clock)

	return &testEngine{
		db:        db,
		cfg:       cfg,
		catalog:   catalog,
		clock:     clock,
		ledger:    ledger,
		villages:  villages,
		movements: NewMovementService(db, catalog, ledger, villages, cfg, clock),
		scheduler: NewMovementScheduler(db, resolver, ledger, catalog, villages, events, cfg),
		queues:    NewQueueService(db, catalog, ledger, villages, events, cfg, clock),
		events:    events,
	}
}

func (e *testEngine) createVillage(t *testing.T, name string, x, y int, res models.ResourceVector) *models.Village {
	t.Helper()
	v := &models.Village{
		ID:               uuid.NewString(),
		Name:             name,
		Slug:             name,
		X:                x,
		Y:                y,
		BuildingLevels:   models.BuildingLevels{},
		Resources:        res,
		LastResourceTick: e.clock.T,
	}
	if err := e.db.Create(v).Error; err != nil {
		t.Fatalf("failed to create village %s: %v", name, err)
	}
	return v
}

func (e *testEngine) garrison(t *testing.T, villageID, unitTypeID string, inVillage int64) {
	t.Helper()
	row := models.VillageTroop{
		ID:         uuid.NewString(),
		VillageID:  villageID,
		UnitTypeID: unitTypeID,
		InVillage:  inVillage,
	}
	if err := e.db.Create(&row).Error; err != nil {
		t.Fatalf("failed to create garrison row: %v", err)
	}
}

func (e *testEngine) troopRow(t *testing.T, villageID, unitTypeID string) models.VillageTroop {
	t.Helper()
	var row models.VillageTroop
	err := e.db.Where("village_id = ? AND unit_type_id = ?", villageID, unitTypeID).First(&row).Error
	if err != nil {
		t.Fatalf("failed to load garrison row %s/%s: %v", villageID, unitTypeID, err)
	}
	return row
}

func (e *testEngine) reloadVillage(t *testing.T, id string) *models.Village {
	t.Helper()
	var v models.Village
	if err := e.db.First(&v, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload village %s: %v", id, err)
	}
	return &v
}

func (e *testEngine) reloadMovement(t *testing.T, id string) *models.Movement {
	t.Helper()
	var m models.Movement
	if err := e.db.First(&m, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload movement %s: %v", id, err)
	}
	return &m
}

func (e *testEngine) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.DomainEvent{}).Where("type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("failed to count %s events: %v", eventType, err)
	}
	return n
}
