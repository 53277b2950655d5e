package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"conquest-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueService owns the construction and training queues. Both follow the
// same due-item pattern as movements: a village has at most one active entry
// per queue kind, the cost is deducted at enqueue time, and completion is
// applied exactly once behind a compare-and-set on the entry status.
type QueueService struct {
	DB       *gorm.DB
	Catalog  *UnitCatalog
	Ledger   *ResourceLedger
	Villages *VillageService
	Events   *EventService
	Config   *Config
	Clock    Clock
}

func NewQueueService(db *gorm.DB, catalog *UnitCatalog, ledger *ResourceLedger, villages *VillageService, events *EventService, cfg *Config, clock Clock) *QueueService {
	return &QueueService{
		DB:       db,
		Catalog:  catalog,
		Ledger:   ledger,
		Villages: villages,
		Events:   events,
		Config:   cfg,
		Clock:    clock,
	}
}

// BuildingCost scales the base cost by cost_factor^(targetLevel-1).
func BuildingCost(b BuildingStats, targetLevel int) models.ResourceVector {
	return b.BaseCost.Scale(math.Pow(b.CostFactor, float64(targetLevel-1)))
}

// BuildingDuration scales the base build time by time_factor^(targetLevel-1),
// reduced by the main building (5% per level, floor 10%).
func BuildingDuration(b BuildingStats, targetLevel, mainLevel int) time.Duration {
	secs := float64(b.BaseSecs) * math.Pow(b.TimeFactor, float64(targetLevel-1))
	reduction := 1 - 0.05*float64(mainLevel)
	if reduction < 0.1 {
		reduction = 0.1
	}
	return time.Duration(secs*reduction) * time.Second
}

// EnqueueBuilding starts the next-level construction of a building. Rejects
// with ErrQueueFull while another construction is active, ErrStaleReference
// for unknown buildings and ErrInsufficientResources when the village cannot
// pay.
func (s *QueueService) EnqueueBuilding(villageID, buildingKey string) (*models.BuildingQueueEntry, error) {
	stats, ok := s.Catalog.Building(buildingKey)
	if !ok {
		return nil, fmt.Errorf("unknown building %q: %w", buildingKey, ErrStaleReference)
	}

	var entry *models.BuildingQueueEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		v, err := loadVillage(tx, villageID)
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.BuildingQueueEntry{}).
			Where("village_id = ? AND status <> ?", villageID, models.QueueStatusCompleted).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("village %s already has an active construction: %w", villageID, ErrQueueFull)
		}

		targetLevel := v.BuildingLevels.Level(buildingKey) + 1
		if targetLevel > stats.MaxLevel {
			return fmt.Errorf("%s already at max level %d: %w", buildingKey, stats.MaxLevel, ErrQueueFull)
		}

		now := s.Clock.Now()
		if err := s.Ledger.Touch(tx, v, now); err != nil {
			return err
		}
		cost := BuildingCost(stats, targetLevel)
		if err := s.Ledger.DeductResources(tx, v, cost); err != nil {
			return err
		}

		entry = &models.BuildingQueueEntry{
			ID:          uuid.NewString(),
			VillageID:   villageID,
			BuildingKey: buildingKey,
			TargetLevel: targetLevel,
			Cost:        cost,
			StartedAt:   now,
			CompletesAt: now.Add(BuildingDuration(stats, targetLevel, v.BuildingLevels.Level(models.BuildingMain))),
			Status:      models.QueueStatusPending,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.Villages.InvalidateVillage(villageID)
	return entry, nil
}

// EnqueueTraining starts a training run of quantity units. Same single-slot
// policy as construction.
func (s *QueueService) EnqueueTraining(villageID, unitTypeID string, quantity int64) (*models.TrainingQueueEntry, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("training quantity must be positive: %w", ErrInvalidMovement)
	}
	unit, ok := s.Catalog.Unit(unitTypeID)
	if !ok {
		return nil, fmt.Errorf("unknown unit type %q: %w", unitTypeID, ErrStaleReference)
	}

	var entry *models.TrainingQueueEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		v, err := loadVillage(tx, villageID)
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.TrainingQueueEntry{}).
			Where("village_id = ? AND status <> ?", villageID, models.QueueStatusCompleted).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("village %s already has an active training run: %w", villageID, ErrQueueFull)
		}

		now := s.Clock.Now()
		if err := s.Ledger.Touch(tx, v, now); err != nil {
			return err
		}
		cost := unit.TrainingCost.Scale(float64(quantity))
		if err := s.Ledger.DeductResources(tx, v, cost); err != nil {
			return err
		}

		entry = &models.TrainingQueueEntry{
			ID:          uuid.NewString(),
			VillageID:   villageID,
			UnitTypeID:  unitTypeID,
			Quantity:    quantity,
			Cost:        cost,
			StartedAt:   now,
			CompletesAt: now.Add(time.Duration(quantity) * unit.TrainingTime()),
			Status:      models.QueueStatusPending,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.Villages.InvalidateVillage(villageID)
	return entry, nil
}

// ProcessDueBuildQueue promotes started constructions to in_progress and
// completes every due one exactly once. Failures are isolated per entry, like
// the movement batch.
func (s *QueueService) ProcessDueBuildQueue(now time.Time) int {
	err := s.DB.Model(&models.BuildingQueueEntry{}).
		Where("status = ? AND started_at <= ? AND completes_at > ?", models.QueueStatusPending, now, now).
		Update("status", models.QueueStatusInProgress).Error
	if err != nil {
		log.Printf("[BuildQueue] ❌ DB error promoting pending entries: %v", err)
	}

	var due []models.BuildingQueueEntry
	err = s.DB.
		Where("status IN ? AND completes_at <= ?",
			[]string{models.QueueStatusPending, models.QueueStatusInProgress}, now).
		Order("completes_at asc, id asc").
		Find(&due).Error
	if err != nil {
		log.Printf("[BuildQueue] ❌ DB error selecting due entries: %v", err)
		return 0
	}

	completed := 0
	for i := range due {
		if err := s.completeBuilding(&due[i], now); err != nil {
			log.Printf("[BuildQueue] ❌ Failed to complete entry %s: %v", due[i].ID, err)
			continue
		}
		completed++
	}
	return completed
}

func (s *QueueService) completeBuilding(entry *models.BuildingQueueEntry, now time.Time) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BuildingQueueEntry{}).
			Where("id = ? AND status <> ?", entry.ID, models.QueueStatusCompleted).
			Updates(map[string]interface{}{"status": models.QueueStatusCompleted, "completed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // another invocation won
		}

		v, err := loadVillage(tx, entry.VillageID)
		if err != nil {
			return err
		}
		if v.BuildingLevels == nil {
			v.BuildingLevels = models.BuildingLevels{}
		}
		// Level-up is idempotent w.r.t. the entry: the CAS above guarantees
		// this block runs once per entry.
		v.BuildingLevels[entry.BuildingKey] = entry.TargetLevel
		v.Population++
		if err := tx.Model(v).Select("building_levels", "population").Updates(v).Error; err != nil {
			return err
		}

		return s.Events.Emit(tx, models.EventConstructionCompleted, v.ID, nil, map[string]interface{}{
			"building_key": entry.BuildingKey,
			"level":        entry.TargetLevel,
		}, entry.CompletesAt)
	})
	if err != nil {
		return err
	}

	s.Villages.InvalidateVillage(entry.VillageID)
	return nil
}

// ProcessDueTrainingQueue promotes started runs to in_progress, then
// completes every due run exactly once and delivers the troops into the home
// garrison.
func (s *QueueService) ProcessDueTrainingQueue(now time.Time) int {
	err := s.DB.Model(&models.TrainingQueueEntry{}).
		Where("status = ? AND started_at <= ? AND completes_at > ?", models.QueueStatusPending, now, now).
		Update("status", models.QueueStatusInProgress).Error
	if err != nil {
		log.Printf("[TrainingQueue] ❌ DB error promoting pending entries: %v", err)
	}

	var due []models.TrainingQueueEntry
	err = s.DB.
		Where("status IN ? AND completes_at <= ?",
			[]string{models.QueueStatusPending, models.QueueStatusInProgress}, now).
		Order("completes_at asc, id asc").
		Find(&due).Error
	if err != nil {
		log.Printf("[TrainingQueue] ❌ DB error selecting due entries: %v", err)
		return 0
	}

	completed := 0
	for i := range due {
		if err := s.completeTraining(&due[i], now); err != nil {
			log.Printf("[TrainingQueue] ❌ Failed to complete entry %s: %v", due[i].ID, err)
			continue
		}
		completed++
	}
	return completed
}

func (s *QueueService) completeTraining(entry *models.TrainingQueueEntry, now time.Time) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TrainingQueueEntry{}).
			Where("id = ? AND status <> ?", entry.ID, models.QueueStatusCompleted).
			Updates(map[string]interface{}{"status": models.QueueStatusCompleted, "completed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		troops := models.TroopComposition{entry.UnitTypeID: entry.Quantity}
		if err := creditGarrison(tx, entry.VillageID, troops, bucketInVillage); err != nil {
			return err
		}

		return s.Events.Emit(tx, models.EventTrainingCompleted, entry.VillageID, nil, map[string]interface{}{
			"unit_type_id": entry.UnitTypeID,
			"quantity":     entry.Quantity,
		}, entry.CompletesAt)
	})
	if err != nil {
		return err
	}

	s.Villages.InvalidateVillage(entry.VillageID)
	return nil
}

// --- Fiber handlers (caller layer) ---

// EnqueueBuildingHandler starts a construction job.
func (s *QueueService) EnqueueBuildingHandler(c *fiber.Ctx) error {
	var req struct {
		BuildingKey string `json:"building_key"`
	}
	if err := c.BodyParser(&req); err != nil || req.BuildingKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "building_key is required"})
	}

	entry, err := s.EnqueueBuilding(c.Params("id"), req.BuildingKey)
	if err != nil {
		return queueErrorResponse(c, err, "failed to enqueue construction")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// EnqueueTrainingHandler starts a training run.
func (s *QueueService) EnqueueTrainingHandler(c *fiber.Ctx) error {
	var req struct {
		UnitTypeID string `json:"unit_type_id"`
		Quantity   int64  `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil || req.UnitTypeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unit_type_id and quantity are required"})
	}

	entry, err := s.EnqueueTraining(c.Params("id"), req.UnitTypeID, req.Quantity)
	if err != nil {
		return queueErrorResponse(c, err, "failed to enqueue training")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func queueErrorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrInsufficientResources):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrStaleReference), errors.Is(err, ErrInvalidMovement):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
