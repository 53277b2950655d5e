package services

import (
	"errors"

	"conquest-engine/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ReportService serves the read side: battle reports and the domain event
// feed. Battles are immutable history, so these endpoints never mutate.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// ListBattlesHandler returns the recent battles a village took part in,
// newest first.
func (s *ReportService) ListBattlesHandler(c *fiber.Ctx) error {
	villageID := c.Params("id")
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var battles []models.Battle
	err := s.DB.
		Where("attacker_village_id = ? OR defender_village_id = ?", villageID, villageID).
		Order("occurred_at desc").
		Limit(limit).
		Find(&battles).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list battles"})
	}
	return c.JSON(battles)
}

// GetBattleHandler returns one battle report.
func (s *ReportService) GetBattleHandler(c *fiber.Ctx) error {
	var battle models.Battle
	err := s.DB.First(&battle, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "battle not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load battle"})
	}
	return c.JSON(battle)
}

// ListEventsHandler returns a village's recent domain events, newest first.
func (s *ReportService) ListEventsHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var events []models.DomainEvent
	err := s.DB.
		Where("village_id = ?", c.Params("id")).
		Order("occurred_at desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list events"})
	}
	return c.JSON(events)
}
