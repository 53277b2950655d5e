package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"conquest-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementService is the player-action side of troop movements: sending
// attack/support/spy/trade movements and cancelling them before arrival.
// Resolution of due movements lives in MovementScheduler.
type MovementService struct {
	DB       *gorm.DB
	Catalog  *UnitCatalog
	Ledger   *ResourceLedger
	Villages *VillageService
	Config   *Config
	Clock    Clock
}

func NewMovementService(db *gorm.DB, catalog *UnitCatalog, ledger *ResourceLedger, villages *VillageService, cfg *Config, clock Clock) *MovementService {
	return &MovementService{
		DB:       db,
		Catalog:  catalog,
		Ledger:   ledger,
		Villages: villages,
		Config:   cfg,
		Clock:    clock,
	}
}

// Distance is Euclidean over village coordinates.
func Distance(from, to *models.Village) float64 {
	dx := float64(from.X - to.X)
	dy := float64(from.Y - to.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// TravelDuration computes how long the composition needs for the trip:
// distance / (slowest unit speed * world speed multiplier). An empty or
// troopless composition (pure resource trade) travels at the configured
// trade speed. The result is never below one second, so arrives_at is
// always strictly after started_at.
func (s *MovementService) TravelDuration(from, to *models.Village, comp models.TroopComposition) time.Duration {
	speed := s.Catalog.SlowestSpeed(comp)
	if speed <= 0 {
		speed = s.Config.TradeSpeed
	}
	speed *= s.Config.SpeedMultiplier

	hours := Distance(from, to) / speed
	d := time.Duration(hours * float64(time.Hour))
	if d < time.Second {
		d = time.Second
	}
	return d
}

// SendAttack dispatches an attack movement. Troops shift from in_village to
// in_attack at send time and stay in that bucket until the return leg lands.
func (s *MovementService) SendAttack(fromID, toID string, troops models.TroopComposition) (*models.Movement, error) {
	return s.sendTroops(models.MovementAttack, fromID, toID, troops)
}

// SendSupport dispatches a support movement; the troops shift to in_support
// and become stationed defense at the destination once delivered.
func (s *MovementService) SendSupport(fromID, toID string, troops models.TroopComposition) (*models.Movement, error) {
	return s.sendTroops(models.MovementSupport, fromID, toID, troops)
}

// SendSpy dispatches a scouting run. Scouts travel in the in_attack bucket
// and come home on a return leg after the report is taken.
func (s *MovementService) SendSpy(fromID, toID string, troops models.TroopComposition) (*models.Movement, error) {
	return s.sendTroops(models.MovementSpy, fromID, toID, troops)
}

func (s *MovementService) sendTroops(movementType, fromID, toID string, troops models.TroopComposition) (*models.Movement, error) {
	troops = troops.Sanitized()
	if troops.IsEmpty() {
		return nil, fmt.Errorf("%s without troops: %w", movementType, ErrInvalidMovement)
	}
	for unitID := range troops {
		if _, ok := s.Catalog.Unit(unitID); !ok {
			return nil, fmt.Errorf("unknown unit type %q: %w", unitID, ErrStaleReference)
		}
	}

	var movement *models.Movement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		from, to, err := s.loadEndpoints(tx, fromID, toID)
		if err != nil {
			return err
		}

		bucket := bucketInAttack
		if movementType == models.MovementSupport {
			bucket = bucketInSupport
		}
		if err := shiftGarrison(tx, from.ID, troops, bucketInVillage, bucket); err != nil {
			return err
		}

		now := s.Clock.Now()
		movement = &models.Movement{
			ID:            uuid.NewString(),
			Type:          movementType,
			FromVillageID: from.ID,
			ToVillageID:   to.ID,
			Troops:        troops,
			StartedAt:     now,
			ArrivesAt:     now.Add(s.TravelDuration(from, to, troops)),
			Status:        models.MovementStatusTravelling,
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}

	s.Villages.InvalidateVillage(fromID)
	return movement, nil
}

// SendTrade dispatches a one-way resource delivery at trade speed. The offer
// is deducted from the sender immediately.
func (s *MovementService) SendTrade(fromID, toID string, payload models.ResourceVector) (*models.Movement, error) {
	if payload.IsZero() || payload.Wood < 0 || payload.Clay < 0 || payload.Iron < 0 || payload.Crop < 0 {
		return nil, fmt.Errorf("trade payload must be positive: %w", ErrInvalidMovement)
	}

	var movement *models.Movement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		from, to, err := s.loadEndpoints(tx, fromID, toID)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		if err := s.Ledger.Touch(tx, from, now); err != nil {
			return err
		}
		if err := s.Ledger.DeductResources(tx, from, payload); err != nil {
			return err
		}

		movement = &models.Movement{
			ID:            uuid.NewString(),
			Type:          models.MovementTrade,
			FromVillageID: from.ID,
			ToVillageID:   to.ID,
			Troops:        models.TroopComposition{},
			Payload:       payload,
			StartedAt:     now,
			ArrivesAt:     now.Add(s.TravelDuration(from, to, nil)),
			Status:        models.MovementStatusTravelling,
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}

	s.Villages.InvalidateVillage(fromID)
	return movement, nil
}

// CancelMovement calls off a travelling movement before arrival and spawns
// the return movement carrying the original troops/resources home. The
// return travels for exactly as long as the outbound leg had already
// travelled (midpoint policy), so its arrival lands strictly between the
// cancellation instant and the original arrival time.
func (s *MovementService) CancelMovement(movementID string) (*models.Movement, error) {
	var ret *models.Movement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var m models.Movement
		if err := tx.First(&m, "id = ?", movementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("movement %s: %w", movementID, ErrInvalidMovement)
			}
			return err
		}

		now := s.Clock.Now()
		if !m.Cancellable(now) {
			return fmt.Errorf("movement %s is %s: %w", m.ID, m.Status, ErrInvalidMovement)
		}

		// CAS away from travelling; a concurrent resolution wins over us.
		res := tx.Model(&models.Movement{}).
			Where("id = ? AND status = ?", m.ID, models.MovementStatusTravelling).
			Updates(map[string]interface{}{"status": models.MovementStatusCancelled, "resolved_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("movement %s already resolved: %w", m.ID, ErrInvalidMovement)
		}

		travelled := now.Sub(m.StartedAt)
		if travelled < time.Second {
			travelled = time.Second
		}
		arrivesBack := now.Add(travelled)

		ret = &models.Movement{
			ID:            uuid.NewString(),
			Type:          models.MovementReturn,
			FromVillageID: m.FromVillageID,
			ToVillageID:   m.ToVillageID,
			Troops:        m.Troops,
			Payload:       m.Payload,
			StartedAt:     now,
			ArrivesAt:     arrivesBack,
			ReturnAt:      &arrivesBack,
			Status:        models.MovementStatusReturning,
			OriginType:    m.Type,
		}
		return tx.Create(ret).Error
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *MovementService) loadEndpoints(tx *gorm.DB, fromID, toID string) (*models.Village, *models.Village, error) {
	if fromID == "" || toID == "" || fromID == toID {
		return nil, nil, fmt.Errorf("movement endpoints %q -> %q: %w", fromID, toID, ErrInvalidMovement)
	}
	var from, to models.Village
	if err := tx.First(&from, "id = ?", fromID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("origin village %s: %w", fromID, ErrInvalidMovement)
		}
		return nil, nil, err
	}
	if err := tx.First(&to, "id = ?", toID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("target village %s: %w", toID, ErrInvalidMovement)
		}
		return nil, nil, err
	}
	return &from, &to, nil
}

// --- Fiber handlers (caller layer) ---

type sendMovementRequest struct {
	FromVillageID string                  `json:"from_village_id"`
	ToVillageID   string                  `json:"to_village_id"`
	Troops        models.TroopComposition `json:"troops"`
	Payload       models.ResourceVector   `json:"payload"`
}

// SendMovementHandler dispatches a movement of the type given in the route
// parameter (attack, support, spy or trade).
func (s *MovementService) SendMovementHandler(c *fiber.Ctx) error {
	var req sendMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var (
		m   *models.Movement
		err error
	)
	switch c.Params("type") {
	case models.MovementAttack:
		m, err = s.SendAttack(req.FromVillageID, req.ToVillageID, req.Troops)
	case models.MovementSupport:
		m, err = s.SendSupport(req.FromVillageID, req.ToVillageID, req.Troops)
	case models.MovementSpy:
		m, err = s.SendSpy(req.FromVillageID, req.ToVillageID, req.Troops)
	case models.MovementTrade:
		m, err = s.SendTrade(req.FromVillageID, req.ToVillageID, req.Payload)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown movement type"})
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientTroops), errors.Is(err, ErrInsufficientResources):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrInvalidMovement), errors.Is(err, ErrStaleReference):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to send movement"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// CancelMovementHandler calls off a travelling movement.
func (s *MovementService) CancelMovementHandler(c *fiber.Ctx) error {
	ret, err := s.CancelMovement(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrInvalidMovement) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to cancel movement"})
	}
	return c.JSON(fiber.Map{"cancelled": true, "return_movement": ret})
}

// ListMovementsHandler returns the in-flight movements touching a village.
func (s *MovementService) ListMovementsHandler(c *fiber.Ctx) error {
	villageID := c.Params("id")
	var movements []models.Movement
	err := s.DB.
		Where("(from_village_id = ? OR to_village_id = ?) AND status IN ?",
			villageID, villageID,
			[]string{models.MovementStatusTravelling, models.MovementStatusReturning}).
		Order("arrives_at asc").
		Find(&movements).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list movements"})
	}
	return c.JSON(movements)
}
