package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"conquest-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// VillageService owns village reads, creation and the production accrual
// tick. Lookups go through a read-through TTL cache that is explicitly
// invalidated after every mutating operation, never implicitly.
type VillageService struct {
	DB     *gorm.DB
	Ledger *ResourceLedger
	Config *Config
	Clock  Clock

	cache *gocache.Cache
}

func NewVillageService(db *gorm.DB, ledger *ResourceLedger, cfg *Config, clock Clock) *VillageService {
	return &VillageService{
		DB:     db,
		Ledger: ledger,
		Config: cfg,
		Clock:  clock,
		cache:  gocache.New(cfg.VillageCacheTTL, 2*cfg.VillageCacheTTL),
	}
}

func villageCacheKey(id string) string { return "village:" + id }

// GetVillage loads a village with its garrison, serving repeated reads from
// the cache until the entry expires or a mutation invalidates it.
func (s *VillageService) GetVillage(id string) (*models.Village, error) {
	if cached, ok := s.cache.Get(villageCacheKey(id)); ok {
		if v, ok := cached.(*models.Village); ok {
			return v, nil
		}
	}

	var v models.Village
	err := s.DB.Preload("Troops").Preload("Player").Preload("Player.Alliance").
		First(&v, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("village %s: %w", id, ErrInvalidMovement)
		}
		return nil, err
	}

	s.cache.Set(villageCacheKey(id), &v, gocache.DefaultExpiration)
	return &v, nil
}

// InvalidateVillage drops the cached snapshot. Called after every operation
// that mutates the village's balances, garrison or buildings.
func (s *VillageService) InvalidateVillage(id string) {
	s.cache.Delete(villageCacheKey(id))
}

// CreateVillage registers a new village inside the world boundary.
func (s *VillageService) CreateVillage(name string, x, y int, playerID *string) (*models.Village, error) {
	if x < -s.Config.WorldSize || x > s.Config.WorldSize || y < -s.Config.WorldSize || y > s.Config.WorldSize {
		return nil, fmt.Errorf("coordinates (%d,%d) outside world boundary: %w", x, y, ErrInvalidMovement)
	}

	now := s.Clock.Now()
	v := models.Village{
		ID:       uuid.NewString(),
		Name:     name,
		Slug:     slug.Make(name),
		PlayerID: playerID,
		X:        x,
		Y:        y,
		BuildingLevels: models.BuildingLevels{
			models.BuildingMain:       1,
			models.BuildingWoodcutter: 1,
			models.BuildingClayPit:    1,
			models.BuildingIronMine:   1,
			models.BuildingCropland:   1,
		},
		Resources:        models.ResourceVector{Wood: 750, Clay: 750, Iron: 750, Crop: 750},
		LastResourceTick: now,
		Population:       2,
	}
	if err := s.DB.Create(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// BonusesFor assembles the combat bonuses of a village for the given role.
// Unowned villages get no hero or alliance effects.
func (s *VillageService) BonusesFor(tx *gorm.DB, v *models.Village, role Role) VillageBonuses {
	b := VillageBonuses{HeroPresent: v.HeroPresent}
	if role == RoleDefense {
		b.WallLevel = v.WallLevel()
	}
	if v.PlayerID == nil {
		return b
	}

	var player models.Player
	if err := tx.Preload("Alliance").First(&player, "id = ?", *v.PlayerID).Error; err != nil {
		return b
	}
	if player.Alliance != nil {
		if role == RoleAttack {
			b.AllianceBonus = player.Alliance.AttackBonus
		} else {
			b.AllianceBonus = player.Alliance.DefenseBonus
		}
	}
	return b
}

// AccrueAll walks every village and brings its balances up to now. Run as a
// periodic job so balances stay fresh even for villages nobody reads; the
// per-village watermark makes it safe to overlap with lazy accrual.
func (s *VillageService) AccrueAll(now time.Time) error {
	var villages []models.Village
	if err := s.DB.Find(&villages).Error; err != nil {
		return err
	}

	for i := range villages {
		v := &villages[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return s.Ledger.Touch(tx, v, now)
		})
		if err != nil {
			log.Printf("[Accrual] ❌ Failed to accrue village %s: %v", v.ID, err)
			continue
		}
		s.InvalidateVillage(v.ID)
	}
	return nil
}

// --- Fiber handlers (caller layer) ---

// GetVillageHandler returns a village snapshot with balances accrued to now.
func (s *VillageService) GetVillageHandler(c *fiber.Ctx) error {
	v, err := s.GetVillage(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrInvalidMovement) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "village not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load village"})
	}

	// Present accrued balances without racing the persisted watermark.
	snapshot := *v
	s.Ledger.AccrueProduction(&snapshot, int64(s.Clock.Now().Sub(snapshot.LastResourceTick).Seconds()))
	return c.JSON(snapshot)
}

// CreateVillageHandler registers a village.
func (s *VillageService) CreateVillageHandler(c *fiber.Ctx) error {
	var req struct {
		Name     string  `json:"name"`
		X        int     `json:"x"`
		Y        int     `json:"y"`
		PlayerID *string `json:"player_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, x and y are required"})
	}

	v, err := s.CreateVillage(req.Name, req.X, req.Y, req.PlayerID)
	if err != nil {
		if errors.Is(err, ErrInvalidMovement) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create village"})
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}
