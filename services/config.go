package services

import (
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"conquest-engine/models"
)

// Config carries every world tunable the engine reads. Values come from the
// environment (godotenv loads .env in main) with playable defaults; nothing
// in the engine hard-codes a balance constant.
type Config struct {
	// Combat
	LossFactor        float64 // base casualty fraction, e.g. 0.3
	WallBonusPerLevel float64 // defense bonus per wall level, e.g. 0.03
	HeroBonus         float64 // flat bonus when the hero is present, e.g. 0.1

	// Travel
	SpeedMultiplier float64 // world speed applied to all unit speeds
	TradeSpeed      float64 // fields/hour for troopless trade movements
	WorldSize       int     // world is [-WorldSize, WorldSize] on both axes

	// Economy
	ProductionBasePerHour int64   // per resource-field level 1
	ProductionFactor      float64 // growth per field level
	StorageBase           int64   // warehouse/granary capacity at level 0
	StorageFactor         float64 // growth per warehouse/granary level

	// Housekeeping
	BattleArchiveAfter   time.Duration // battles older than this get archived
	VillageCacheTTL      time.Duration
	MovementTickInterval time.Duration
	QueueTickInterval    time.Duration
	AccrualTickInterval  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		LossFactor:        envFloat("ENGINE_LOSS_FACTOR", 0.3),
		WallBonusPerLevel: envFloat("ENGINE_WALL_BONUS_PER_LEVEL", 0.03),
		HeroBonus:         envFloat("ENGINE_HERO_BONUS", 0.1),

		SpeedMultiplier: envFloat("ENGINE_SPEED_MULTIPLIER", 1.0),
		TradeSpeed:      envFloat("ENGINE_TRADE_SPEED", 16.0),
		WorldSize:       envInt("ENGINE_WORLD_SIZE", 400),

		ProductionBasePerHour: int64(envInt("ENGINE_PRODUCTION_BASE", 30)),
		ProductionFactor:      envFloat("ENGINE_PRODUCTION_FACTOR", 1.16),
		StorageBase:           int64(envInt("ENGINE_STORAGE_BASE", 800)),
		StorageFactor:         envFloat("ENGINE_STORAGE_FACTOR", 1.33),

		BattleArchiveAfter:   envDuration("ENGINE_BATTLE_ARCHIVE_AFTER", 14*24*time.Hour),
		VillageCacheTTL:      envDuration("ENGINE_VILLAGE_CACHE_TTL", 30*time.Second),
		MovementTickInterval: envDuration("ENGINE_MOVEMENT_TICK", 10*time.Second),
		QueueTickInterval:    envDuration("ENGINE_QUEUE_TICK", 10*time.Second),
		AccrualTickInterval:  envDuration("ENGINE_ACCRUAL_TICK", 5*time.Minute),
	}
}

// StorageCapacity derives per-resource capacity from warehouse (wood/clay/
// iron) and granary (crop) levels: base * factor^level.
func (c *Config) StorageCapacity(levels models.BuildingLevels) models.ResourceVector {
	warehouse := int64(float64(c.StorageBase) * math.Pow(c.StorageFactor, float64(levels.Level(models.BuildingWarehouse))))
	granary := int64(float64(c.StorageBase) * math.Pow(c.StorageFactor, float64(levels.Level(models.BuildingGranary))))
	return models.ResourceVector{Wood: warehouse, Clay: warehouse, Iron: warehouse, Crop: granary}
}

// ProductionPerHour derives per-resource production from the matching
// resource-field levels. A level-0 field produces nothing.
func (c *Config) ProductionPerHour(levels models.BuildingLevels) models.ResourceVector {
	rate := func(key string) int64 {
		lvl := levels.Level(key)
		if lvl <= 0 {
			return 0
		}
		return int64(float64(c.ProductionBasePerHour) * float64(lvl) * math.Pow(c.ProductionFactor, float64(lvl-1)))
	}
	return models.ResourceVector{
		Wood: rate(models.BuildingWoodcutter),
		Clay: rate(models.BuildingClayPit),
		Iron: rate(models.BuildingIronMine),
		Crop: rate(models.BuildingCropland),
	}
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}
