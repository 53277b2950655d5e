package services

import (
	"fmt"
	"os"
	"time"

	"conquest-engine/models"

	"gopkg.in/yaml.v3"
)

// UnitStats is the immutable combat sheet for one unit type. Loaded once from
// config/units.yaml, never mutated at runtime.
type UnitStats struct {
	ID              string                `yaml:"id"`
	Name            string                `yaml:"name"`
	Tribe           string                `yaml:"tribe"`
	Attack          int64                 `yaml:"attack"`
	DefenseInfantry int64                 `yaml:"defense_infantry"`
	DefenseCavalry  int64                 `yaml:"defense_cavalry"`
	Speed           float64               `yaml:"speed"` // fields per hour
	CarryCapacity   int64                 `yaml:"carry_capacity"`
	Cavalry         bool                  `yaml:"cavalry"`
	TrainingCost    models.ResourceVector `yaml:"training_cost"`
	TrainingSecs    int64                 `yaml:"training_secs"`
}

// TrainingTime for one unit.
func (u UnitStats) TrainingTime() time.Duration {
	return time.Duration(u.TrainingSecs) * time.Second
}

// BuildingStats describes one constructible building type.
type BuildingStats struct {
	Key        string                `yaml:"key"`
	Name       string                `yaml:"name"`
	MaxLevel   int                   `yaml:"max_level"`
	BaseCost   models.ResourceVector `yaml:"base_cost"`
	CostFactor float64               `yaml:"cost_factor"` // cost multiplier per level
	BaseSecs   int64                 `yaml:"base_secs"`   // build time at level 1
	TimeFactor float64               `yaml:"time_factor"` // build time multiplier per level
}

type catalogFile struct {
	Units     []UnitStats     `yaml:"units"`
	Buildings []BuildingStats `yaml:"buildings"`
}

// UnitCatalog is the static reference-data lookup for unit and building
// stats. Unknown ids resolve to zero-value stats so that historical
// movements referencing pruned catalog entries still resolve (as zero
// strength) instead of failing the batch.
type UnitCatalog struct {
	units     map[string]UnitStats
	buildings map[string]BuildingStats
}

func LoadUnitCatalog(path string) (*UnitCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse unit catalog: %w", err)
	}
	if len(file.Units) == 0 {
		return nil, fmt.Errorf("unit catalog %s defines no units", path)
	}
	return NewUnitCatalog(file.Units, file.Buildings), nil
}

// NewUnitCatalog builds a catalog from in-memory stats. Used by tests.
func NewUnitCatalog(units []UnitStats, buildings []BuildingStats) *UnitCatalog {
	c := &UnitCatalog{
		units:     make(map[string]UnitStats, len(units)),
		buildings: make(map[string]BuildingStats, len(buildings)),
	}
	for _, u := range units {
		c.units[u.ID] = u
	}
	for _, b := range buildings {
		c.buildings[b.Key] = b
	}
	return c
}

// Unit returns the stats for a unit type id. ok is false for stale ids; the
// returned zero value contributes nothing to any calculation.
func (c *UnitCatalog) Unit(id string) (UnitStats, bool) {
	u, ok := c.units[id]
	return u, ok
}

func (c *UnitCatalog) Building(key string) (BuildingStats, bool) {
	b, ok := c.buildings[key]
	return b, ok
}

// SlowestSpeed returns the speed of the slowest unit with a positive count.
// Zero means the composition carries no known units (the caller falls back
// to the configured trade speed).
func (c *UnitCatalog) SlowestSpeed(comp models.TroopComposition) float64 {
	slowest := 0.0
	for id, count := range comp {
		if count <= 0 {
			continue
		}
		u, ok := c.units[id]
		if !ok || u.Speed <= 0 {
			continue
		}
		if slowest == 0 || u.Speed < slowest {
			slowest = u.Speed
		}
	}
	return slowest
}

// CarryCapacity sums the loot capacity of a composition.
func (c *UnitCatalog) CarryCapacity(comp models.TroopComposition) int64 {
	var total int64
	for id, count := range comp {
		if count <= 0 {
			continue
		}
		if u, ok := c.units[id]; ok {
			total += count * u.CarryCapacity
		}
	}
	return total
}
