package models

import (
	"time"
)

// Building keys referenced by engine formulas. The full building catalog
// (costs, build times, max levels) lives in config/units.yaml.
const (
	BuildingMain        = "main_building"
	BuildingBarracks    = "barracks"
	BuildingWall        = "wall"
	BuildingWarehouse   = "warehouse"
	BuildingGranary     = "granary"
	BuildingMarketplace = "marketplace"
	BuildingWoodcutter  = "woodcutter"
	BuildingClayPit     = "clay_pit"
	BuildingIronMine    = "iron_mine"
	BuildingCropland    = "cropland"
)

// Village is the central long-lived entity: coordinates, building levels,
// resource balances and garrison rows hang off it.
type Village struct {
	ID       string  `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"not null"`
	Slug     string  `json:"slug" gorm:"index"`
	PlayerID *string `json:"player_id,omitempty" gorm:"index"` // nil = unowned (barbarian village)

	// World-relative coordinates
	X int `json:"x" gorm:"not null;index:idx_village_coords"`
	Y int `json:"y" gorm:"not null;index:idx_village_coords"`

	Population int `json:"population" gorm:"default:0"`

	BuildingLevels BuildingLevels `json:"building_levels" gorm:"type:text"`

	// Resource balances; production is accrued lazily against LastResourceTick.
	Resources        ResourceVector `json:"resources" gorm:"embedded;embeddedPrefix:res_"`
	LastResourceTick time.Time      `json:"last_resource_tick"`

	HeroPresent bool `json:"hero_present" gorm:"default:false"`

	// Relationships
	Player  *Player        `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
	Troops  []VillageTroop `json:"troops,omitempty" gorm:"foreignKey:VillageID"`
	Battles []Battle       `json:"-" gorm:"foreignKey:DefenderVillageID"`

	Timestamps
}

// WallLevel is a convenience accessor for the defense bonus source.
func (v *Village) WallLevel() int {
	return v.BuildingLevels.Level(BuildingWall)
}

// VillageTroop tracks one unit type owned by a village, partitioned by where
// the troops currently are. The four sub-counts always sum to the total owned
// count for the unit type:
//
//	in_village: garrisoned at home
//	in_attack:  travelling on (or returning from) an attack
//	in_support: travelling on a support movement
//	in_defense: delivered and stationed at another village
type VillageTroop struct {
	ID         string `json:"id" gorm:"primaryKey"`
	VillageID  string `json:"village_id" gorm:"not null;index:idx_village_unit,unique"`
	UnitTypeID string `json:"unit_type_id" gorm:"not null;index:idx_village_unit,unique"`

	InVillage int64 `json:"in_village" gorm:"default:0"`
	InAttack  int64 `json:"in_attack" gorm:"default:0"`
	InDefense int64 `json:"in_defense" gorm:"default:0"`
	InSupport int64 `json:"in_support" gorm:"default:0"`

	Timestamps
}

func (t *VillageTroop) Total() int64 {
	return t.InVillage + t.InAttack + t.InDefense + t.InSupport
}

// StationedSupport is a foreign garrison slice: troops owned by FromVillage,
// delivered by a support movement and now defending at VillageID. The owner
// side mirrors the same count in VillageTroop.InDefense.
type StationedSupport struct {
	ID            string `json:"id" gorm:"primaryKey"`
	VillageID     string `json:"village_id" gorm:"not null;index:idx_support_origin,unique"`
	FromVillageID string `json:"from_village_id" gorm:"not null;index:idx_support_origin,unique"`
	UnitTypeID    string `json:"unit_type_id" gorm:"not null;index:idx_support_origin,unique"`
	Count         int64  `json:"count" gorm:"default:0"`

	Timestamps
}

// Player owns villages; alliance membership feeds combat bonuses.
type Player struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	Name       string  `json:"name" gorm:"uniqueIndex;not null"`
	Tribe      string  `json:"tribe" gorm:"not null"`
	AllianceID *string `json:"alliance_id,omitempty" gorm:"index"`

	Alliance *Alliance `json:"alliance,omitempty" gorm:"foreignKey:AllianceID"`

	Timestamps
}

// Alliance carries the alliance-wide combat effects applied on top of base
// strength (percentage bonuses, e.g. 0.05 = +5%).
type Alliance struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	Name         string  `json:"name" gorm:"uniqueIndex;not null"`
	Tag          string  `json:"tag" gorm:"uniqueIndex;not null"`
	AttackBonus  float64 `json:"attack_bonus" gorm:"default:0"`
	DefenseBonus float64 `json:"defense_bonus" gorm:"default:0"`

	Timestamps
}
