package models

import (
	"time"
)

// Battle results (from the attacker's point of view)
const (
	BattleAttackerVictory = "attacker_victory"
	BattleDefenderVictory = "defender_victory"
	BattleDraw            = "draw"
)

// Battle is the immutable record of one resolved attack movement. It is a
// historical report: written once inside the resolution transaction, never
// mutated afterwards, and eventually archived to object storage once the
// history window expires (soft delete + R2 upload, see workers package).
type Battle struct {
	ID         string `json:"id" gorm:"primaryKey"`
	MovementID string `json:"movement_id" gorm:"uniqueIndex;not null"` // one battle per resolved attack

	AttackerVillageID string  `json:"attacker_village_id" gorm:"not null;index"`
	DefenderVillageID string  `json:"defender_village_id" gorm:"not null;index"`
	AttackerPlayerID  *string `json:"attacker_player_id,omitempty"`
	DefenderPlayerID  *string `json:"defender_player_id,omitempty"`

	// Troop snapshots at the moment of resolution
	AttackerTroops TroopComposition `json:"attacker_troops" gorm:"type:text"`
	DefenderTroops TroopComposition `json:"defender_troops" gorm:"type:text"`
	AttackerLosses TroopComposition `json:"attacker_losses" gorm:"type:text"`
	DefenderLosses TroopComposition `json:"defender_losses" gorm:"type:text"`

	AttackerStrength float64 `json:"attacker_strength"`
	DefenderStrength float64 `json:"defender_strength"`

	Loot   ResourceVector `json:"loot" gorm:"embedded;embeddedPrefix:loot_"`
	Result string         `json:"result" gorm:"not null;index"`

	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`

	Timestamps
}
