package models

import (
	"time"
)

// Domain event types emitted by the engine. Delivery (push/email/UI feed) is
// entirely external; the engine only records the event in the same
// transaction as the effect it describes.
const (
	EventBattleResolved        = "battle_resolved"
	EventMovementArrived       = "movement_arrived"
	EventConstructionCompleted = "construction_completed"
	EventTrainingCompleted     = "training_completed"
	EventSpyReport             = "spy_report"
)

// DomainEvent is a plain data record for the notification collaborator.
type DomainEvent struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	Type       string  `json:"type" gorm:"not null;index"`
	VillageID  string  `json:"village_id" gorm:"not null;index"`
	MovementID *string `json:"movement_id,omitempty" gorm:"index"`

	Payload string `json:"payload" gorm:"type:text"` // JSON blob, shape depends on Type

	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`

	Timestamps
}
