package models

import (
	"time"
)

// Queue entry statuses. Same due-item lifecycle as Movement, simplified:
// pending → in_progress → completed.
const (
	QueueStatusPending    = "pending"
	QueueStatusInProgress = "in_progress"
	QueueStatusCompleted  = "completed"
)

// BuildingQueueEntry is one construction job. A village may have at most one
// entry that is not yet completed (single build slot).
type BuildingQueueEntry struct {
	ID        string `json:"id" gorm:"primaryKey"`
	VillageID string `json:"village_id" gorm:"not null;index"`

	BuildingKey string `json:"building_key" gorm:"not null"`
	TargetLevel int    `json:"target_level" gorm:"not null"`

	Cost ResourceVector `json:"cost" gorm:"embedded;embeddedPrefix:cost_"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletesAt time.Time  `json:"completes_at" gorm:"not null;index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Status string `json:"status" gorm:"not null;default:'pending';index"`

	Timestamps
}

// TrainingQueueEntry is one troop training run. A village may have at most
// one active run; quantity units finish together at CompletesAt.
type TrainingQueueEntry struct {
	ID        string `json:"id" gorm:"primaryKey"`
	VillageID string `json:"village_id" gorm:"not null;index"`

	UnitTypeID string `json:"unit_type_id" gorm:"not null"`
	Quantity   int64  `json:"quantity" gorm:"not null"`

	Cost ResourceVector `json:"cost" gorm:"embedded;embeddedPrefix:cost_"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletesAt time.Time  `json:"completes_at" gorm:"not null;index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Status string `json:"status" gorm:"not null;default:'pending';index"`

	Timestamps
}
