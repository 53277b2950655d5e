package models

import (
	"time"
)

// Movement types
const (
	MovementAttack  = "attack"
	MovementSupport = "support"
	MovementSpy     = "spy"
	MovementTrade   = "trade"
	MovementReturn  = "return"
)

// Movement statuses. Transitions are monotonic:
// travelling → arrived → returning → completed, or travelling → cancelled.
const (
	MovementStatusTravelling = "travelling"
	MovementStatusArrived    = "arrived"
	MovementStatusReturning  = "returning"
	MovementStatusCompleted  = "completed"
	MovementStatusCancelled  = "cancelled"
)

// Movement is a scheduled troop/resource transfer between two villages.
// Resolution is keyed by id and guarded by a compare-and-set on Status, so
// effects apply at most once even across overlapping scheduler invocations.
type Movement struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Type string `json:"type" gorm:"not null;index"`

	FromVillageID string `json:"from_village_id" gorm:"not null;index"`
	ToVillageID   string `json:"to_village_id" gorm:"not null;index"`

	Troops  TroopComposition `json:"troops" gorm:"type:text"`
	Payload ResourceVector   `json:"payload" gorm:"embedded;embeddedPrefix:payload_"` // trade offer or loot being carried home

	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	ArrivesAt time.Time  `json:"arrives_at" gorm:"not null;index"`
	ReturnAt  *time.Time `json:"return_at,omitempty" gorm:"index"`

	Status     string     `json:"status" gorm:"not null;default:'travelling';index"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// For return movements: the type of the movement the troops came from,
	// so completion knows which garrison sub-count to settle (attack →
	// in_attack, support → in_support).
	OriginType string `json:"origin_type,omitempty"`

	FromVillage *Village `json:"from_village,omitempty" gorm:"foreignKey:FromVillageID"`
	ToVillage   *Village `json:"to_village,omitempty" gorm:"foreignKey:ToVillageID"`

	Timestamps
}

// Cancellable reports whether the owner may still call off the movement.
// Only a travelling movement that has not reached its target can be cancelled.
func (m *Movement) Cancellable(now time.Time) bool {
	return m.Status == MovementStatusTravelling && now.Before(m.ArrivesAt)
}

// DueAt is the next timestamp at which the movement needs processing:
// arrival for the outbound leg, return_at for the return leg.
func (m *Movement) DueAt() time.Time {
	if m.Status == MovementStatusReturning && m.ReturnAt != nil {
		return *m.ReturnAt
	}
	return m.ArrivesAt
}
