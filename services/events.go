package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"conquest-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventService records domain events for the external notification
// collaborator. Events are written in the same transaction as the effect
// they describe, so a delivered notification always corresponds to a
// committed state change.
type EventService struct{}

func NewEventService() *EventService {
	return &EventService{}
}

// Emit persists one event. payload must be JSON-marshallable; its shape is
// event-type specific and opaque to the engine.
func (e *EventService) Emit(tx *gorm.DB, eventType, villageID string, movementID *string, payload interface{}, occurredAt time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := models.DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		VillageID:  villageID,
		MovementID: movementID,
		Payload:    string(raw),
		OccurredAt: occurredAt,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to persist %s event: %w", eventType, err)
	}

	log.Printf("[Events] %s village=%s", eventType, villageID)
	return nil
}
