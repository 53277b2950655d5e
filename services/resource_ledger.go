package services

import (
	"fmt"
	"time"

	"conquest-engine/models"

	"gorm.io/gorm"
)

// ResourceLedger is the single path for mutating village resource balances.
// Routing every mutation through here keeps the clamping and non-negativity
// invariants enforced in one place; nothing else assigns balance fields.
type ResourceLedger struct {
	Config *Config
}

func NewResourceLedger(cfg *Config) *ResourceLedger {
	return &ResourceLedger{Config: cfg}
}

// HasEnoughResources reports whether the village can cover the cost vector.
// Read-only.
func (l *ResourceLedger) HasEnoughResources(v *models.Village, cost models.ResourceVector) bool {
	return v.Resources.Covers(cost)
}

// DeductResources subtracts the cost vector all-or-nothing. The caller is
// expected to hold the village inside a transaction so no partial vector is
// ever observable.
func (l *ResourceLedger) DeductResources(tx *gorm.DB, v *models.Village, cost models.ResourceVector) error {
	if !l.HasEnoughResources(v, cost) {
		return fmt.Errorf("village %s cannot afford %+v: %w", v.ID, cost, ErrInsufficientResources)
	}
	v.Resources = v.Resources.Sub(cost)
	return tx.Model(v).Select("res_wood", "res_clay", "res_iron", "res_crop").Updates(v).Error
}

// AddResources credits the amount vector and clamps each balance to the
// village's current storage capacity. Overflow is discarded, not an error.
func (l *ResourceLedger) AddResources(tx *gorm.DB, v *models.Village, amount models.ResourceVector) error {
	capacity := l.Config.StorageCapacity(v.BuildingLevels)
	v.Resources = v.Resources.Add(amount).ClampTo(capacity)
	return tx.Model(v).Select("res_wood", "res_clay", "res_iron", "res_crop").Updates(v).Error
}

// AccrueProduction credits production for elapsedSeconds and clamps to
// capacity. The caller owns the monotonicity of elapsedSeconds per village
// (via the village's last_resource_tick watermark) to avoid double-accrual.
func (l *ResourceLedger) AccrueProduction(v *models.Village, elapsedSeconds int64) {
	if elapsedSeconds <= 0 {
		return
	}
	perHour := l.Config.ProductionPerHour(v.BuildingLevels)
	gain := models.ResourceVector{
		Wood: perHour.Wood * elapsedSeconds / 3600,
		Clay: perHour.Clay * elapsedSeconds / 3600,
		Iron: perHour.Iron * elapsedSeconds / 3600,
		Crop: perHour.Crop * elapsedSeconds / 3600,
	}
	capacity := l.Config.StorageCapacity(v.BuildingLevels)
	v.Resources = v.Resources.Add(gain).ClampTo(capacity)
}

// Touch accrues production up to now, advances the watermark and persists
// the balance columns. Every engine operation that reads or spends a
// village's resources calls this first inside its transaction.
func (l *ResourceLedger) Touch(tx *gorm.DB, v *models.Village, now time.Time) error {
	elapsed := int64(now.Sub(v.LastResourceTick).Seconds())
	if elapsed <= 0 {
		return nil
	}
	l.AccrueProduction(v, elapsed)
	v.LastResourceTick = now
	return tx.Model(v).
		Select("res_wood", "res_clay", "res_iron", "res_crop", "last_resource_tick").
		Updates(v).Error
}
