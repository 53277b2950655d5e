package services

import (
	"fmt"

	"conquest-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Garrison sub-count buckets. Troops only ever move between buckets of the
// same owning village (or die), which is what keeps the per-unit sum
// invariant intact: in_village + in_attack + in_defense + in_support is the
// total owned count.
type troopBucket int

const (
	bucketInVillage troopBucket = iota
	bucketInAttack
	bucketInDefense
	bucketInSupport
)

func (b troopBucket) String() string {
	switch b {
	case bucketInVillage:
		return "in_village"
	case bucketInAttack:
		return "in_attack"
	case bucketInDefense:
		return "in_defense"
	case bucketInSupport:
		return "in_support"
	}
	return "unknown"
}

func bucketPtr(t *models.VillageTroop, b troopBucket) *int64 {
	switch b {
	case bucketInVillage:
		return &t.InVillage
	case bucketInAttack:
		return &t.InAttack
	case bucketInDefense:
		return &t.InDefense
	case bucketInSupport:
		return &t.InSupport
	}
	return nil
}

// garrisonRow loads or creates the per-unit garrison row of a village.
func garrisonRow(tx *gorm.DB, villageID, unitTypeID string) (*models.VillageTroop, error) {
	var row models.VillageTroop
	err := tx.Where(models.VillageTroop{VillageID: villageID, UnitTypeID: unitTypeID}).
		Attrs(models.VillageTroop{ID: uuid.NewString()}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// garrisonComposition reads one bucket of a village's garrison as a
// composition (positive counts only).
func garrisonComposition(tx *gorm.DB, villageID string, bucket troopBucket) (models.TroopComposition, error) {
	var rows []models.VillageTroop
	if err := tx.Where("village_id = ?", villageID).Order("unit_type_id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	comp := models.TroopComposition{}
	for i := range rows {
		if count := *bucketPtr(&rows[i], bucket); count > 0 {
			comp[rows[i].UnitTypeID] = count
		}
	}
	return comp, nil
}

// shiftGarrison moves comp between two buckets of the same village, failing
// with ErrInsufficientTroops when the source bucket cannot cover a count.
// Used on the player-action path where shortfalls reject the action.
func shiftGarrison(tx *gorm.DB, villageID string, comp models.TroopComposition, from, to troopBucket) error {
	for unitID, count := range comp {
		if count <= 0 {
			continue
		}
		row, err := garrisonRow(tx, villageID, unitID)
		if err != nil {
			return err
		}
		src, dst := bucketPtr(row, from), bucketPtr(row, to)
		if *src < count {
			return fmt.Errorf("village %s has %d %s in %s, need %d: %w",
				villageID, *src, unitID, from, count, ErrInsufficientTroops)
		}
		*src -= count
		*dst += count
		if err := tx.Save(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// drainGarrison removes comp from a bucket, clamping at zero. Used on the
// casualty path, where counts must never go negative even if bookkeeping
// drifted (e.g. a pruned unit type).
func drainGarrison(tx *gorm.DB, villageID string, comp models.TroopComposition, bucket troopBucket) error {
	for unitID, count := range comp {
		if count <= 0 {
			continue
		}
		row, err := garrisonRow(tx, villageID, unitID)
		if err != nil {
			return err
		}
		src := bucketPtr(row, bucket)
		*src -= count
		if *src < 0 {
			*src = 0
		}
		if err := tx.Save(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// creditGarrison adds comp to a bucket (trained troops, delivered support).
func creditGarrison(tx *gorm.DB, villageID string, comp models.TroopComposition, bucket troopBucket) error {
	for unitID, count := range comp {
		if count <= 0 {
			continue
		}
		row, err := garrisonRow(tx, villageID, unitID)
		if err != nil {
			return err
		}
		*bucketPtr(row, bucket) += count
		if err := tx.Save(row).Error; err != nil {
			return err
		}
	}
	return nil
}
