package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"conquest-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementScheduler owns the queue of in-flight movements and resolves each
// one exactly once when its due time has passed. It is driven by an external
// periodic trigger (gocron job, see EngineScheduler) and is safe to invoke
// re-entrantly: every resolution starts with a compare-and-set on the
// movement status inside its transaction, so an overlapping invocation that
// loses the race simply skips the movement.
type MovementScheduler struct {
	DB       *gorm.DB
	Resolver *BattleResolver
	Ledger   *ResourceLedger
	Catalog  *UnitCatalog
	Villages *VillageService
	Events   *EventService
	Config   *Config
}

func NewMovementScheduler(db *gorm.DB, resolver *BattleResolver, ledger *ResourceLedger, catalog *UnitCatalog, villages *VillageService, events *EventService, cfg *Config) *MovementScheduler {
	return &MovementScheduler{
		DB:       db,
		Resolver: resolver,
		Ledger:   ledger,
		Catalog:  catalog,
		Villages: villages,
		Events:   events,
		Config:   cfg,
	}
}

// ProcessDueMovements resolves all movements whose arrival (travelling) or
// return (returning) time has passed. Earliest due time first, ties broken
// by movement id ascending, so a support landing before an attack on the
// same village is counted in that attack's defense. One movement failing is
// isolated: it is logged, left in its prior status and retried on the next
// invocation. Returns the number of movements resolved.
func (s *MovementScheduler) ProcessDueMovements(now time.Time) int {
	var due []models.Movement
	err := s.DB.
		Where("(status = ? AND arrives_at <= ?) OR (status = ? AND return_at IS NOT NULL AND return_at <= ?)",
			models.MovementStatusTravelling, now, models.MovementStatusReturning, now).
		Find(&due).Error
	if err != nil {
		log.Printf("[MovementScheduler] ❌ DB error selecting due movements: %v", err)
		return 0
	}

	sort.Slice(due, func(i, j int) bool {
		di, dj := due[i].DueAt(), due[j].DueAt()
		if di.Equal(dj) {
			return due[i].ID < due[j].ID
		}
		return di.Before(dj)
	})

	resolved := 0
	for i := range due {
		m := &due[i]
		if err := s.resolveMovement(m, now); err != nil {
			if errors.Is(err, errMovementClaimed) {
				continue
			}
			log.Printf("[MovementScheduler] ❌ Failed to resolve %s movement %s: %v", m.Type, m.ID, err)
			continue
		}
		resolved++
	}
	return resolved
}

// resolveMovement applies one movement's effects and its status transition in
// a single transaction, so a crash mid-way leaves the movement in its prior
// status for a safe retry.
func (s *MovementScheduler) resolveMovement(m *models.Movement, now time.Time) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if m.Status == models.MovementStatusReturning {
			return s.completeReturnLeg(tx, m, now)
		}
		switch m.Type {
		case models.MovementAttack:
			return s.resolveAttack(tx, m, now)
		case models.MovementSupport:
			return s.deliverSupport(tx, m, now)
		case models.MovementSpy:
			return s.resolveSpy(tx, m, now)
		case models.MovementTrade:
			return s.deliverTrade(tx, m, now)
		default:
			return fmt.Errorf("movement %s has unexpected type %q: %w", m.ID, m.Type, ErrInvalidMovement)
		}
	})
}

// errMovementClaimed marks a movement another invocation already owns. The
// processing loop skips it silently: no work happened, nothing was resolved.
var errMovementClaimed = errors.New("movement claimed by another invocation")

// claim is the exactly-once guard: a conditional status update that only one
// transaction can win. Losing the race (zero rows affected) is not an error:
// another invocation already owns the movement.
func (s *MovementScheduler) claim(tx *gorm.DB, m *models.Movement, from, to string, now time.Time) (bool, error) {
	res := tx.Model(&models.Movement{}).
		Where("id = ? AND status = ?", m.ID, from).
		Updates(map[string]interface{}{"status": to, "resolved_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	m.Status = to
	m.ResolvedAt = &now
	return true, nil
}

func (s *MovementScheduler) resolveAttack(tx *gorm.DB, m *models.Movement, now time.Time) error {
	claimed, err := s.claim(tx, m, models.MovementStatusTravelling, models.MovementStatusArrived, now)
	if err != nil {
		return err
	}
	if !claimed {
		return errMovementClaimed
	}

	attackerV, err := loadVillage(tx, m.FromVillageID)
	if err != nil {
		return err
	}
	defenderV, err := loadVillage(tx, m.ToVillageID)
	if err != nil {
		return err
	}

	// Bring the defender's balances up to date before looting.
	if err := s.Ledger.Touch(tx, defenderV, now); err != nil {
		return err
	}

	defOwn, err := garrisonComposition(tx, defenderV.ID, bucketInVillage)
	if err != nil {
		return err
	}
	supports, err := s.stationedSupports(tx, defenderV.ID)
	if err != nil {
		return err
	}
	defComp := defOwn.Clone()
	for i := range supports {
		defComp[supports[i].UnitTypeID] += supports[i].Count
	}

	outcome := s.Resolver.Resolve(
		BattleSide{Troops: m.Troops, Bonuses: s.Villages.BonusesFor(tx, attackerV, RoleAttack)},
		BattleSide{Troops: defComp, Bonuses: s.Villages.BonusesFor(tx, defenderV, RoleDefense), Resources: defenderV.Resources},
	)

	// Attacker casualties die in the owner's in_attack bucket.
	if err := drainGarrison(tx, attackerV.ID, outcome.AttackerLosses, bucketInAttack); err != nil {
		return err
	}
	if err := s.applyDefenderLosses(tx, defenderV, defOwn, supports, outcome.DefenderLosses); err != nil {
		return err
	}

	// Loot leaves the defender now and travels home with the survivors.
	if !outcome.Loot.IsZero() {
		if err := s.Ledger.DeductResources(tx, defenderV, outcome.Loot); err != nil {
			return err
		}
	}

	battle := models.Battle{
		ID:                uuid.NewString(),
		MovementID:        m.ID,
		AttackerVillageID: attackerV.ID,
		DefenderVillageID: defenderV.ID,
		AttackerPlayerID:  attackerV.PlayerID,
		DefenderPlayerID:  defenderV.PlayerID,
		AttackerTroops:    m.Troops.Sanitized(),
		DefenderTroops:    defComp,
		AttackerLosses:    outcome.AttackerLosses,
		DefenderLosses:    outcome.DefenderLosses,
		AttackerStrength:  outcome.AttackerStrength,
		DefenderStrength:  outcome.DefenderStrength,
		Loot:              outcome.Loot,
		Result:            outcome.Result,
		OccurredAt:        m.ArrivesAt,
	}
	if err := tx.Create(&battle).Error; err != nil {
		return err
	}

	m.Troops = outcome.AttackerSurvivors
	m.Payload = outcome.Loot
	if outcome.AttackerSurvivors.IsEmpty() {
		// Annihilated, nothing returns.
		m.Status = models.MovementStatusCompleted
		m.Payload = models.ResourceVector{}
	} else {
		returnAt := now.Add(m.ArrivesAt.Sub(m.StartedAt))
		m.ReturnAt = &returnAt
		m.Status = models.MovementStatusReturning
	}
	if err := tx.Save(m).Error; err != nil {
		return err
	}

	if err := s.Events.Emit(tx, models.EventBattleResolved, defenderV.ID, &m.ID, battleSummary(&battle), m.ArrivesAt); err != nil {
		return err
	}

	s.Villages.InvalidateVillage(attackerV.ID)
	s.Villages.InvalidateVillage(defenderV.ID)
	return nil
}

// applyDefenderLosses distributes casualties per unit type proportionally
// between the village's own garrison and stationed foreign support, with the
// remainder falling on the village's own troops. Support rows are walked in
// origin-village order so the split is deterministic.
func (s *MovementScheduler) applyDefenderLosses(tx *gorm.DB, defenderV *models.Village, defOwn models.TroopComposition, supports []models.StationedSupport, losses models.TroopComposition) error {
	for unitID, lost := range losses {
		if lost <= 0 {
			continue
		}
		own := defOwn[unitID]
		var inSupport int64
		for i := range supports {
			if supports[i].UnitTypeID == unitID {
				inSupport += supports[i].Count
			}
		}
		total := own + inSupport
		if total <= 0 {
			continue
		}
		if lost > total {
			lost = total
		}

		supLoss := lost * inSupport / total
		ownLoss := lost - supLoss
		if ownLoss > own {
			supLoss += ownLoss - own
			ownLoss = own
		}

		if ownLoss > 0 {
			if err := drainGarrison(tx, defenderV.ID, models.TroopComposition{unitID: ownLoss}, bucketInVillage); err != nil {
				return err
			}
		}

		remaining := supLoss
		for i := range supports {
			sup := &supports[i]
			if remaining <= 0 {
				break
			}
			if sup.UnitTypeID != unitID || sup.Count <= 0 {
				continue
			}
			take := remaining
			if take > sup.Count {
				take = sup.Count
			}
			sup.Count -= take
			remaining -= take

			if sup.Count == 0 {
				if err := tx.Delete(sup).Error; err != nil {
					return err
				}
			} else if err := tx.Save(sup).Error; err != nil {
				return err
			}

			// Mirror the loss on the owner's in_defense sub-count.
			if err := drainGarrison(tx, sup.FromVillageID, models.TroopComposition{unitID: take}, bucketInDefense); err != nil {
				return err
			}
			s.Villages.InvalidateVillage(sup.FromVillageID)
		}
	}
	return nil
}

func (s *MovementScheduler) deliverSupport(tx *gorm.DB, m *models.Movement, now time.Time) error {
	claimed, err := s.claim(tx, m, models.MovementStatusTravelling, models.MovementStatusArrived, now)
	if err != nil {
		return err
	}
	if !claimed {
		return errMovementClaimed
	}

	if _, err := loadVillage(tx, m.ToVillageID); err != nil {
		return err
	}

	for unitID, count := range m.Troops.Sanitized() {
		var row models.StationedSupport
		err := tx.Where(models.StationedSupport{VillageID: m.ToVillageID, FromVillageID: m.FromVillageID, UnitTypeID: unitID}).
			Attrs(models.StationedSupport{ID: uuid.NewString()}).
			FirstOrCreate(&row).Error
		if err != nil {
			return err
		}
		row.Count += count
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
	}

	// Owner side: the troops are no longer travelling, they are stationed.
	if err := drainGarrison(tx, m.FromVillageID, m.Troops, bucketInSupport); err != nil {
		return err
	}
	if err := creditGarrison(tx, m.FromVillageID, m.Troops, bucketInDefense); err != nil {
		return err
	}

	m.Status = models.MovementStatusCompleted
	if err := tx.Save(m).Error; err != nil {
		return err
	}

	if err := s.Events.Emit(tx, models.EventMovementArrived, m.ToVillageID, &m.ID, map[string]interface{}{
		"type":            m.Type,
		"from_village_id": m.FromVillageID,
		"troops":          m.Troops,
	}, m.ArrivesAt); err != nil {
		return err
	}

	s.Villages.InvalidateVillage(m.FromVillageID)
	s.Villages.InvalidateVillage(m.ToVillageID)
	return nil
}

func (s *MovementScheduler) resolveSpy(tx *gorm.DB, m *models.Movement, now time.Time) error {
	claimed, err := s.claim(tx, m, models.MovementStatusTravelling, models.MovementStatusArrived, now)
	if err != nil {
		return err
	}
	if !claimed {
		return errMovementClaimed
	}

	targetV, err := loadVillage(tx, m.ToVillageID)
	if err != nil {
		return err
	}
	if err := s.Ledger.Touch(tx, targetV, now); err != nil {
		return err
	}
	garrison, err := garrisonComposition(tx, targetV.ID, bucketInVillage)
	if err != nil {
		return err
	}

	// The report belongs to the sender; its delivery is the notification
	// collaborator's concern.
	report := map[string]interface{}{
		"target_village_id": targetV.ID,
		"target_slug":       targetV.Slug,
		"resources":         targetV.Resources,
		"building_levels":   targetV.BuildingLevels,
		"garrison":          garrison,
		"wall_level":        targetV.WallLevel(),
	}
	if err := s.Events.Emit(tx, models.EventSpyReport, m.FromVillageID, &m.ID, report, m.ArrivesAt); err != nil {
		return err
	}

	// Scouts head home with what they learned.
	returnAt := now.Add(m.ArrivesAt.Sub(m.StartedAt))
	m.ReturnAt = &returnAt
	m.Status = models.MovementStatusReturning
	return tx.Save(m).Error
}

func (s *MovementScheduler) deliverTrade(tx *gorm.DB, m *models.Movement, now time.Time) error {
	claimed, err := s.claim(tx, m, models.MovementStatusTravelling, models.MovementStatusArrived, now)
	if err != nil {
		return err
	}
	if !claimed {
		return errMovementClaimed
	}

	destV, err := loadVillage(tx, m.ToVillageID)
	if err != nil {
		return err
	}
	if err := s.Ledger.Touch(tx, destV, now); err != nil {
		return err
	}
	if err := s.Ledger.AddResources(tx, destV, m.Payload); err != nil {
		return err
	}

	m.Status = models.MovementStatusCompleted
	if err := tx.Save(m).Error; err != nil {
		return err
	}

	if err := s.Events.Emit(tx, models.EventMovementArrived, m.ToVillageID, &m.ID, map[string]interface{}{
		"type":            m.Type,
		"from_village_id": m.FromVillageID,
		"payload":         m.Payload,
	}, m.ArrivesAt); err != nil {
		return err
	}

	s.Villages.InvalidateVillage(m.ToVillageID)
	return nil
}

// completeReturnLeg lands troops and carried loot back home. Handles both
// the returning leg of an attack/spy movement and standalone return
// movements spawned by cancellation.
func (s *MovementScheduler) completeReturnLeg(tx *gorm.DB, m *models.Movement, now time.Time) error {
	claimed, err := s.claim(tx, m, models.MovementStatusReturning, models.MovementStatusCompleted, now)
	if err != nil {
		return err
	}
	if !claimed {
		return errMovementClaimed
	}

	homeV, err := loadVillage(tx, m.FromVillageID)
	if err != nil {
		return err
	}
	if err := s.Ledger.Touch(tx, homeV, now); err != nil {
		return err
	}
	if !m.Payload.IsZero() {
		if err := s.Ledger.AddResources(tx, homeV, m.Payload); err != nil {
			return err
		}
	}

	if !m.Troops.IsEmpty() {
		// Cancelled support troops come out of in_support; everything else
		// was travelling in in_attack. Drain-and-credit instead of a strict
		// shift keeps resolution total even if bookkeeping drifted.
		bucket := bucketInAttack
		if m.OriginType == models.MovementSupport {
			bucket = bucketInSupport
		}
		if err := drainGarrison(tx, homeV.ID, m.Troops, bucket); err != nil {
			return err
		}
		if err := creditGarrison(tx, homeV.ID, m.Troops, bucketInVillage); err != nil {
			return err
		}
	}

	if err := tx.Save(m).Error; err != nil {
		return err
	}

	if err := s.Events.Emit(tx, models.EventMovementArrived, homeV.ID, &m.ID, map[string]interface{}{
		"type":    m.Type,
		"troops":  m.Troops,
		"payload": m.Payload,
	}, m.DueAt()); err != nil {
		return err
	}

	s.Villages.InvalidateVillage(homeV.ID)
	return nil
}

func (s *MovementScheduler) stationedSupports(tx *gorm.DB, villageID string) ([]models.StationedSupport, error) {
	var supports []models.StationedSupport
	err := tx.Where("village_id = ?", villageID).
		Order("from_village_id asc, unit_type_id asc").
		Find(&supports).Error
	return supports, err
}

func loadVillage(tx *gorm.DB, id string) (*models.Village, error) {
	var v models.Village
	if err := tx.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("village %s: %w", id, ErrInvalidMovement)
		}
		return nil, err
	}
	return &v, nil
}

func battleSummary(b *models.Battle) map[string]interface{} {
	return map[string]interface{}{
		"battle_id":       b.ID,
		"result":          b.Result,
		"attacker_losses": b.AttackerLosses,
		"defender_losses": b.DefenderLosses,
		"loot":            b.Loot,
	}
}
