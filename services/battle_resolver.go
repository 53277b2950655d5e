package services

import (
	"math"

	"conquest-engine/models"
)

// BattleSide bundles everything resolution needs to know about one party:
// the engaged composition, the applicable bonuses and (defender only) the
// resources available for looting.
type BattleSide struct {
	Troops    models.TroopComposition
	Bonuses   VillageBonuses
	Resources models.ResourceVector
}

// BattleOutcome is the full result of one resolution. The resolver never
// applies it; the movement scheduler commits casualties, loot and the battle
// record inside its own transaction.
type BattleOutcome struct {
	Result string

	AttackerStrength float64
	DefenderStrength float64

	AttackerLosses    models.TroopComposition
	DefenderLosses    models.TroopComposition
	AttackerSurvivors models.TroopComposition
	DefenderSurvivors models.TroopComposition

	Loot models.ResourceVector
}

// BattleResolver computes battle outcomes from troop compositions and village
// bonuses. Deterministic and side-effect free: identical inputs always yield
// identical casualties and loot, and malformed input (negative counts) is
// sanitized to zero rather than rejected.
type BattleResolver struct {
	Strength *StrengthCalculator
	Catalog  *UnitCatalog
	Config   *Config
}

func NewBattleResolver(strength *StrengthCalculator, catalog *UnitCatalog, cfg *Config) *BattleResolver {
	return &BattleResolver{Strength: strength, Catalog: catalog, Config: cfg}
}

// Resolve runs one battle. Strength comparison decides the result; exact
// equality (including 0 vs 0) is a draw. The loss curve:
//
//	winner loss% = min(100, 100 * loserStrength/winnerStrength * lossFactor)
//	loser  loss% = min(100, 100 * winnerStrength/loserStrength * lossFactor)
//	draw: both sides lose min(100, 100 * lossFactor)
//
// so the stronger side always takes proportionally fewer casualties, a
// crushing victory annihilates the loser, and a side with zero opposing
// strength loses nothing. Casualties are floored per unit type.
func (r *BattleResolver) Resolve(attacker, defender BattleSide) BattleOutcome {
	att := attacker.Troops.Sanitized()
	def := defender.Troops.Sanitized()

	attStrength := r.Strength.AttackStrength(att, attacker.Bonuses)
	defStrength := r.Strength.DefenseStrength(def, att, defender.Bonuses)

	out := BattleOutcome{
		AttackerStrength: attStrength,
		DefenderStrength: defStrength,
	}

	lf := r.Config.LossFactor
	attLossPct := lossPct(defStrength, attStrength, lf)
	defLossPct := lossPct(attStrength, defStrength, lf)
	switch {
	case attStrength > defStrength:
		out.Result = models.BattleAttackerVictory
	case attStrength < defStrength:
		out.Result = models.BattleDefenderVictory
	default:
		// Exact equality, including 0 vs 0. Symmetric non-trivial losses.
		out.Result = models.BattleDraw
		attLossPct = math.Min(100, 100*lf)
		defLossPct = attLossPct
	}

	out.AttackerLosses, out.AttackerSurvivors = applyLossPct(att, attLossPct)
	out.DefenderLosses, out.DefenderSurvivors = applyLossPct(def, defLossPct)

	if out.Result == models.BattleAttackerVictory {
		out.Loot = r.computeLoot(out.AttackerSurvivors, defender.Resources)
	}

	return out
}

// lossPct is the casualty percentage suffered against an enemy of strength
// `enemy` by a side of strength `own`. Zero own strength with a live enemy
// means annihilation; zero enemy strength means no losses at all.
func lossPct(enemy, own, lossFactor float64) float64 {
	if enemy <= 0 {
		return 0
	}
	if own <= 0 {
		return 100
	}
	return math.Min(100, 100*enemy/own*lossFactor)
}

// applyLossPct computes per-unit casualties as floor(count*pct/100). Always
// floor, never round-up, so repeated resolution with identical inputs is
// reproducible and counts can never go negative.
func applyLossPct(comp models.TroopComposition, pct float64) (losses, survivors models.TroopComposition) {
	losses = models.TroopComposition{}
	survivors = models.TroopComposition{}
	for id, count := range comp {
		lost := int64(math.Floor(float64(count) * pct / 100))
		if lost > count {
			lost = count
		}
		if lost > 0 {
			losses[id] = lost
		}
		if remaining := count - lost; remaining > 0 {
			survivors[id] = remaining
		}
	}
	return losses, survivors
}

// computeLoot allocates the surviving attackers' carry capacity
// proportionally across the resource types present in the defender's
// village, capped per type by what is actually there.
func (r *BattleResolver) computeLoot(survivors models.TroopComposition, available models.ResourceVector) models.ResourceVector {
	capacity := r.Catalog.CarryCapacity(survivors)
	total := available.Total()
	if capacity <= 0 || total <= 0 {
		return models.ResourceVector{}
	}
	if total <= capacity {
		return available
	}
	share := float64(capacity) / float64(total)
	return available.Scale(share).ClampTo(available)
}
