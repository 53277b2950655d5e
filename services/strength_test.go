package services

import (
	"math"
	"testing"

	"conquest-engine/models"
)

func newTestStrength() *StrengthCalculator {
	return NewStrengthCalculator(testCatalog(), testConfig())
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAttackStrengthSumsBaseValues(t *testing.T) {
	calc := newTestStrength()

	got := calc.AttackStrength(models.TroopComposition{"legionnaire": 10}, VillageBonuses{})
	if !almostEqual(got, 400) {
		t.Fatalf("expected attack strength 400, got %v", got)
	}
}

func TestAttackStrengthAppliesHeroAndAllianceBonuses(t *testing.T) {
	calc := newTestStrength()

	bonuses := VillageBonuses{HeroPresent: true, AllianceBonus: 0.05}
	got := calc.AttackStrength(models.TroopComposition{"legionnaire": 10}, bonuses)
	want := 400 * 1.1 * 1.05
	if !almostEqual(got, want) {
		t.Fatalf("expected attack strength %v, got %v", want, got)
	}
}

func TestAttackStrengthIgnoresWall(t *testing.T) {
	calc := newTestStrength()
	troops := models.TroopComposition{"legionnaire": 10}

	plain := calc.AttackStrength(troops, VillageBonuses{})
	walled := calc.AttackStrength(troops, VillageBonuses{WallLevel: 15})
	if !almostEqual(plain, walled) {
		t.Fatalf("wall level must not affect attack strength: %v vs %v", plain, walled)
	}
}

func TestDefenseStrengthFollowsAttackerClass(t *testing.T) {
	calc := newTestStrength()
	defenders := models.TroopComposition{"praetorian": 10}

	// Infantry attack hits the infantry defense stat.
	vsInfantry := calc.DefenseStrength(defenders, models.TroopComposition{"legionnaire": 10}, VillageBonuses{})
	if !almostEqual(vsInfantry, 650) {
		t.Fatalf("expected 650 vs infantry, got %v", vsInfantry)
	}

	// Cavalry-dominant attack hits the cavalry defense stat.
	vsCavalry := calc.DefenseStrength(defenders, models.TroopComposition{"equites_imperatoris": 10}, VillageBonuses{})
	if !almostEqual(vsCavalry, 350) {
		t.Fatalf("expected 350 vs cavalry, got %v", vsCavalry)
	}
}

func TestDefenseStrengthTieGoesToInfantryStat(t *testing.T) {
	calc := newTestStrength()

	// 3 legionnaires carry 120 infantry attack, 1 equites carries 120 cavalry
	// attack. The exact tie must resolve to the infantry defense stat.
	attacker := models.TroopComposition{"legionnaire": 3, "equites_imperatoris": 1}
	got := calc.DefenseStrength(models.TroopComposition{"praetorian": 1}, attacker, VillageBonuses{})
	if !almostEqual(got, 65) {
		t.Fatalf("tied attack classes must use infantry defense, got %v", got)
	}
}

func TestDefenseStrengthAppliesWallBonus(t *testing.T) {
	calc := newTestStrength()
	defenders := models.TroopComposition{"praetorian": 10}
	attacker := models.TroopComposition{"legionnaire": 10}

	got := calc.DefenseStrength(defenders, attacker, VillageBonuses{WallLevel: 10})
	want := 650 * 1.3 // 10 levels * 3% per level
	if !almostEqual(got, want) {
		t.Fatalf("expected wall-boosted defense %v, got %v", want, got)
	}
}

func TestStrengthIgnoresUnknownAndNegativeCounts(t *testing.T) {
	calc := newTestStrength()

	troops := models.TroopComposition{"ghost_unit": 50, "legionnaire": -5}
	if got := calc.AttackStrength(troops, VillageBonuses{}); got != 0 {
		t.Fatalf("unknown and negative counts must contribute zero, got %v", got)
	}
	if got := calc.DefenseStrength(troops, models.TroopComposition{"legionnaire": 1}, VillageBonuses{}); got != 0 {
		t.Fatalf("unknown and negative counts must contribute zero defense, got %v", got)
	}
}
