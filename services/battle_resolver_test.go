package services

import (
	"reflect"
	"testing"

	"conquest-engine/models"
)

func newTestResolver() *BattleResolver {
	cfg := testConfig()
	catalog := testCatalog()
	return NewBattleResolver(NewStrengthCalculator(catalog, cfg), catalog, cfg)
}

func TestResolveIsDeterministic(t *testing.T) {
	r := newTestResolver()

	attacker := BattleSide{
		Troops:  models.TroopComposition{"legionnaire": 100, "equites_imperatoris": 20},
		Bonuses: VillageBonuses{HeroPresent: true},
	}
	defender := BattleSide{
		Troops:    models.TroopComposition{"praetorian": 80},
		Bonuses:   VillageBonuses{WallLevel: 5},
		Resources: models.ResourceVector{Wood: 400, Clay: 300, Iron: 200, Crop: 100},
	}

	first := r.Resolve(attacker, defender)
	second := r.Resolve(attacker, defender)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different outcomes:\n%+v\n%+v", first, second)
	}
}

func TestAttackOnUndefendedVillage(t *testing.T) {
	r := newTestResolver()

	outcome := r.Resolve(
		BattleSide{Troops: models.TroopComposition{"legionnaire": 100}},
		BattleSide{Resources: models.ResourceVector{Wood: 400, Clay: 300, Iron: 200, Crop: 100}},
	)

	if outcome.Result != models.BattleAttackerVictory {
		t.Fatalf("expected attacker victory, got %s", outcome.Result)
	}
	if len(outcome.AttackerLosses) != 0 {
		t.Fatalf("zero defense must cause zero attacker losses, got %+v", outcome.AttackerLosses)
	}
	if outcome.AttackerSurvivors["legionnaire"] != 100 {
		t.Fatalf("all attackers must survive, got %+v", outcome.AttackerSurvivors)
	}
	// 100 legionnaires carry 5000, more than the 1000 available.
	want := models.ResourceVector{Wood: 400, Clay: 300, Iron: 200, Crop: 100}
	if outcome.Loot != want {
		t.Fatalf("expected full loot %+v, got %+v", want, outcome.Loot)
	}
}

func TestCrushingDefenseAnnihilatesAttacker(t *testing.T) {
	r := newTestResolver()

	outcome := r.Resolve(
		BattleSide{Troops: models.TroopComposition{"legionnaire": 1}},
		BattleSide{Troops: models.TroopComposition{"praetorian": 100}},
	)

	if outcome.Result != models.BattleDefenderVictory {
		t.Fatalf("expected defender victory, got %s", outcome.Result)
	}
	if !outcome.AttackerSurvivors.IsEmpty() {
		t.Fatalf("attacker must be annihilated, got survivors %+v", outcome.AttackerSurvivors)
	}
	if outcome.AttackerLosses["legionnaire"] != 1 {
		t.Fatalf("expected the lone legionnaire lost, got %+v", outcome.AttackerLosses)
	}
	// 40 attack against 6500 defense rounds down to zero defender casualties.
	if len(outcome.DefenderLosses) != 0 {
		t.Fatalf("expected no defender losses, got %+v", outcome.DefenderLosses)
	}
	if !outcome.Loot.IsZero() {
		t.Fatalf("a defeated attacker loots nothing, got %+v", outcome.Loot)
	}
}

func TestDrawInflictsSymmetricLosses(t *testing.T) {
	r := newTestResolver()

	// Militia attack equals militia defense, so equal counts produce equal
	// strengths (100 vs 100) and an exact draw.
	outcome := r.Resolve(
		BattleSide{Troops: models.TroopComposition{"militia": 10}},
		BattleSide{Troops: models.TroopComposition{"militia": 10}},
	)

	if outcome.Result != models.BattleDraw {
		t.Fatalf("expected draw, got %s (att %v def %v)",
			outcome.Result, outcome.AttackerStrength, outcome.DefenderStrength)
	}
	// Both sides lose floor(10 * 30%) = 3.
	if outcome.AttackerLosses["militia"] != 3 || outcome.DefenderLosses["militia"] != 3 {
		t.Fatalf("expected 3 losses each, got attacker %+v defender %+v",
			outcome.AttackerLosses, outcome.DefenderLosses)
	}
	if outcome.AttackerSurvivors["militia"] != 7 || outcome.DefenderSurvivors["militia"] != 7 {
		t.Fatalf("expected 7 survivors each, got attacker %+v defender %+v",
			outcome.AttackerSurvivors, outcome.DefenderSurvivors)
	}
	if !outcome.Loot.IsZero() {
		t.Fatalf("draws must not produce loot, got %+v", outcome.Loot)
	}
}

func TestLootCappedByCarryCapacity(t *testing.T) {
	r := newTestResolver()

	// 2 surviving legionnaires carry 100 of the 1000 available: a 10% share
	// of every resource type.
	outcome := r.Resolve(
		BattleSide{Troops: models.TroopComposition{"legionnaire": 2}},
		BattleSide{Resources: models.ResourceVector{Wood: 400, Clay: 300, Iron: 200, Crop: 100}},
	)

	want := models.ResourceVector{Wood: 40, Clay: 30, Iron: 20, Crop: 10}
	if outcome.Loot != want {
		t.Fatalf("expected proportional loot %+v, got %+v", want, outcome.Loot)
	}
	if outcome.Loot.Total() > 100 {
		t.Fatalf("loot %d exceeds carry capacity 100", outcome.Loot.Total())
	}
}

func TestResolveSanitizesNegativeCounts(t *testing.T) {
	r := newTestResolver()

	outcome := r.Resolve(
		BattleSide{Troops: models.TroopComposition{"legionnaire": -10}},
		BattleSide{Troops: models.TroopComposition{"praetorian": 5}},
	)

	if outcome.Result != models.BattleDefenderVictory {
		t.Fatalf("negative attacker must resolve as defender victory, got %s", outcome.Result)
	}
	if len(outcome.AttackerLosses) != 0 || len(outcome.AttackerSurvivors) != 0 {
		t.Fatalf("sanitized attacker must have no losses or survivors, got %+v / %+v",
			outcome.AttackerLosses, outcome.AttackerSurvivors)
	}
	if len(outcome.DefenderLosses) != 0 {
		t.Fatalf("zero attack strength must cause no defender losses, got %+v", outcome.DefenderLosses)
	}
}

func TestZeroVersusZeroIsDraw(t *testing.T) {
	r := newTestResolver()

	outcome := r.Resolve(BattleSide{}, BattleSide{})
	if outcome.Result != models.BattleDraw {
		t.Fatalf("empty vs empty must draw, got %s", outcome.Result)
	}
}
