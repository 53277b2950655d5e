package services

import (
	"conquest-engine/models"
)

// Combat roles for strength computation.
type Role int

const (
	RoleAttack Role = iota
	RoleDefense
)

// VillageBonuses are the percentage modifiers layered on top of base
// strength. They compose multiplicatively: final = base * Π(1 + bonus).
type VillageBonuses struct {
	WallLevel     int     // defense only
	HeroPresent   bool    // flat bonus from config when true
	AllianceBonus float64 // alliance-wide tech/effects, e.g. 0.05 = +5%
}

// StrengthCalculator computes aggregate attack/defense strength for a troop
// composition. Pure: no I/O, no randomness, total over any input. Negative
// counts and unknown unit ids contribute zero rather than erroring, so stale
// catalog references never break resolution.
type StrengthCalculator struct {
	Catalog *UnitCatalog
	Config  *Config
}

func NewStrengthCalculator(catalog *UnitCatalog, cfg *Config) *StrengthCalculator {
	return &StrengthCalculator{Catalog: catalog, Config: cfg}
}

// ComputeStrength is the role-dispatched entry point. For the defense role,
// attacker decides which defense stat applies (see DefenseStrength); pass the
// attacking composition in attacker. For the attack role attacker is ignored.
func (s *StrengthCalculator) ComputeStrength(troops models.TroopComposition, role Role, attacker models.TroopComposition, bonuses VillageBonuses) float64 {
	if role == RoleAttack {
		return s.AttackStrength(troops, bonuses)
	}
	return s.DefenseStrength(troops, attacker, bonuses)
}

// AttackStrength sums count*attack and applies hero/alliance bonuses. Wall
// bonuses never apply to the attacking side.
func (s *StrengthCalculator) AttackStrength(troops models.TroopComposition, bonuses VillageBonuses) float64 {
	var base float64
	for id, count := range troops {
		if count <= 0 {
			continue
		}
		u, ok := s.Catalog.Unit(id)
		if !ok {
			continue
		}
		base += float64(count * u.Attack)
	}
	return base * s.attackMultiplier(bonuses)
}

// DefenseStrength sums the defense stat matching the attacker's dominant
// class: defense_infantry when the attack is infantry-dominant,
// defense_cavalry when cavalry-dominant. Exact ties go to the infantry stat
// (documented policy).
func (s *StrengthCalculator) DefenseStrength(troops, attacker models.TroopComposition, bonuses VillageBonuses) float64 {
	cavalryDominant := s.isCavalryDominant(attacker)
	var base float64
	for id, count := range troops {
		if count <= 0 {
			continue
		}
		u, ok := s.Catalog.Unit(id)
		if !ok {
			continue
		}
		if cavalryDominant {
			base += float64(count * u.DefenseCavalry)
		} else {
			base += float64(count * u.DefenseInfantry)
		}
	}
	return base * s.defenseMultiplier(bonuses)
}

// isCavalryDominant compares the attack power carried by cavalry units vs
// infantry units in the attacking composition.
func (s *StrengthCalculator) isCavalryDominant(attacker models.TroopComposition) bool {
	var infantry, cavalry int64
	for id, count := range attacker {
		if count <= 0 {
			continue
		}
		u, ok := s.Catalog.Unit(id)
		if !ok {
			continue
		}
		if u.Cavalry {
			cavalry += count * u.Attack
		} else {
			infantry += count * u.Attack
		}
	}
	return cavalry > infantry
}

func (s *StrengthCalculator) attackMultiplier(b VillageBonuses) float64 {
	mult := 1.0
	if b.HeroPresent {
		mult *= 1 + s.Config.HeroBonus
	}
	if b.AllianceBonus > 0 {
		mult *= 1 + b.AllianceBonus
	}
	return mult
}

func (s *StrengthCalculator) defenseMultiplier(b VillageBonuses) float64 {
	mult := 1.0
	if b.WallLevel > 0 {
		mult *= 1 + float64(b.WallLevel)*s.Config.WallBonusPerLevel
	}
	if b.HeroPresent {
		mult *= 1 + s.Config.HeroBonus
	}
	if b.AllianceBonus > 0 {
		mult *= 1 + b.AllianceBonus
	}
	return mult
}
