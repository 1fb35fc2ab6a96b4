// Civilization interactions — proximity-triggered attacks between planets.
package engine

import (
	"fmt"

	"github.com/talgya/galaxy-sim/internal/entropy"
	"github.com/talgya/galaxy-sim/internal/galaxy"
)

// orbiter pairs a planet with its star so positions can be computed.
type orbiter struct {
	planet *galaxy.Planet
	star   *galaxy.Star
}

// resolveInteractions scans every eligible planet pair once and resolves the
// interactions that trigger. Returns interactions and conquests this scan.
func (s *Simulation) resolveInteractions() (int, int) {
	interactions, conquests := 0, 0

	scan := func(group []orbiter) {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				fought, won := s.interact(group[i], group[j])
				if fought {
					interactions++
				}
				if won {
					conquests++
				}
			}
		}
	}

	switch s.Settings.Scope {
	case ScopeGlobal:
		var all []orbiter
		for _, star := range s.Galaxy.Stars {
			for _, p := range star.Planets {
				all = append(all, orbiter{p, star})
			}
		}
		scan(all)
	default:
		for _, star := range s.Galaxy.Stars {
			if len(star.Planets) < 2 {
				continue
			}
			group := make([]orbiter, len(star.Planets))
			for i, p := range star.Planets {
				group[i] = orbiter{p, star}
			}
			scan(group)
		}
	}

	s.Stats.Interactions += interactions
	s.Stats.Conquests += conquests
	return interactions, conquests
}

// interact checks one pair. Returns whether an interaction happened and
// whether it ended in a conquest.
func (s *Simulation) interact(a, b orbiter) (bool, bool) {
	if a.planet.Civ == b.planet.Civ {
		return false, false
	}

	ax, ay := a.planet.Position(a.star)
	bx, by := b.planet.Position(b.star)
	reach := float64(a.planet.Radius+b.planet.Radius) + s.Settings.InteractionRange
	if galaxy.Distance(ax, ay, bx, by) > reach {
		return false, false
	}
	if s.rng.Intn(100) >= s.Settings.InteractionChance {
		return false, false
	}

	attacker, defender := a.planet, b.planet
	if !entropy.Bool(s.rng) {
		attacker, defender = b.planet, a.planet
	}

	return true, s.attack(attacker, defender)
}

// attack resolves one attack and its side effects.
func (s *Simulation) attack(attacker, defender *galaxy.Planet) bool {
	loser := defender.Civ
	defenderPower := s.Galaxy.Civs.Get(loser).Power
	won := s.Galaxy.Civs.Attack(attacker, defender, s.Settings.AttackerWinsTies)

	attacker.PowerDisplay = s.Settings.PowerDisplayDuration
	defender.PowerDisplay = s.Settings.PowerDisplayDuration
	s.Metrics.ObserveInteraction(won)

	civ := s.Galaxy.Civs.Get(attacker.Civ)
	if !won {
		s.emit(Event{
			Tick: s.LastTick,
			Description: fmt.Sprintf("civilization %d (power %d) repelled by civilization %d (power %d)",
				attacker.Civ, civ.Power, loser, defenderPower),
			Category: "skirmish",
		})
		return false
	}

	desc := fmt.Sprintf("civilization %d conquers planet %d from civilization %d, power now %d",
		attacker.Civ, defender.ID, loser, civ.Power)
	if s.Galaxy.ReleaseIfOrphan(loser) {
		desc += fmt.Sprintf("; civilization %d is extinct", loser)
	}
	s.emit(Event{Tick: s.LastTick, Description: desc, Category: "conquest"})
	return true
}
