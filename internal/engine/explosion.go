// Star explosions — volatile stars build up points until they blow, taking their
// planets with them.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/galaxy-sim/internal/galaxy"
)

func (s *Simulation) accumulateExplosionPoints() {
	for _, star := range s.Galaxy.Stars {
		star.Accumulate()
	}
}

// explodeStars destroys every star at the threshold. Candidates are collected
// first; the star list is only mutated after the scan.
func (s *Simulation) explodeStars() []galaxy.StarID {
	var doomed []*galaxy.Star
	for _, star := range s.Galaxy.Stars {
		if star.CanExplode() {
			doomed = append(doomed, star)
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	ids := make([]galaxy.StarID, 0, len(doomed))
	for _, star := range doomed {
		planets := len(star.Planets)
		released := s.Galaxy.RemoveStar(star.ID)
		ids = append(ids, star.ID)

		slog.Info("star exploded",
			"tick", s.LastTick,
			"star", star.ID,
			"planets_lost", planets,
			"civilizations_extinct", len(released),
			"stars_left", len(s.Galaxy.Stars),
		)
		s.emit(Event{
			Tick: s.LastTick,
			Description: fmt.Sprintf("star %d exploded, destroying %d planets and %d civilizations",
				star.ID, planets, len(released)),
			Category: "explosion",
		})
	}

	s.Stats.Explosions += len(ids)
	s.Metrics.AddExplosions(len(ids))
	return ids
}
