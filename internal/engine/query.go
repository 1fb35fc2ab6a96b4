package engine

import (
	"github.com/talgya/galaxy-sim/internal/galaxy"
	"github.com/talgya/galaxy-sim/internal/telemetry"
)

// PlanetView is a read-only copy of one planet for renderers and the API.
type PlanetView struct {
	ID           galaxy.PlanetID `json:"id"`
	Slot         int             `json:"slot"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Radius       int             `json:"radius"`
	Civ          galaxy.CivID    `json:"civilization_id"`
	Color        string          `json:"color"`
	Power        int             `json:"power"`
	PowerDisplay int             `json:"power_display"`
}

// StarView is a read-only copy of one star system.
type StarView struct {
	ID              galaxy.StarID `json:"id"`
	Kind            string        `json:"kind"`
	X               float64       `json:"x"`
	Y               float64       `json:"y"`
	Radius          int           `json:"radius"`
	ExplosionPoints int           `json:"explosion_points"`
	OrbitDistances  []int         `json:"orbit_distances"`
	Planets         []PlanetView  `json:"planets"`
}

// Snapshot is a consistent view of the galaxy after a tick.
type Snapshot struct {
	Tick          uint64          `json:"tick"`
	Stars         []StarView      `json:"stars"`
	Civilizations []telemetry.Row `json:"civilizations"`
	Stats         SimStats        `json:"stats"`
	Skipped       []int           `json:"placement_skipped,omitempty"`
}

// Snapshot copies the current state under the read lock.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Tick:          s.LastTick,
		Stars:         make([]StarView, 0, len(s.Galaxy.Stars)),
		Civilizations: s.civSummaries(),
		Stats:         s.Stats,
		Skipped:       append([]int(nil), s.Report.Skipped...),
	}
	for _, star := range s.Galaxy.Stars {
		snap.Stars = append(snap.Stars, s.starView(star))
	}
	return snap
}

// PlanetCount returns the number of planets across all stars.
func (s Snapshot) PlanetCount() int {
	n := 0
	for _, st := range s.Stars {
		n += len(st.Planets)
	}
	return n
}

// StarSnapshot returns one star system, or false if it does not exist.
func (s *Simulation) StarSnapshot(id galaxy.StarID) (StarView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	star := s.Galaxy.Star(id)
	if star == nil {
		return StarView{}, false
	}
	return s.starView(star), true
}

func (s *Simulation) starView(star *galaxy.Star) StarView {
	v := StarView{
		ID:              star.ID,
		Kind:            star.Kind.String(),
		X:               star.X,
		Y:               star.Y,
		Radius:          star.Radius,
		ExplosionPoints: star.ExplosionPoints,
		OrbitDistances:  append([]int(nil), star.OrbitDistances...),
		Planets:         make([]PlanetView, 0, len(star.Planets)),
	}
	for _, p := range star.Planets {
		x, y := p.Position(star)
		pv := PlanetView{
			ID:           p.ID,
			Slot:         p.Slot,
			X:            x,
			Y:            y,
			Radius:       p.Radius,
			Civ:          p.Civ,
			PowerDisplay: p.PowerDisplay,
		}
		if civ := s.Galaxy.Civs.Get(p.Civ); civ != nil {
			pv.Color = civ.Hex()
			pv.Power = civ.Power
		}
		v.Planets = append(v.Planets, pv)
	}
	return v
}

// Civilizations returns one summary row per live civilization, by ID.
func (s *Simulation) Civilizations() []telemetry.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.civSummaries()
}

// civSummaries builds telemetry rows for the current tick. Caller holds a lock.
func (s *Simulation) civSummaries() []telemetry.Row {
	counts := s.Galaxy.CivPlanetCounts()
	ids := s.Galaxy.Civs.IDs()
	rows := make([]telemetry.Row, 0, len(ids))
	for _, id := range ids {
		civ := s.Galaxy.Civs.Get(id)
		rows = append(rows, telemetry.Row{
			Tick:           s.LastTick,
			RemainingStars: len(s.Galaxy.Stars),
			CivilizationID: uint64(id),
			Color:          civ.Hex(),
			PlanetCount:    counts[id],
			Power:          civ.Power,
		})
	}
	return rows
}

// RecentEvents returns up to n of the newest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.Events) {
		n = len(s.Events)
	}
	return append([]Event(nil), s.Events[len(s.Events)-n:]...)
}

// Statistics returns the cumulative counters.
func (s *Simulation) Statistics() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// PlacementParams returns the parameters the current galaxy was placed with.
func (s *Simulation) PlacementParams() galaxy.PlacementParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Placement
}

// PlacementReport returns the outcome of the last placement pass.
func (s *Simulation) PlacementReport() galaxy.PlacementReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.Report
	r.Skipped = append([]int(nil), r.Skipped...)
	return r
}
