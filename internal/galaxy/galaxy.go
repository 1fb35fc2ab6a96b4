package galaxy

import (
	"fmt"
	"sort"
)

// Galaxy holds the complete star/planet/civilization graph.
type Galaxy struct {
	Stars       []*Star              `json:"stars"`
	StarIndex   map[StarID]*Star     `json:"-"`
	PlanetIndex map[PlanetID]*Planet `json:"-"` // Every live planet across all stars
	Civs        *CivTable            `json:"-"`

	nextStarID   StarID
	nextPlanetID PlanetID
}

// New creates an empty galaxy.
func New() *Galaxy {
	return &Galaxy{
		StarIndex:    make(map[StarID]*Star),
		PlanetIndex:  make(map[PlanetID]*Planet),
		Civs:         NewCivTable(),
		nextStarID:   1,
		nextPlanetID: 1,
	}
}

// NewStar allocates a star with a fresh ID. It is not added until AddStar.
func (g *Galaxy) NewStar(kind StarKind, x, y float64, radius int) *Star {
	s := &Star{
		ID:     g.nextStarID,
		Kind:   kind,
		X:      x,
		Y:      y,
		Radius: radius,
	}
	g.nextStarID++
	return s
}

// AddPlanet attaches a planet to a star and indexes it.
func (g *Galaxy) AddPlanet(s *Star, p *Planet) {
	p.ID = g.nextPlanetID
	p.StarID = s.ID
	g.nextPlanetID++
	s.Planets = append(s.Planets, p)
	g.PlanetIndex[p.ID] = p
}

// AddStar appends a star (and any planets already attached) to the galaxy.
func (g *Galaxy) AddStar(s *Star) {
	g.Stars = append(g.Stars, s)
	g.StarIndex[s.ID] = s
	for _, p := range s.Planets {
		g.PlanetIndex[p.ID] = p
	}
}

// Star returns the star with the given ID, or nil.
func (g *Galaxy) Star(id StarID) *Star {
	return g.StarIndex[id]
}

// RemoveStar destroys a star: its planets leave the planet index and any
// civilization left without planets is released. Returns the released civs.
func (g *Galaxy) RemoveStar(id StarID) []CivID {
	s, ok := g.StarIndex[id]
	if !ok {
		return nil
	}

	touched := make(map[CivID]bool)
	for _, p := range s.Planets {
		delete(g.PlanetIndex, p.ID)
		touched[p.Civ] = true
	}
	s.Planets = nil

	delete(g.StarIndex, id)
	for i, st := range g.Stars {
		if st.ID == id {
			g.Stars = append(g.Stars[:i], g.Stars[i+1:]...)
			break
		}
	}

	var released []CivID
	for civ := range touched {
		if g.ReleaseIfOrphan(civ) {
			released = append(released, civ)
		}
	}
	sort.Slice(released, func(i, j int) bool { return released[i] < released[j] })
	return released
}

// ReleaseIfOrphan releases a civilization when no planet references it.
func (g *Galaxy) ReleaseIfOrphan(id CivID) bool {
	for _, p := range g.PlanetIndex {
		if p.Civ == id {
			return false
		}
	}
	if g.Civs.Get(id) == nil {
		return false
	}
	g.Civs.Release(id)
	return true
}

// CivPlanetCounts returns the number of planets each civilization owns.
func (g *Galaxy) CivPlanetCounts() map[CivID]int {
	counts := make(map[CivID]int, g.Civs.Len())
	for _, p := range g.PlanetIndex {
		counts[p.Civ]++
	}
	return counts
}

// PlanetCount returns the number of live planets.
func (g *Galaxy) PlanetCount() int {
	return len(g.PlanetIndex)
}

// String returns a summary of the galaxy.
func (g *Galaxy) String() string {
	return fmt.Sprintf("Galaxy(stars=%d, planets=%d, civilizations=%d)",
		len(g.Stars), g.PlanetCount(), g.Civs.Len())
}
