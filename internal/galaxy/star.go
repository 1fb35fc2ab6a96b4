// Package galaxy provides the star/planet/civilization graph and the placement pass
// that builds it.
package galaxy

import "math"

// Explosion counter bounds. Stars start in [MinExplosionPoints, ExplosionThreshold).
const (
	MinExplosionPoints = 1
	ExplosionThreshold = 100
)

// StarID is a unique identifier for a star.
type StarID uint64

// PlanetID is a unique identifier for a planet.
type PlanetID uint64

// StarKind is the star variant. It decides how fast the explosion counter grows.
type StarKind uint8

const (
	StarStable   StarKind = iota // Counter never moves
	StarVolatile                 // Counter grows by one every tick
)

// Increment returns how many explosion points the kind gains per tick.
func (k StarKind) Increment() int {
	if k == StarVolatile {
		return 1
	}
	return 0
}

// String returns the kind name.
func (k StarKind) String() string {
	switch k {
	case StarStable:
		return "stable"
	case StarVolatile:
		return "volatile"
	default:
		return "unknown"
	}
}

// Star is the center of one system.
type Star struct {
	ID              StarID    `json:"id"`
	Kind            StarKind  `json:"kind"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Radius          int       `json:"radius"`
	OrbitSpacing    int       `json:"orbit_spacing"`
	ExplosionPoints int       `json:"explosion_points"`
	OrbitDistances  []int     `json:"orbit_distances"`
	MaxPlanetRadius int       `json:"max_planet_radius"` // Sizing bound used for the footprint
	Planets         []*Planet `json:"-"`
}

// CanExplode reports whether the counter reached the explosion threshold.
func (s *Star) CanExplode() bool {
	return s.ExplosionPoints >= ExplosionThreshold
}

// Accumulate adds this tick's explosion points.
func (s *Star) Accumulate() {
	s.ExplosionPoints += s.Kind.Increment()
}

// MaxOrbitRadius is the footprint radius reserved for the system at placement.
func (s *Star) MaxOrbitRadius() int {
	return SystemRadius(s.Radius, len(s.OrbitDistances), s.OrbitSpacing, s.MaxPlanetRadius)
}

// SystemRadius computes a system footprint: star body, every orbit ring and the
// largest planet that may sit on the outermost ring.
func SystemRadius(starRadius, planets, spacing, maxPlanetRadius int) int {
	return starRadius + planets*spacing + maxPlanetRadius
}

// Planet orbits a star and belongs to a civilization through a handle.
type Planet struct {
	ID            PlanetID `json:"id"`
	StarID        StarID   `json:"star_id"`
	Slot          int      `json:"slot"`
	OrbitDistance float64  `json:"orbit_distance"`
	Angle         float64  `json:"angle"`
	Speed         float64  `json:"speed"`
	Radius        int      `json:"radius"`
	Civ           CivID    `json:"civ"`

	// Ticks left to show the power overlay after an interaction.
	PowerDisplay int `json:"power_display"`
}

// Position returns the planet's current coordinates around its star.
func (p *Planet) Position(s *Star) (float64, float64) {
	return s.X + p.OrbitDistance*math.Cos(p.Angle), s.Y + p.OrbitDistance*math.Sin(p.Angle)
}

// Advance moves the planet along its orbit by one tick.
func (p *Planet) Advance() {
	p.Angle += p.Speed
}

// OrbitSpeed returns the angular speed for slot j of n: outer orbits move slower.
func OrbitSpeed(factor float64, slot, n int) float64 {
	if n <= 0 {
		return factor
	}
	return factor * (1 - 0.7*float64(slot+1)/float64(n))
}

// Distance is the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
