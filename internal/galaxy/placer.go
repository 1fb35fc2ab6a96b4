// Star system placement — packs non-overlapping systems into a bounded area,
// shrinking planet count, orbit spacing and star size when space runs out.
package galaxy

import (
	"log/slog"
	"math"

	"github.com/talgya/galaxy-sim/internal/entropy"
)

// PlacementParams holds the sizing bounds and budgets for one placement pass.
type PlacementParams struct {
	StarCount     int
	Width         int
	Height        int
	ReservedWidth int // Right-hand margin kept free for UI panels
	Padding       int // Border padding on every edge

	MinPlanets int
	MaxPlanets int

	MinStarRadius    int
	MaxStarRadius    int
	MinPlanetRadius  int
	MaxPlanetRadius  int
	BaseOrbitSpacing int
	MinOrbitSpacing  int
	ShrinkStep       int

	MaxTries         int // Shrink/retry budget per star
	PositionAttempts int // Random positions tried per parameter set
	Clearance        int // Extra gap between neighbouring system footprints

	SpeedFactor float64 // Angular speed of the innermost orbit before falloff
	MinPower    int
	MaxPower    int

	// Probability that a placed star is volatile. Ignored when Nebula is set.
	VolatileChance float64
	Nebula         *Nebula
}

// DefaultPlacementParams returns the stock sizing for a 1500x700 area.
func DefaultPlacementParams() PlacementParams {
	return PlacementParams{
		StarCount:        5,
		Width:            1500,
		Height:           700,
		ReservedWidth:    200,
		Padding:          20,
		MinPlanets:       1,
		MaxPlanets:       10,
		MinStarRadius:    25,
		MaxStarRadius:    45,
		MinPlanetRadius:  5,
		MaxPlanetRadius:  15,
		BaseOrbitSpacing: 40,
		MinOrbitSpacing:  20,
		ShrinkStep:       5,
		MaxTries:         100,
		PositionAttempts: 20,
		Clearance:        10,
		SpeedFactor:      0.015,
		MinPower:         DefaultMinPower,
		MaxPower:         DefaultMaxPower,
		VolatileChance:   0.5,
	}
}

// PlacementReport summarizes one placement pass.
type PlacementReport struct {
	Requested int   `json:"requested"`
	Placed    int   `json:"placed"`
	Skipped   []int `json:"skipped"` // 1-based indices of stars that could not fit
}

// sizing is the shrinkable parameter set for one star.
type sizing struct {
	starRadius int
	planets    int
	spacing    int
}

// shrink reduces one parameter in priority order: planets, spacing, star radius.
// Returns false when everything is already at its floor.
func (z *sizing) shrink(p PlacementParams) bool {
	step := p.ShrinkStep
	if step <= 0 {
		step = 1
	}
	switch {
	case z.planets > p.MinPlanets:
		z.planets--
	case z.spacing > p.MinOrbitSpacing:
		z.spacing = max(z.spacing-step, p.MinOrbitSpacing)
	case z.starRadius > p.MinStarRadius:
		z.starRadius = max(z.starRadius-step, p.MinStarRadius)
	default:
		return false
	}
	return true
}

// AverageSystemRadius is the footprint each star could claim if the usable
// area were split evenly, scaled to 80% of the theoretical maximum.
func AverageSystemRadius(p PlacementParams) float64 {
	if p.StarCount <= 0 {
		return 0
	}
	w := float64(p.Width - 2*p.Padding)
	h := float64(p.Height - 2*p.Padding)
	if w <= 0 || h <= 0 {
		return 0
	}
	areaPerStar := w * h / float64(p.StarCount)
	return math.Sqrt(areaPerStar/math.Pi) * 0.8
}

// Place runs the placement pass, appending every star that fits to g.
// Stars that cannot fit are skipped; placement never fails as a whole.
func Place(g *Galaxy, p PlacementParams, src entropy.Source) PlacementReport {
	report := PlacementReport{Requested: p.StarCount}
	avg := AverageSystemRadius(p)
	slog.Debug("placement started", "stars", p.StarCount, "avg_system_radius", avg)

	for i := 0; i < p.StarCount; i++ {
		star := placeOne(g, p, src, avg, i+1)
		if star == nil {
			report.Skipped = append(report.Skipped, i+1)
			continue
		}
		report.Placed++
		slog.Info("star placed",
			"index", i+1,
			"id", star.ID,
			"kind", star.Kind,
			"planets", len(star.Planets),
			"radius", star.Radius,
			"orbit_spacing", star.OrbitSpacing,
		)
	}

	if len(report.Skipped) > 0 {
		slog.Warn("placement incomplete", "requested", report.Requested, "placed", report.Placed)
	}
	return report
}

func placeOne(g *Galaxy, p PlacementParams, src entropy.Source, avg float64, index int) *Star {
	z := sizing{starRadius: p.MaxStarRadius, planets: p.MaxPlanets, spacing: p.BaseOrbitSpacing}
	warnedLarge := false

	for tries := 0; tries < p.MaxTries; tries++ {
		orbit := SystemRadius(z.starRadius, z.planets, z.spacing, p.MaxPlanetRadius)

		// Too large for its share of the area: shrink, or go ahead at the floor.
		if float64(orbit) > avg {
			if z.shrink(p) {
				continue
			}
			if !warnedLarge {
				slog.Warn("star system is large relative to available space", "index", index)
				warnedLarge = true
			}
		}

		minX := orbit + p.Padding
		maxX := p.Width - p.ReservedWidth - orbit - p.Padding
		minY := orbit + p.Padding
		maxY := p.Height - orbit - p.Padding

		if minX >= maxX || minY >= maxY {
			if z.shrink(p) {
				continue
			}
			slog.Warn("cannot place star system, too large for area", "index", index)
			return nil
		}

		for attempt := 0; attempt < p.PositionAttempts; attempt++ {
			x := float64(entropy.IntRange(src, minX, maxX))
			y := float64(entropy.IntRange(src, minY, maxY))
			if overlaps(g, x, y, orbit, p.Clearance) {
				continue
			}
			return buildStar(g, p, src, z, x, y)
		}

		z.shrink(p)
	}

	slog.Warn("failed to place star system", "index", index, "tries", p.MaxTries)
	return nil
}

// overlaps reports whether a system of radius orbit at (x, y) would come
// closer than clearance to any placed system.
func overlaps(g *Galaxy, x, y float64, orbit, clearance int) bool {
	for _, s := range g.Stars {
		if Distance(x, y, s.X, s.Y) < float64(orbit+s.MaxOrbitRadius()+clearance) {
			return true
		}
	}
	return false
}

func buildStar(g *Galaxy, p PlacementParams, src entropy.Source, z sizing, x, y float64) *Star {
	chance := p.VolatileChance
	if p.Nebula != nil {
		chance = p.Nebula.Density(x, y)
	}
	kind := StarStable
	if src.Float64() < chance {
		kind = StarVolatile
	}

	s := g.NewStar(kind, x, y, z.starRadius)
	s.OrbitSpacing = z.spacing
	s.MaxPlanetRadius = p.MaxPlanetRadius
	s.ExplosionPoints = entropy.IntRange(src, MinExplosionPoints, ExplosionThreshold)

	PopulatePlanets(g, s, z.planets, p, src)
	g.AddStar(s)
	return s
}

// PopulatePlanets lays out count orbit rings around s and puts one planet,
// with a fresh civilization, on each.
func PopulatePlanets(g *Galaxy, s *Star, count int, p PlacementParams, src entropy.Source) {
	s.OrbitDistances = s.OrbitDistances[:0]
	for j := 0; j < count; j++ {
		s.OrbitDistances = append(s.OrbitDistances, s.Radius+(j+1)*s.OrbitSpacing)
	}

	maxSize := min(p.MaxPlanetRadius, s.OrbitSpacing/2)
	for j := 0; j < count; j++ {
		civ := g.Civs.Spawn(src, p.MinPower, p.MaxPower)
		planet := &Planet{
			Slot:          j,
			OrbitDistance: float64(s.OrbitDistances[j]),
			Radius:        entropy.IntRange(src, p.MinPlanetRadius, maxSize),
			Speed:         OrbitSpeed(p.SpeedFactor, j, count),
			Angle:         src.Float64() * 2 * math.Pi,
			Civ:           civ.ID,
		}
		g.AddPlanet(s, planet)
	}
}
