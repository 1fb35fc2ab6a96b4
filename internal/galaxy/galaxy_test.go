package galaxy

import (
	"math"
	"testing"

	"github.com/talgya/galaxy-sim/internal/entropy"
)

func TestStarKindIncrement(t *testing.T) {
	tests := []struct {
		kind  StarKind
		start int
		ticks int
		want  int
	}{
		{StarStable, 40, 500, 40},
		{StarVolatile, 40, 10, 50},
		{StarVolatile, 99, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			s := &Star{Kind: tt.kind, ExplosionPoints: tt.start}
			prev := s.ExplosionPoints
			for i := 0; i < tt.ticks; i++ {
				s.Accumulate()
				if s.ExplosionPoints < prev {
					t.Fatalf("explosion points decreased: %d -> %d", prev, s.ExplosionPoints)
				}
				prev = s.ExplosionPoints
			}
			if s.ExplosionPoints != tt.want {
				t.Errorf("ExplosionPoints = %d, want %d", s.ExplosionPoints, tt.want)
			}
		})
	}
}

func TestCanExplode(t *testing.T) {
	s := &Star{Kind: StarVolatile, ExplosionPoints: 99}
	if s.CanExplode() {
		t.Fatal("star at 99 should not explode yet")
	}
	s.Accumulate()
	if !s.CanExplode() {
		t.Fatal("star at 100 should be able to explode")
	}
}

func TestPlanetPosition(t *testing.T) {
	s := &Star{X: 100, Y: 200}
	p := &Planet{OrbitDistance: 50, Angle: math.Pi / 2}

	x, y := p.Position(s)
	if math.Abs(x-100) > 1e-9 || math.Abs(y-250) > 1e-9 {
		t.Errorf("Position() = (%.3f, %.3f), want (100, 250)", x, y)
	}

	p.Speed = math.Pi / 2
	p.Advance()
	x, y = p.Position(s)
	if math.Abs(x-50) > 1e-9 || math.Abs(y-200) > 1e-9 {
		t.Errorf("after Advance Position() = (%.3f, %.3f), want (50, 200)", x, y)
	}
}

func TestRemoveStarDetachesPlanetsAndReleasesCivs(t *testing.T) {
	g := New()
	p := DefaultPlacementParams()
	src := entropy.New(1)

	doomed := g.NewStar(StarVolatile, 300, 300, 45)
	doomed.OrbitSpacing = 40
	PopulatePlanets(g, doomed, 3, p, src)
	g.AddStar(doomed)

	survivor := g.NewStar(StarStable, 900, 300, 45)
	survivor.OrbitSpacing = 40
	PopulatePlanets(g, survivor, 2, p, src)
	g.AddStar(survivor)

	// A survivor planet conquered into a doomed-star civilization keeps it alive.
	shared := doomed.Planets[0].Civ
	survivor.Planets[0].Civ = shared

	doomedIDs := make([]PlanetID, 0, len(doomed.Planets))
	for _, pl := range doomed.Planets {
		doomedIDs = append(doomedIDs, pl.ID)
	}

	released := g.RemoveStar(doomed.ID)

	if len(g.Stars) != 1 || g.Stars[0].ID != survivor.ID {
		t.Fatalf("stars after removal = %d, want only survivor", len(g.Stars))
	}
	if g.Star(doomed.ID) != nil {
		t.Error("doomed star still indexed")
	}
	for _, id := range doomedIDs {
		if _, ok := g.PlanetIndex[id]; ok {
			t.Errorf("planet %d still in planet index", id)
		}
	}
	if g.PlanetCount() != 2 {
		t.Errorf("PlanetCount() = %d, want 2", g.PlanetCount())
	}
	if g.Civs.Get(shared) == nil {
		t.Error("civilization still owning a survivor planet was released")
	}
	if len(released) != 2 {
		t.Errorf("released %v, want the 2 civilizations only the doomed star held", released)
	}
	for _, id := range released {
		if g.Civs.Get(id) != nil {
			t.Errorf("released civ %d still in table", id)
		}
	}
}
