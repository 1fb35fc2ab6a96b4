package engine

import (
	"testing"

	"github.com/talgya/galaxy-sim/internal/entropy"
	"github.com/talgya/galaxy-sim/internal/galaxy"
	"github.com/talgya/galaxy-sim/internal/telemetry"
)

// testSim wraps a hand-built galaxy so tests control every star and planet.
func testSim(settings Settings) *Simulation {
	return &Simulation{
		Galaxy:   galaxy.New(),
		Settings: settings,
		rng:      entropy.New(7),
	}
}

func addStar(s *Simulation, kind galaxy.StarKind, x, y float64, points int) *galaxy.Star {
	star := s.Galaxy.NewStar(kind, x, y, 20)
	star.OrbitSpacing = 40
	star.MaxPlanetRadius = 15
	star.ExplosionPoints = points
	s.Galaxy.AddStar(star)
	return star
}

// addPlanet puts a stationary planet at angle 0 owned by a new civilization.
func addPlanet(s *Simulation, star *galaxy.Star, orbit float64, power int) *galaxy.Planet {
	civ := s.Galaxy.Civs.Spawn(entropy.New(1), power, power)
	p := &galaxy.Planet{
		Slot:          len(star.Planets),
		OrbitDistance: orbit,
		Radius:        10,
		Civ:           civ.ID,
	}
	s.Galaxy.AddPlanet(star, p)
	star.OrbitDistances = append(star.OrbitDistances, int(orbit))
	return p
}

func alwaysInteract() Settings {
	st := DefaultSettings()
	st.InteractionChance = 100
	st.InteractionEvery = 1
	return st
}

type stubRecorder struct {
	batches    [][]telemetry.Row
	events     []string
	placements [][2]int
	closed     bool
}

func (r *stubRecorder) Record(rows []telemetry.Row) error {
	r.batches = append(r.batches, rows)
	return nil
}

func (r *stubRecorder) RecordEvent(_ uint64, category, _ string) error {
	r.events = append(r.events, category)
	return nil
}

func (r *stubRecorder) RecordPlacement(requested, placed int) error {
	r.placements = append(r.placements, [2]int{requested, placed})
	return nil
}

func (r *stubRecorder) Close() error {
	r.closed = true
	return nil
}

func TestVolatileStarExplodesAtThreshold(t *testing.T) {
	sim := testSim(DefaultSettings())
	star := addStar(sim, galaxy.StarVolatile, 300, 300, 99)
	p := addPlanet(sim, star, 60, 70)

	res := sim.AdvanceOneTick()

	if len(res.Exploded) != 1 || res.Exploded[0] != star.ID {
		t.Fatalf("Exploded = %v, want [%d]", res.Exploded, star.ID)
	}
	if len(sim.Galaxy.Stars) != 0 {
		t.Errorf("stars left = %d, want 0", len(sim.Galaxy.Stars))
	}
	if _, ok := sim.Galaxy.PlanetIndex[p.ID]; ok {
		t.Error("planet of exploded star still indexed")
	}
	if sim.Galaxy.Civs.Len() != 0 {
		t.Errorf("civilizations left = %d, want 0", sim.Galaxy.Civs.Len())
	}
	if sim.Stats.Explosions != 1 {
		t.Errorf("Stats.Explosions = %d, want 1", sim.Stats.Explosions)
	}
}

func TestStableStarNeverExplodes(t *testing.T) {
	sim := testSim(DefaultSettings())
	star := addStar(sim, galaxy.StarStable, 300, 300, 50)
	addPlanet(sim, star, 60, 70)

	for i := 0; i < 500; i++ {
		if res := sim.AdvanceOneTick(); len(res.Exploded) != 0 {
			t.Fatalf("tick %d: stable star exploded", res.Tick)
		}
	}
	if star.ExplosionPoints != 50 {
		t.Errorf("ExplosionPoints = %d, want 50", star.ExplosionPoints)
	}
}

func TestVolatileStarCountsUp(t *testing.T) {
	sim := testSim(DefaultSettings())
	star := addStar(sim, galaxy.StarVolatile, 300, 300, 10)

	for i := 0; i < 5; i++ {
		sim.AdvanceOneTick()
	}
	if star.ExplosionPoints != 15 {
		t.Errorf("ExplosionPoints = %d, want 15", star.ExplosionPoints)
	}
}

func TestConquestMergesPower(t *testing.T) {
	sim := testSim(alwaysInteract())
	star := addStar(sim, galaxy.StarStable, 500, 500, 1)
	strong := addPlanet(sim, star, 50, 80)
	weak := addPlanet(sim, star, 90, 50)
	weakCiv := weak.Civ

	// Coin flips pick the attacker; only the 80 side can win.
	for i := 0; i < 64 && sim.Stats.Conquests == 0; i++ {
		sim.resolveInteractions()
	}
	if sim.Stats.Conquests != 1 {
		t.Fatalf("no conquest after repeated scans (interactions=%d)", sim.Stats.Interactions)
	}
	if weak.Civ != strong.Civ {
		t.Errorf("weak planet civ = %d, want %d", weak.Civ, strong.Civ)
	}
	if got := sim.Galaxy.Civs.Get(strong.Civ).Power; got != 100 {
		t.Errorf("merged power = %d, want 100", got)
	}
	if sim.Galaxy.Civs.Get(weakCiv) != nil {
		t.Error("defeated civilization with no planets should be released")
	}

	before := sim.Stats.Interactions
	sim.resolveInteractions()
	if sim.Stats.Interactions != before {
		t.Error("planets of the same civilization should not interact")
	}
}

func TestStrictTiesNeverConquer(t *testing.T) {
	st := alwaysInteract()
	st.AttackerWinsTies = false
	sim := testSim(st)
	star := addStar(sim, galaxy.StarStable, 500, 500, 1)
	a := addPlanet(sim, star, 50, 60)
	b := addPlanet(sim, star, 90, 60)

	for i := 0; i < 10; i++ {
		sim.resolveInteractions()
	}
	if sim.Stats.Interactions != 10 || sim.Stats.Conquests != 0 {
		t.Errorf("interactions=%d conquests=%d, want 10 and 0",
			sim.Stats.Interactions, sim.Stats.Conquests)
	}
	if a.Civ == b.Civ {
		t.Error("tie should not change ownership")
	}
	if a.PowerDisplay != st.PowerDisplayDuration || b.PowerDisplay != st.PowerDisplayDuration {
		t.Errorf("power displays = %d/%d, want %d", a.PowerDisplay, b.PowerDisplay, st.PowerDisplayDuration)
	}
}

func TestOutOfRangePairsIgnored(t *testing.T) {
	st := alwaysInteract()
	st.InteractionRange = 5
	sim := testSim(st)
	star := addStar(sim, galaxy.StarStable, 500, 500, 1)
	addPlanet(sim, star, 50, 60)
	addPlanet(sim, star, 130, 60)

	sim.resolveInteractions()
	if sim.Stats.Interactions != 0 {
		t.Errorf("interactions = %d, want 0 for planets 80 apart with reach 25", sim.Stats.Interactions)
	}
}

func TestScopeLimitsPairs(t *testing.T) {
	build := func(scope Scope) *Simulation {
		st := alwaysInteract()
		st.Scope = scope
		st.AttackerWinsTies = false
		sim := testSim(st)
		left := addStar(sim, galaxy.StarStable, 100, 100, 1)
		right := addStar(sim, galaxy.StarStable, 300, 100, 1)
		addPlanet(sim, left, 50, 60)
		addPlanet(sim, right, 50, 60)
		return sim
	}

	star := build(ScopeStar)
	star.resolveInteractions()
	if star.Stats.Interactions != 0 {
		t.Errorf("star scope: interactions = %d, want 0 across systems", star.Stats.Interactions)
	}

	global := build(ScopeGlobal)
	global.resolveInteractions()
	if global.Stats.Interactions != 1 {
		t.Errorf("global scope: interactions = %d, want 1", global.Stats.Interactions)
	}
}

func TestPowerDisplayDecaysAfterInteraction(t *testing.T) {
	st := alwaysInteract()
	st.AttackerWinsTies = false
	sim := testSim(st)
	star := addStar(sim, galaxy.StarStable, 500, 500, 1)
	a := addPlanet(sim, star, 50, 60)
	addPlanet(sim, star, 90, 60)

	sim.AdvanceOneTick()
	// Decay runs after interactions in the same tick.
	if a.PowerDisplay != st.PowerDisplayDuration-1 {
		t.Errorf("PowerDisplay = %d, want %d", a.PowerDisplay, st.PowerDisplayDuration-1)
	}
}

func TestInteractionCadence(t *testing.T) {
	st := alwaysInteract()
	st.InteractionEvery = 30
	st.AttackerWinsTies = false
	sim := testSim(st)
	star := addStar(sim, galaxy.StarStable, 500, 500, 1)
	addPlanet(sim, star, 50, 60)
	addPlanet(sim, star, 90, 60)

	for i := 0; i < 90; i++ {
		sim.AdvanceOneTick()
	}
	if sim.Stats.Interactions != 3 {
		t.Errorf("interactions over 90 ticks = %d, want 3", sim.Stats.Interactions)
	}
}

func TestRecorderReceivesSortedRows(t *testing.T) {
	st := DefaultSettings()
	st.RecordEvery = 2
	sim := testSim(st)
	rec := &stubRecorder{}
	sim.Recorder = rec
	star := addStar(sim, galaxy.StarStable, 300, 300, 1)
	addPlanet(sim, star, 50, 70)
	addPlanet(sim, star, 90, 80)

	for i := 0; i < 4; i++ {
		sim.AdvanceOneTick()
	}
	if len(rec.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(rec.batches))
	}
	rows := rec.batches[1]
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].CivilizationID >= rows[1].CivilizationID {
		t.Errorf("rows not sorted by civilization: %d, %d", rows[0].CivilizationID, rows[1].CivilizationID)
	}
	if rows[0].Tick != 4 || rows[0].RemainingStars != 1 || rows[0].PlanetCount != 1 {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[0].Power != 70 || len(rows[0].Color) != 7 {
		t.Errorf("row power/color = %d/%q", rows[0].Power, rows[0].Color)
	}
}

func TestExplosionEventForwarded(t *testing.T) {
	sim := testSim(DefaultSettings())
	rec := &stubRecorder{}
	sim.Recorder = rec
	addStar(sim, galaxy.StarVolatile, 300, 300, 99)

	sim.AdvanceOneTick()
	if len(rec.events) != 1 || rec.events[0] != "explosion" {
		t.Errorf("events = %v, want [explosion]", rec.events)
	}
	if got := sim.RecentEvents(10); len(got) != 1 || got[0].Tick != 1 {
		t.Errorf("RecentEvents = %+v", got)
	}
}

func TestNewSimulationPlacesGalaxy(t *testing.T) {
	params := galaxy.DefaultPlacementParams()
	rec := &stubRecorder{}
	sim := NewSimulation(params, DefaultSettings(), entropy.New(42), WithRecorder(rec))

	if sim.Report.Placed != len(sim.Galaxy.Stars) {
		t.Errorf("Report.Placed = %d, stars = %d", sim.Report.Placed, len(sim.Galaxy.Stars))
	}
	if sim.Report.Placed+len(sim.Report.Skipped) != params.StarCount {
		t.Errorf("placed %d + skipped %d != %d", sim.Report.Placed, len(sim.Report.Skipped), params.StarCount)
	}
	if sim.Galaxy.Civs.Len() != sim.Galaxy.PlanetCount() {
		t.Errorf("civilizations = %d, planets = %d; each planet starts with its own",
			sim.Galaxy.Civs.Len(), sim.Galaxy.PlanetCount())
	}

	for i := 0; i < 10; i++ {
		sim.AdvanceOneTick()
	}
	sim.Reset(params)
	if sim.CurrentTick() != 10 {
		t.Errorf("after Reset tick = %d, want 10", sim.CurrentTick())
	}
}

func TestResetKeepsTelemetryTicksIncreasing(t *testing.T) {
	params := galaxy.DefaultPlacementParams()
	params.VolatileChance = 0
	settings := DefaultSettings()
	settings.RecordEvery = 2
	rec := &stubRecorder{}
	sim := NewSimulation(params, settings, entropy.New(3), WithRecorder(rec))

	for i := 0; i < 4; i++ {
		sim.AdvanceOneTick()
	}
	params.StarCount = 3
	sim.Reset(params)
	for i := 0; i < 4; i++ {
		sim.AdvanceOneTick()
	}

	var ticks []uint64
	for _, batch := range rec.batches {
		if len(batch) == 0 {
			t.Fatal("recorded an empty batch")
		}
		ticks = append(ticks, batch[0].Tick)
	}
	want := []uint64{2, 4, 6, 8}
	if len(ticks) != len(want) {
		t.Fatalf("recorded ticks %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("recorded ticks %v, want %v", ticks, want)
		}
	}

	if len(rec.placements) != 2 {
		t.Fatalf("placements = %v, want one per placement pass", rec.placements)
	}
	if last := rec.placements[1]; last[0] != 3 || last[1] != sim.Report.Placed {
		t.Errorf("placement after reset = %v, want [3 %d]", last, sim.Report.Placed)
	}

	var resets int
	for _, e := range sim.RecentEvents(0) {
		if e.Category == "reset" {
			resets++
			if e.Tick != 4 {
				t.Errorf("reset event at tick %d, want 4", e.Tick)
			}
		}
	}
	if resets != 1 {
		t.Errorf("reset events = %d, want 1", resets)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	sim := testSim(DefaultSettings())
	star := addStar(sim, galaxy.StarStable, 300, 300, 5)
	addPlanet(sim, star, 50, 70)

	snap := sim.Snapshot()
	if len(snap.Stars) != 1 || len(snap.Stars[0].Planets) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	pv := snap.Stars[0].Planets[0]
	if pv.X != 350 || pv.Y != 300 || pv.Power != 70 {
		t.Errorf("planet view = %+v", pv)
	}
	if snap.Stars[0].Kind != "stable" {
		t.Errorf("kind = %q", snap.Stars[0].Kind)
	}

	snap.Stars[0].OrbitDistances[0] = 999
	if star.OrbitDistances[0] == 999 {
		t.Error("snapshot shares orbit slice with the galaxy")
	}

	if _, ok := sim.StarSnapshot(star.ID); !ok {
		t.Error("StarSnapshot missed an existing star")
	}
	if _, ok := sim.StarSnapshot(star.ID + 100); ok {
		t.Error("StarSnapshot found a missing star")
	}
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"star": ScopeStar, "": ScopeStar, "global": ScopeGlobal} {
		got, err := ParseScope(in)
		if err != nil || got != want {
			t.Errorf("ParseScope(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseScope("galactic"); err == nil {
		t.Error("ParseScope should reject unknown scopes")
	}
}
