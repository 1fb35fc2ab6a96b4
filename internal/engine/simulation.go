// Simulation ties the galaxy graph to the per-tick systems and the telemetry sinks.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/galaxy-sim/internal/entropy"
	"github.com/talgya/galaxy-sim/internal/galaxy"
	"github.com/talgya/galaxy-sim/internal/metrics"
	"github.com/talgya/galaxy-sim/internal/telemetry"
)

// Scope selects which planet pairs may interact.
type Scope uint8

const (
	ScopeStar   Scope = iota // Only planets orbiting the same star
	ScopeGlobal              // Any two planets in the galaxy
)

// ParseScope maps "star" / "global" to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "star", "":
		return ScopeStar, nil
	case "global":
		return ScopeGlobal, nil
	default:
		return ScopeStar, fmt.Errorf("unknown interaction scope %q", s)
	}
}

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "star"
}

// Settings tunes the per-tick systems.
type Settings struct {
	Scope                Scope
	InteractionRange     float64 // Added to both planet radii to get the trigger distance
	InteractionChance    int     // Percent chance per eligible pair per interaction scan
	AttackerWinsTies     bool
	PowerDisplayDuration int // Ticks a power overlay stays visible

	InteractionEvery uint64 // Ticks between interaction scans
	ExplosionEvery   uint64 // Ticks between explosion scans
	RecordEvery      uint64 // Ticks between telemetry snapshots (0 = never)
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		Scope:                ScopeStar,
		InteractionRange:     200,
		InteractionChance:    2,
		AttackerWinsTies:     true,
		PowerDisplayDuration: 120,
		InteractionEvery:     30,
		ExplosionEvery:       1,
		RecordEvery:          30,
	}
}

// Event is a notable occurrence in the galaxy.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "conquest", "skirmish", "explosion", "placement", "reset"
}

const maxEvents = 1000

// SimStats tracks cumulative counts for the run.
type SimStats struct {
	Interactions int `json:"interactions"`
	Conquests    int `json:"conquests"`
	Explosions   int `json:"explosions"`
}

// TickResult summarizes what one tick did.
type TickResult struct {
	Tick         uint64
	Interactions int
	Conquests    int
	Exploded     []galaxy.StarID
	Recorded     bool
}

// Simulation holds the galaxy and runs the per-tick systems. AdvanceOneTick is
// the only writer; readers go through Snapshot.
type Simulation struct {
	mu sync.RWMutex

	Galaxy    *galaxy.Galaxy
	Placement galaxy.PlacementParams
	Report    galaxy.PlacementReport
	Settings  Settings
	LastTick  uint64
	Events    []Event
	Stats     SimStats

	Recorder telemetry.Recorder // Optional
	Metrics  *metrics.Collector // Optional

	rng entropy.Source
}

// Option configures a Simulation at construction.
type Option func(*Simulation)

// WithRecorder attaches a telemetry sink.
func WithRecorder(r telemetry.Recorder) Option {
	return func(s *Simulation) { s.Recorder = r }
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Simulation) { s.Metrics = m }
}

// NewSimulation places a fresh galaxy and returns a simulation ready to tick.
func NewSimulation(params galaxy.PlacementParams, settings Settings, rng entropy.Source, opts ...Option) *Simulation {
	s := &Simulation{
		Placement: params,
		Settings:  settings,
		rng:       rng,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.build()
	return s
}

func (s *Simulation) build() {
	s.Galaxy = galaxy.New()
	s.Report = galaxy.Place(s.Galaxy, s.Placement, s.rng)

	for _, idx := range s.Report.Skipped {
		s.emit(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("star system #%d could not be placed", idx),
			Category:    "placement",
		})
	}
	if pr, ok := s.Recorder.(telemetry.PlacementRecorder); ok {
		if err := pr.RecordPlacement(s.Report.Requested, s.Report.Placed); err != nil {
			slog.Warn("placement record failed", "error", err)
		}
	}
	s.Metrics.AddPlacementSkipped(len(s.Report.Skipped))
	s.updateGauges()

	slog.Info("galaxy ready",
		"stars", len(s.Galaxy.Stars),
		"planets", s.Galaxy.PlanetCount(),
		"civilizations", s.Galaxy.Civs.Len(),
		"skipped", len(s.Report.Skipped),
	)
}

// Reset rebuilds the galaxy with new placement parameters. The tick counter,
// event log and statistics carry on, so the run's telemetry keeps increasing
// ticks.
func (s *Simulation) Reset(params galaxy.PlacementParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Placement = params
	s.emit(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("galaxy reset with %d stars requested", params.StarCount),
		Category:    "reset",
	})
	s.build()
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// AdvanceOneTick runs one tick in strict order: positions, explosion points,
// interactions, explosions, power-display decay, telemetry.
func (s *Simulation) AdvanceOneTick() TickResult {
	s.mu.Lock()
	s.LastTick++
	tick := s.LastTick
	res := TickResult{Tick: tick}

	s.updatePositions()
	s.accumulateExplosionPoints()

	if every(tick, s.Settings.InteractionEvery) {
		res.Interactions, res.Conquests = s.resolveInteractions()
	}
	if every(tick, s.Settings.ExplosionEvery) {
		res.Exploded = s.explodeStars()
	}
	s.decayPowerDisplays()

	var rows []telemetry.Row
	if s.Recorder != nil && s.Settings.RecordEvery > 0 && tick%s.Settings.RecordEvery == 0 {
		rows = s.civSummaries()
		res.Recorded = true
	}

	s.Metrics.IncTick()
	s.updateGauges()
	s.mu.Unlock()

	if res.Recorded {
		if err := s.Recorder.Record(rows); err != nil {
			slog.Error("telemetry record failed", "tick", tick, "error", err)
		}
	}
	return res
}

// every reports whether tick lands on a period. A zero period never fires.
func every(tick, period uint64) bool {
	return period > 0 && tick%period == 0
}

func (s *Simulation) updatePositions() {
	for _, star := range s.Galaxy.Stars {
		for _, p := range star.Planets {
			p.Advance()
		}
	}
}

func (s *Simulation) decayPowerDisplays() {
	for _, star := range s.Galaxy.Stars {
		for _, p := range star.Planets {
			if p.PowerDisplay > 0 {
				p.PowerDisplay--
			}
		}
	}
}

func (s *Simulation) updateGauges() {
	s.Metrics.SetPopulation(len(s.Galaxy.Stars), s.Galaxy.PlanetCount(), s.Galaxy.Civs.Len())
}

// emit records an event in memory and forwards it to sinks that keep events.
// Caller holds the write lock.
func (s *Simulation) emit(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	if er, ok := s.Recorder.(telemetry.EventRecorder); ok {
		if err := er.RecordEvent(e.Tick, e.Category, e.Description); err != nil {
			slog.Warn("event record failed", "category", e.Category, "error", err)
		}
	}
}
