// Package metrics exposes simulation counters and gauges to Prometheus.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the galaxy simulation metrics. A nil Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	TicksTotal        prometheus.Counter
	InteractionsTotal *prometheus.CounterVec // outcome: conquest | repelled
	ExplosionsTotal   prometheus.Counter
	PlacementSkipped  prometheus.Counter
	Stars             prometheus.Gauge
	Planets           prometheus.Gauge
	Civilizations     prometheus.Gauge
}

// NewCollector registers the galaxy metrics against reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_ticks_total",
			Help: "Simulation ticks processed.",
		}),
		InteractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "galaxy_interactions_total",
			Help: "Planet interactions resolved, by outcome.",
		}, []string{"outcome"}),
		ExplosionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_star_explosions_total",
			Help: "Stars destroyed by explosion.",
		}),
		PlacementSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_placement_skipped_total",
			Help: "Stars that could not be placed.",
		}),
		Stars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_stars",
			Help: "Stars currently in the galaxy.",
		}),
		Planets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_planets",
			Help: "Planets currently in the galaxy.",
		}),
		Civilizations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_civilizations",
			Help: "Civilizations still owning at least one planet.",
		}),
	}

	for name, col := range map[string]prometheus.Collector{
		"galaxy_ticks_total":             c.TicksTotal,
		"galaxy_interactions_total":      c.InteractionsTotal,
		"galaxy_star_explosions_total":   c.ExplosionsTotal,
		"galaxy_placement_skipped_total": c.PlacementSkipped,
		"galaxy_stars":                   c.Stars,
		"galaxy_planets":                 c.Planets,
		"galaxy_civilizations":           c.Civilizations,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	return c, nil
}

// Gatherer returns the gatherer the collector registered with.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// IncTick counts one processed tick.
func (c *Collector) IncTick() {
	if c == nil {
		return
	}
	c.TicksTotal.Inc()
}

// ObserveInteraction counts one interaction outcome.
func (c *Collector) ObserveInteraction(conquest bool) {
	if c == nil {
		return
	}
	outcome := "repelled"
	if conquest {
		outcome = "conquest"
	}
	c.InteractionsTotal.WithLabelValues(outcome).Inc()
}

// AddExplosions counts destroyed stars.
func (c *Collector) AddExplosions(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ExplosionsTotal.Add(float64(n))
}

// AddPlacementSkipped counts stars that did not fit.
func (c *Collector) AddPlacementSkipped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.PlacementSkipped.Add(float64(n))
}

// SetPopulation updates the star, planet and civilization gauges.
func (c *Collector) SetPopulation(stars, planets, civs int) {
	if c == nil {
		return
	}
	c.Stars.Set(float64(stars))
	c.Planets.Set(float64(planets))
	c.Civilizations.Set(float64(civs))
}
