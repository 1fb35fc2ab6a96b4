package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.IncTick()
	c.IncTick()
	c.ObserveInteraction(true)
	c.ObserveInteraction(false)
	c.ObserveInteraction(false)
	c.AddExplosions(2)
	c.AddPlacementSkipped(3)
	c.SetPopulation(4, 12, 9)

	if got := testutil.ToFloat64(c.TicksTotal); got != 2 {
		t.Errorf("galaxy_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.InteractionsTotal.WithLabelValues("conquest")); got != 1 {
		t.Errorf("conquests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.InteractionsTotal.WithLabelValues("repelled")); got != 2 {
		t.Errorf("repelled = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ExplosionsTotal); got != 2 {
		t.Errorf("explosions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PlacementSkipped); got != 3 {
		t.Errorf("placement skipped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.Planets); got != 12 {
		t.Errorf("planets gauge = %v, want 12", got)
	}
	if c.Gatherer() != reg {
		t.Error("Gatherer() should return the registry passed in")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.IncTick()
	c.ObserveInteraction(true)
	c.AddExplosions(1)
	c.AddPlacementSkipped(1)
	c.SetPopulation(1, 1, 1)
	if c.Gatherer() != nil {
		t.Error("nil collector should have nil gatherer")
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}
