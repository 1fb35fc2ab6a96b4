package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCSVWriterAppendsRows(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC)

	w, err := NewRunCSVWriter(dir, started)
	if err != nil {
		t.Fatalf("NewRunCSVWriter: %v", err)
	}
	wantPath := filepath.Join(dir, "galaxy_simulation_20250304_050607.csv")
	if w.Path() != wantPath {
		t.Fatalf("Path() = %s, want %s", w.Path(), wantPath)
	}

	if err := w.Record([]Row{
		{Tick: 1, RemainingStars: 5, CivilizationID: 3, Color: "#FF0000", PlanetCount: 2, Power: 100},
		{Tick: 1, RemainingStars: 5, CivilizationID: 7, Color: "#00FF00", PlanetCount: 1, Power: 55},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Record([]Row{
		{Tick: 2, RemainingStars: 4, CivilizationID: 3, Color: "#FF0000", PlanetCount: 3, Power: 125},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"Tick,RemainingStars,CivilizationID,Color,PlanetCount,Power",
		"1,5,3,#FF0000,2,100",
		"1,5,7,#00FF00,1,55",
		"2,4,3,#FF0000,3,125",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

type stubRecorder struct {
	rows      int
	events    int
	placement [2]int
	err       error
	closed    bool
}

func (s *stubRecorder) Record(rows []Row) error {
	s.rows += len(rows)
	return s.err
}

func (s *stubRecorder) RecordEvent(tick uint64, category, description string) error {
	s.events++
	return nil
}

func (s *stubRecorder) RecordPlacement(requested, placed int) error {
	s.placement = [2]int{requested, placed}
	return nil
}

func (s *stubRecorder) Close() error {
	s.closed = true
	return nil
}

type rowsOnly struct{ rows int }

func (r *rowsOnly) Record(rows []Row) error { r.rows += len(rows); return nil }
func (r *rowsOnly) Close() error            { return nil }

func TestMultiContinuesPastFailingSink(t *testing.T) {
	bad := &stubRecorder{err: errors.New("disk full")}
	good := &rowsOnly{}
	m := Multi{bad, good}

	err := m.Record([]Row{{Tick: 1}, {Tick: 1}})
	if err == nil {
		t.Fatal("expected joined error from failing sink")
	}
	if good.rows != 2 {
		t.Errorf("healthy sink got %d rows, want 2", good.rows)
	}

	if err := m.RecordEvent(1, "explosion", "boom"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if bad.events != 1 {
		t.Errorf("event sink got %d events, want 1", bad.events)
	}

	if err := m.RecordPlacement(6, 4); err != nil {
		t.Fatalf("RecordPlacement: %v", err)
	}
	if bad.placement != [2]int{6, 4} {
		t.Errorf("placement sink got %v, want [6 4]", bad.placement)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bad.closed {
		t.Error("sink not closed")
	}
}
