// Package telemetry records per-tick civilization summaries to append-only sinks.
package telemetry

import (
	"errors"
	"log/slog"
)

// Header is the column layout of every telemetry sink.
var Header = []string{"Tick", "RemainingStars", "CivilizationID", "Color", "PlanetCount", "Power"}

// Row is one civilization's state at a recorded tick.
type Row struct {
	Tick           uint64 `json:"tick" db:"tick"`
	RemainingStars int    `json:"remaining_stars" db:"remaining_stars"`
	CivilizationID uint64 `json:"civilization_id" db:"civ_id"`
	Color          string `json:"color" db:"color"`
	PlanetCount    int    `json:"planet_count" db:"planet_count"`
	Power          int    `json:"power" db:"power"`
}

// Recorder is a telemetry sink. Record receives every row of one tick.
type Recorder interface {
	Record(rows []Row) error
	Close() error
}

// EventRecorder is implemented by sinks that also keep the event log.
type EventRecorder interface {
	RecordEvent(tick uint64, category, description string) error
}

// PlacementRecorder is implemented by sinks that track how many stars a run
// placed. It is called after every placement pass, including resets.
type PlacementRecorder interface {
	RecordPlacement(requested, placed int) error
}

// Multi fans rows out to several recorders. A failing sink does not stop the others.
type Multi []Recorder

// Record writes rows to every sink and joins their errors.
func (m Multi) Record(rows []Row) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordEvent forwards an event to every sink that keeps events.
func (m Multi) RecordEvent(tick uint64, category, description string) error {
	var errs []error
	for _, r := range m {
		if er, ok := r.(EventRecorder); ok {
			if err := er.RecordEvent(tick, category, description); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordPlacement forwards a placement outcome to every sink that tracks it.
func (m Multi) RecordPlacement(requested, placed int) error {
	var errs []error
	for _, r := range m {
		if pr, ok := r.(PlacementRecorder); ok {
			if err := pr.RecordPlacement(requested, placed); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			slog.Warn("telemetry sink close failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
