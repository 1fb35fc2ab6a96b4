// Package persistence provides SQLite storage for run telemetry: civilization
// snapshots, the event log and per-run metadata.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/galaxy-sim/internal/telemetry"
)

// DB wraps a SQLite connection and the run it records.
type DB struct {
	conn  *sqlx.DB
	runID uuid.UUID
}

// Run is one simulation run.
type Run struct {
	ID             string `db:"id" json:"id"`
	StartedAt      string `db:"started_at" json:"started_at"`
	EndedAt        string `db:"ended_at" json:"ended_at,omitempty"`
	Seed           int64  `db:"seed" json:"seed"`
	StarsRequested int    `db:"stars_requested" json:"stars_requested"`
	StarsPlaced    int    `db:"stars_placed" json:"stars_placed"`
	LastTick       uint64 `db:"last_tick" json:"last_tick"`
}

// EventRow is a stored event.
type EventRow struct {
	Tick        uint64 `db:"tick" json:"tick"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}

// Open opens or creates a SQLite database at the given path. Rows written
// through the returned DB are tagged with runID.
func Open(path string, runID uuid.UUID) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, runID: runID}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// RunID returns the run this DB records.
func (db *DB) RunID() uuid.UUID {
	return db.runID
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL DEFAULT '',
		seed INTEGER NOT NULL,
		stars_requested INTEGER NOT NULL,
		stars_placed INTEGER NOT NULL,
		last_tick INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS civ_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		remaining_stars INTEGER NOT NULL,
		civ_id INTEGER NOT NULL,
		color TEXT NOT NULL,
		planet_count INTEGER NOT NULL,
		power INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_run_tick ON civ_snapshots(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun registers the run with its seed and placement outcome.
func (db *DB) StartRun(started time.Time, seed int64, requested, placed int) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, started_at, seed, stars_requested, stars_placed) VALUES (?, ?, ?, ?, ?)`,
		db.runID.String(), started.UTC().Format(time.RFC3339), seed, requested, placed,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	slog.Info("run registered", "run_id", db.runID, "seed", seed)
	return nil
}

// RecordPlacement updates the run's star counts after a placement pass. It is
// a no-op until StartRun has registered the run.
func (db *DB) RecordPlacement(requested, placed int) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET stars_requested = ?, stars_placed = ? WHERE id = ?`,
		requested, placed, db.runID.String(),
	)
	if err != nil {
		return fmt.Errorf("record placement: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and last tick.
func (db *DB) FinishRun(ended time.Time, lastTick uint64) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET ended_at = ?, last_tick = ? WHERE id = ?`,
		ended.UTC().Format(time.RFC3339), int64(lastTick), db.runID.String(),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Record appends one tick of civilization rows.
func (db *DB) Record(rows []telemetry.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO civ_snapshots
		(run_id, tick, remaining_stars, civ_id, color, planet_count, power)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	run := db.runID.String()
	for _, r := range rows {
		if _, err := stmt.Exec(run, int64(r.Tick), r.RemainingStars, int64(r.CivilizationID),
			r.Color, r.PlanetCount, r.Power); err != nil {
			return fmt.Errorf("insert snapshot civ %d: %w", r.CivilizationID, err)
		}
	}

	return tx.Commit()
}

// RecordEvent appends one event to the log.
func (db *DB) RecordEvent(tick uint64, category, description string) error {
	_, err := db.conn.Exec(
		"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
		db.runID.String(), int64(tick), description, category,
	)
	return err
}

// SaveMeta stores a key-value pair for the current run.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		db.runID.String(), key, value,
	)
	return err
}

// GetMeta retrieves a metadata value for the current run.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", db.runID.String(), key)
	return value, err
}

// Snapshots returns the civilization rows recorded for a run at one tick.
func (db *DB) Snapshots(runID uuid.UUID, tick uint64) ([]telemetry.Row, error) {
	var rows []telemetry.Row
	err := db.conn.Select(&rows,
		`SELECT tick, remaining_stars, civ_id, color, planet_count, power
		 FROM civ_snapshots WHERE run_id = ? AND tick = ? ORDER BY civ_id`,
		runID.String(), int64(tick),
	)
	return rows, err
}

// RecentEvents returns the most recent events of the current run, newest
// first. A non-empty category restricts the result to that category.
func (db *DB) RecentEvents(limit int, category string) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		`SELECT tick, description, category FROM events
		 WHERE run_id = ? AND (? = '' OR category = ?)
		 ORDER BY id DESC LIMIT ?`,
		db.runID.String(), category, category, limit,
	)
	return events, err
}

// Runs lists every recorded run, oldest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, started_at, ended_at, seed, stars_requested, stars_placed, last_tick FROM runs ORDER BY started_at, id",
	)
	return runs, err
}
