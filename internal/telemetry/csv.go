package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVWriter appends telemetry rows to one CSV file per run.
type CSVWriter struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// FileName returns the per-run file name for a run started at t.
func FileName(t time.Time) string {
	return "galaxy_simulation_" + t.Format("20060102_150405") + ".csv"
}

// NewCSVWriter creates (or truncates) path and writes the header line.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create telemetry file: %w", err)
	}

	cw := &CSVWriter{path: path, f: f, w: csv.NewWriter(f)}
	if err := cw.w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return cw, nil
}

// NewRunCSVWriter creates the telemetry file for a run inside dir.
func NewRunCSVWriter(dir string, started time.Time) (*CSVWriter, error) {
	return NewCSVWriter(filepath.Join(dir, FileName(started)))
}

// Path returns the file being written.
func (c *CSVWriter) Path() string {
	return c.path
}

// Record appends rows and flushes them to disk.
func (c *CSVWriter) Record(rows []Row) error {
	for _, r := range rows {
		rec := []string{
			strconv.FormatUint(r.Tick, 10),
			strconv.Itoa(r.RemainingStars),
			strconv.FormatUint(r.CivilizationID, 10),
			r.Color,
			strconv.Itoa(r.PlanetCount),
			strconv.Itoa(r.Power),
		}
		if err := c.w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
