package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/talgya/galaxy-sim/internal/engine"
)

func logger() *slog.Logger { return slog.Default().With("component", "config") }

// Parameters in the order they are applied, each with its accepted names in
// lookup order. Planet bounds are checked against each other, so the order is
// fixed rather than taken from the file.
var parameters = []struct {
	key   string
	names []string
}{
	{"stars", []string{"stars", "starscount", "starcount", "star"}},
	{"minplanets", []string{"minplanets", "minplanetsperstar", "minplanet"}},
	{"maxplanets", []string{"maxplanets", "maxplanetsperstar", "maxplanet"}},
	{"speed", []string{"speed", "simulationspeed", "simspeed"}},
}

// Canonical parameter names, keyed by every accepted alias.
var aliases = func() map[string]string {
	m := make(map[string]string)
	for _, p := range parameters {
		for _, n := range p.names {
			m[n] = p.key
		}
	}
	return m
}()

// LineError describes one rejected line of a parameter file.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// LoadCSV reads a parameter,value file on top of the current values.
func (c *Config) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	issues, err := c.Parse(f)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	logger().Info("config loaded", "path", path, "rejected_lines", len(issues))
	return nil
}

// Parse reads parameter,value lines from r, then applies them in the fixed
// parameter order. A later line for the same name replaces an earlier one. For
// a parameter given under several aliases, the first alias whose value is in
// range wins. Bad lines are skipped, logged and returned; the previous value of
// that parameter is kept.
func (c *Config) Parse(r io.Reader) ([]*LineError, error) {
	type entry struct {
		line  int
		text  string
		value int
	}
	var issues []*LineError
	entries := make(map[string]entry)

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if n == 1 && strings.Contains(strings.ToLower(text), "parameter") {
			continue
		}

		name, value, ok := strings.Cut(text, ",")
		if !ok {
			issues = append(issues, c.reject(n, text, fmt.Errorf("expected parameter,value: %w", ErrMalformed)))
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := aliases[name]; !ok {
			issues = append(issues, c.reject(n, text, fmt.Errorf("%q: %w", name, ErrUnknownParameter)))
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			issues = append(issues, c.reject(n, text, fmt.Errorf("%s=%q: %w", name, value, ErrMalformed)))
			continue
		}
		entries[name] = entry{line: n, text: text, value: v}
	}
	if err := sc.Err(); err != nil {
		return issues, err
	}

	for _, p := range parameters {
		for _, name := range p.names {
			e, ok := entries[name]
			if !ok {
				continue
			}
			if err := c.set(p.key, e.value); err != nil {
				issues = append(issues, c.reject(e.line, e.text, err))
				continue
			}
			break
		}
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })
	return issues, nil
}

func (c *Config) reject(line int, text string, err error) *LineError {
	le := &LineError{Line: line, Text: text, Err: err}
	logger().Warn("skipping config line", "line", line, "text", text, "error", err)
	return le
}

// set assigns one canonical parameter. Planet bounds are validated against
// the current opposite bound.
func (c *Config) set(key string, v int) error {
	sim := &c.Simulation
	switch key {
	case "stars":
		if err := inRange(key, v, MinStars, MaxStars); err != nil {
			return err
		}
		sim.Stars = v
	case "minplanets":
		if err := inRange(key, v, MinPlanetsCap, sim.MaxPlanets); err != nil {
			return err
		}
		sim.MinPlanets = v
	case "maxplanets":
		if err := inRange(key, v, sim.MinPlanets, MaxPlanetsCap); err != nil {
			return err
		}
		sim.MaxPlanets = v
	case "speed":
		if err := inRange(key, v, engine.MinSpeed, engine.MaxSpeed); err != nil {
			return err
		}
		sim.Speed = v
	}
	return nil
}

func inRange(key string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s=%d not in [%d, %d]: %w", key, v, lo, hi, ErrOutOfRange)
	}
	return nil
}
