// Package config loads simulation parameters from defaults, a parameter CSV,
// a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/talgya/galaxy-sim/internal/engine"
	"github.com/talgya/galaxy-sim/internal/galaxy"
)

// Parameter bounds.
const (
	MinStars      = 1
	MaxStars      = 16
	MinPlanetsCap = 1
	MaxPlanetsCap = 16
)

var (
	ErrOutOfRange       = errors.New("value out of range")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrMalformed        = errors.New("malformed entry")
)

// Config is the full run configuration.
type Config struct {
	Simulation SimulationConfig
	Output     OutputConfig
	Server     ServerConfig
	Logging    LoggingConfig
	Entropy    EntropyConfig
}

// SimulationConfig holds the tunable galaxy parameters.
type SimulationConfig struct {
	Stars      int
	MinPlanets int
	MaxPlanets int
	Speed      int // Frames per tick

	Width  int
	Height int
	Scope  engine.Scope
	Nebula bool
	Ticks  uint64 // 0 runs until interrupted
}

type OutputConfig struct {
	Dir    string
	DBPath string // Empty disables the SQLite sink
}

type ServerConfig struct {
	Port        int // 0 disables the HTTP API
	AdminKey    string
	CORSOrigins []string
}

type LoggingConfig struct {
	Level  string
	Format string // "text", "json" or "auto"
}

type EntropyConfig struct {
	Seed         int64 // 0 draws a fresh seed
	RandomOrgKey string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			Stars:      5,
			MinPlanets: 1,
			MaxPlanets: 10,
			Speed:      engine.DefaultSpeed,
			Width:      1500,
			Height:     700,
			Scope:      engine.ScopeStar,
		},
		Output: OutputConfig{Dir: "."},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds a configuration from defaults, an optional .env file, the
// parameter CSV named by GALAXY_CONFIG (or csvPath when non-empty) and the
// environment. A missing CSV falls back to defaults with a warning.
func Load(csvPath string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if csvPath == "" {
		csvPath = GetEnv("GALAXY_CONFIG", "")
	}
	if csvPath != "" {
		if err := cfg.LoadCSV(csvPath); err != nil {
			logger().Warn("config file unavailable, using defaults", "path", csvPath, "error", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoggingFromEnv reads LOG_LEVEL and LOG_FORMAT (after .env) so the process
// logger can be installed before the parameter file is parsed.
func LoggingFromEnv() (LoggingConfig, error) {
	l := Default().Logging
	if err := loadDotEnv(); err != nil {
		return l, err
	}
	l.Level = GetEnv("LOG_LEVEL", l.Level)
	l.Format = GetEnv("LOG_FORMAT", l.Format)
	return l, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	sim := &c.Simulation
	sim.Width = GetEnvInt("GALAXY_WIDTH", sim.Width)
	sim.Height = GetEnvInt("GALAXY_HEIGHT", sim.Height)
	sim.Ticks = uint64(max(0, GetEnvInt("GALAXY_TICKS", int(sim.Ticks))))
	sim.Nebula = GetEnv("GALAXY_NEBULA", strconv.FormatBool(sim.Nebula)) == "true"

	scope, err := engine.ParseScope(strings.ToLower(GetEnv("GALAXY_SCOPE", sim.Scope.String())))
	if err != nil {
		return fmt.Errorf("GALAXY_SCOPE: %w", err)
	}
	sim.Scope = scope

	c.Output.Dir = GetEnv("GALAXY_OUTPUT_DIR", c.Output.Dir)
	c.Output.DBPath = GetEnv("GALAXY_DB", c.Output.DBPath)
	c.Server.Port = GetEnvInt("GALAXY_API_PORT", c.Server.Port)
	c.Server.AdminKey = GetEnv("GALAXY_ADMIN_KEY", c.Server.AdminKey)
	if v := GetEnv("CORS_ORIGINS", ""); v != "" {
		c.Server.CORSOrigins = c.Server.CORSOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = GetEnv("LOG_FORMAT", c.Logging.Format)
	c.Entropy.RandomOrgKey = GetEnv("RANDOM_ORG_API_KEY", c.Entropy.RandomOrgKey)

	if v := GetEnv("GALAXY_SEED", ""); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GALAXY_SEED: %w", err)
		}
		c.Entropy.Seed = seed
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.Simulation.Width <= 0 || c.Simulation.Height <= 0 {
		return fmt.Errorf("galaxy area %dx%d: %w", c.Simulation.Width, c.Simulation.Height, ErrOutOfRange)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("api port %d: %w", c.Server.Port, ErrOutOfRange)
	}
	return nil
}

// PlacementParams maps the configuration onto placement sizing.
func (c *Config) PlacementParams() galaxy.PlacementParams {
	p := galaxy.DefaultPlacementParams()
	p.StarCount = c.Simulation.Stars
	p.MinPlanets = c.Simulation.MinPlanets
	p.MaxPlanets = c.Simulation.MaxPlanets
	p.Width = c.Simulation.Width
	p.Height = c.Simulation.Height
	return p
}

// Settings maps the configuration onto the per-tick systems.
func (c *Config) Settings() engine.Settings {
	s := engine.DefaultSettings()
	s.Scope = c.Simulation.Scope
	return s
}

// GetEnv returns the environment value for key, or fallback when unset.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt is GetEnv for integers. Unparseable values fall back.
func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger().Warn("ignoring non-integer environment value", "key", key, "value", v)
	}
	return fallback
}
