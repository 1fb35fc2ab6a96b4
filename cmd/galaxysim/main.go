// Command galaxysim runs the galaxy simulation: it places star systems, lets
// their civilizations fight and their volatile stars explode, and records
// per-civilization telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/galaxy-sim/internal/api"
	"github.com/talgya/galaxy-sim/internal/config"
	"github.com/talgya/galaxy-sim/internal/engine"
	"github.com/talgya/galaxy-sim/internal/entropy"
	"github.com/talgya/galaxy-sim/internal/galaxy"
	"github.com/talgya/galaxy-sim/internal/metrics"
	"github.com/talgya/galaxy-sim/internal/persistence"
	"github.com/talgya/galaxy-sim/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "parameter CSV (default $GALAXY_CONFIG)")
	ticks := flag.Uint64("ticks", 0, "stop after this many ticks (default $GALAXY_TICKS, 0 = until interrupted)")
	headless := flag.Bool("headless", false, "run ticks back to back without frame pacing (needs a tick limit)")
	flag.Parse()

	cfg, err := configure(*configPath, os.Stdout, isTerminal(os.Stdout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "galaxysim: %v\n", err)
		os.Exit(1)
	}
	if *ticks > 0 {
		cfg.Simulation.Ticks = *ticks
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *headless); err != nil {
		slog.Error("galaxysim failed", "error", err)
		os.Exit(1)
	}
}

// configure installs the process logger before loading the configuration, so
// rejected parameter lines are logged at the configured level and format.
func configure(csvPath string, w io.Writer, terminal bool) (config.Config, error) {
	logCfg, err := config.LoggingFromEnv()
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(newLogger(w, logCfg, terminal))
	return config.Load(csvPath)
}

func run(ctx context.Context, cfg config.Config, headless bool) error {
	runID := uuid.New()
	started := time.Now()
	log := slog.With("run_id", runID.String())

	// ── Seed ──────────────────────────────────────────────────────────
	seed := entropy.RunSeed(cfg.Entropy.Seed, entropy.NewClient(cfg.Entropy.RandomOrgKey))
	rng := entropy.New(seed)
	log.Info("galaxy simulation starting",
		"seed", seed,
		"stars", cfg.Simulation.Stars,
		"planets", fmt.Sprintf("%d-%d", cfg.Simulation.MinPlanets, cfg.Simulation.MaxPlanets),
		"scope", cfg.Simulation.Scope,
		"speed", cfg.Simulation.Speed,
	)

	params := cfg.PlacementParams()
	if cfg.Simulation.Nebula {
		params.Nebula = galaxy.NewNebula(seed)
	}

	// ── Telemetry sinks ───────────────────────────────────────────────
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	csvw, err := telemetry.NewRunCSVWriter(cfg.Output.Dir, started)
	if err != nil {
		return err
	}
	sinks := telemetry.Multi{csvw}
	log.Info("telemetry file opened", "path", csvw.Path())

	var db *persistence.DB
	if cfg.Output.DBPath != "" {
		db, err = persistence.Open(cfg.Output.DBPath, runID)
		if err != nil {
			sinks.Close()
			return err
		}
		sinks = append(sinks, db)
		log.Info("database opened", "path", cfg.Output.DBPath)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Error("closing telemetry sinks", "error", err)
		}
	}()

	// ── Metrics ───────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(params, cfg.Settings(), rng,
		engine.WithRecorder(sinks),
		engine.WithMetrics(collector),
	)
	report := sim.PlacementReport()

	if db != nil {
		if err := db.StartRun(started, seed, report.Requested, report.Placed); err != nil {
			return err
		}
		for k, v := range map[string]string{
			"scope":       cfg.Simulation.Scope.String(),
			"speed":       strconv.Itoa(cfg.Simulation.Speed),
			"min_planets": strconv.Itoa(cfg.Simulation.MinPlanets),
			"max_planets": strconv.Itoa(cfg.Simulation.MaxPlanets),
			"nebula":      strconv.FormatBool(cfg.Simulation.Nebula),
		} {
			if err := db.SaveMeta(k, v); err != nil {
				log.Warn("saving run metadata", "key", k, "error", err)
			}
		}
	}

	eng := engine.NewEngine()
	if err := eng.SetSpeed(cfg.Simulation.Speed); err != nil {
		return err
	}
	limit := cfg.Simulation.Ticks
	eng.OnTick = func(uint64) {
		res := sim.AdvanceOneTick()
		if len(res.Exploded) > 0 {
			log.Debug("tick summary", "tick", res.Tick, "exploded", len(res.Exploded))
		}
		if limit > 0 && res.Tick >= limit {
			eng.Stop()
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	var server *api.Server
	if cfg.Server.Port > 0 {
		if cfg.Server.AdminKey == "" {
			log.Warn("GALAXY_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		server = &api.Server{
			Sim:         sim,
			Eng:         eng,
			Gatherer:    collector.Gatherer(),
			Port:        cfg.Server.Port,
			AdminKey:    cfg.Server.AdminKey,
			RunID:       runID.String(),
			Started:     started,
			CORSOrigins: cfg.Server.CORSOrigins,
			Limiter:     api.NewRateLimiter(20, 40),
			History:     db,
		}
		server.Start()
	}

	fmt.Printf("\nGalaxy is alive: %d stars, %d planets, %d civilizations.\n",
		report.Placed, sim.Snapshot().PlanetCount(), len(sim.Civilizations()))
	if server != nil {
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	}

	// ── Run ───────────────────────────────────────────────────────────
	if headless && limit > 0 {
		eng.RunTicks(ctx, limit)
	} else {
		fmt.Println("Starting simulation... (Ctrl+C to stop)")
		eng.Run(ctx)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", "error", err)
		}
		cancel()
	}

	lastTick := sim.CurrentTick()
	if db != nil {
		if err := db.FinishRun(time.Now(), lastTick); err != nil {
			log.Error("finishing run", "error", err)
		}
	}

	printSummary(os.Stdout, sim, lastTick, started, csvw.Path())
	return nil
}

func printSummary(w io.Writer, sim *engine.Simulation, ticks uint64, started time.Time, csvPath string) {
	stats := sim.Statistics()
	snap := sim.Snapshot()

	fmt.Fprintf(w, "\nSimulation stopped after %s ticks (started %s).\n",
		humanize.Comma(int64(ticks)), humanize.Time(started))
	fmt.Fprintf(w, "  stars left:      %s\n", humanize.Comma(int64(len(snap.Stars))))
	fmt.Fprintf(w, "  civilizations:   %s\n", humanize.Comma(int64(len(snap.Civilizations))))
	fmt.Fprintf(w, "  interactions:    %s (%s conquests)\n",
		humanize.Comma(int64(stats.Interactions)), humanize.Comma(int64(stats.Conquests)))
	fmt.Fprintf(w, "  explosions:      %s\n", humanize.Comma(int64(stats.Explosions)))
	if len(snap.Civilizations) > 0 {
		top := snap.Civilizations[0]
		for _, c := range snap.Civilizations[1:] {
			if c.Power > top.Power {
				top = c
			}
		}
		fmt.Fprintf(w, "  strongest:       civilization %d %s, power %d on %s\n",
			top.CivilizationID, top.Color, top.Power, english.Plural(top.PlanetCount, "planet", "planets"))
	}
	fmt.Fprintf(w, "  telemetry:       %s\n", csvPath)
}
