// Package engine provides the frame-driven simulation loop and the per-tick
// interaction and explosion systems.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Simulation speed bounds, in frames per simulation tick.
const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 1
)

// Engine drives the simulation forward one frame at a time. Every Speed frames
// it fires OnTick, so a larger Speed means a slower simulation.
type Engine struct {
	Interval time.Duration // Frame interval (default ~60 fps)

	// Called once per simulation tick with the frame that triggered it.
	OnTick func(frame uint64)

	mu     sync.Mutex
	frame  uint64
	speed  int
	paused bool
	cancel context.CancelFunc
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: 16 * time.Millisecond,
		speed:    DefaultSpeed,
	}
}

// Frame returns the current frame counter.
func (e *Engine) Frame() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Speed returns the frames-per-tick divisor.
func (e *Engine) Speed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the frames-per-tick divisor.
func (e *Engine) SetSpeed(n int) error {
	if n < MinSpeed || n > MaxSpeed {
		return fmt.Errorf("speed %d outside [%d, %d]", n, MinSpeed, MaxSpeed)
	}
	e.mu.Lock()
	e.speed = n
	e.mu.Unlock()
	slog.Info("simulation speed changed", "frames_per_tick", n)
	return nil
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetPaused pauses or resumes frame advancement.
func (e *Engine) SetPaused(p bool) {
	e.mu.Lock()
	e.paused = p
	e.mu.Unlock()
	slog.Info("simulation pause toggled", "paused", p)
}

// Run advances frames at Interval until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	slog.Info("simulation engine started", "frame", e.Frame(), "frames_per_tick", e.Speed())

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "frame", e.Frame())
			return
		case <-ticker.C:
			if e.Paused() {
				continue
			}
			e.Step()
		}
	}
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Step advances one frame and fires OnTick when the frame lands on the speed
// divisor. Returns whether a tick fired. An unset speed counts as DefaultSpeed.
func (e *Engine) Step() bool {
	e.mu.Lock()
	e.frame++
	frame := e.frame
	speed := e.speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	fire := frame%uint64(speed) == 0
	e.mu.Unlock()

	if fire && e.OnTick != nil {
		e.OnTick(frame)
	}
	return fire
}

// RunTicks fires n ticks back to back, ignoring Interval and pause. Returns
// the number of ticks fired before ctx was done.
func (e *Engine) RunTicks(ctx context.Context, n uint64) uint64 {
	var fired uint64
	for fired < n && ctx.Err() == nil {
		if e.Step() {
			fired++
		}
	}
	return fired
}
