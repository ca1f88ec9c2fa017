// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package player owns unbounded wall time and the play/pause/scrub/loop
// view policy (spec §4.1 "The player owns unbounded wall time (tAbsMs).
// Every frame, it derives tModelMs from TimeModel and a view policy
// (play / pause / scrub / loop)"), and drives a schedule.Executor at a
// capped tick rate.
package player

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/schedule"
	"github.com/patchkernel/engine/valuestore"
)

// Mode is the player's view policy (spec §4.1).
type Mode uint8

const (
	ModePlay Mode = iota
	ModePause
)

// Sink is the external collaborator the player hands each produced frame
// to (spec §6 "External sink: a function accepting a RenderFrame value
// and a read-only ValueStore view").
type Sink func(frame render.Frame, view valuestore.View)

// Player advances wall time and calls into an Executor once per tick.
// Looping is expressed purely as an adjustment to the player's own
// tAbsMs anchor (spec §4.1: "Looping ... equals moving the play head back
// to zero and is not expressed as graph feedback"); it never mutates the
// executor's StateBuffer directly — a looped or scrubbed jump is observed
// by stateful operators exactly like any other tAbsMs discontinuity
// (spec §4.1 "Scrubbing adjusts tModelMs without mutating StateBuffer").
type Player struct {
	exec *schedule.Executor
	sink Sink

	limiter *rate.Limiter

	mode      Mode
	loop      bool
	tAbsMs    float64
	startWall time.Time
	lastTick  time.Time
}

// Config controls tick-rate capping and initial mode.
type Config struct {
	MaxFPS     float64 // 0 disables capping
	StartPaused bool
	Loop        bool
}

func New(exec *schedule.Executor, sink Sink, cfg Config) *Player {
	p := &Player{
		exec: exec,
		sink: sink,
		mode: ModePlay,
		loop: cfg.Loop,
	}
	if cfg.StartPaused {
		p.mode = ModePause
	}
	if cfg.MaxFPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MaxFPS), 1)
	}
	return p
}

// Play resumes wall-clock advancement.
func (p *Player) Play() { p.mode = ModePlay }

// Pause freezes tAbsMs at its current value; subsequent Tick calls
// re-derive the same frame without advancing time.
func (p *Player) Pause() { p.mode = ModePause }

// Scrub jumps the play head directly to tAbsMs, regardless of mode (spec
// §4.1 "Scrubbing adjusts tModelMs without mutating StateBuffer").
func (p *Player) Scrub(tAbsMs float64) {
	p.tAbsMs = tAbsMs
}

// SetLoop toggles the loop view policy (finite TimeModel only — an
// infinite program simply never needs to loop).
func (p *Player) SetLoop(loop bool) { p.loop = loop }

// Tick advances wall time by dtMs (if playing) and runs one executor
// frame, handing the result to Sink. Looping, when enabled, is
// implemented by a caller-supplied durationMs — the player doesn't read
// TimeModel itself (that's the executor's derivation, spec §4.1), so a
// loop-aware caller passes in the same durationMs it configured the
// patch's TimeRoot with.
func (p *Player) Tick(dtMs float64, loopDurationMs float64) {
	if p.mode == ModePlay {
		p.tAbsMs += dtMs
		if p.loop && loopDurationMs > 0 && p.tAbsMs >= loopDurationMs {
			p.tAbsMs = p.tAbsMs - loopDurationMs*float64(int64(p.tAbsMs/loopDurationMs))
		}
	}
	frame, view, err := p.exec.Frame(p.tAbsMs)
	if err != nil {
		return
	}
	if p.sink != nil {
		p.sink(frame, view)
	}
}

// Run drives Tick in a loop at the configured tick rate until ctx is
// cancelled (spec §5 "the only suspension point ... the boundary between
// render-assemble and the external sink" — Run's blocking is exactly that
// boundary, implemented as a rate-limited loop rather than a busy spin).
func (p *Player) Run(ctx context.Context, loopDurationMs float64) error {
	p.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				// Wait fails early once the next token would fall past
				// ctx's deadline; report the deadline itself.
				if _, ok := ctx.Deadline(); ok {
					<-ctx.Done()
					return ctx.Err()
				}
				return err
			}
		}
		now := time.Now()
		dt := now.Sub(p.lastTick).Seconds() * 1000
		p.lastTick = now
		p.Tick(dt, loopDurationMs)
	}
}

// TAbsMs returns the player's current wall-time position.
func (p *Player) TAbsMs() float64 { return p.tAbsMs }
