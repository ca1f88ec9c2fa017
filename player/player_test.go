package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/schedule"
	"github.com/patchkernel/engine/transform"
	"github.com/patchkernel/engine/valuestore"
)

func newTestExecutor() *schedule.Executor {
	prog := ir.NewCompiledProgram()
	return schedule.New(prog, transform.NewBuiltinRegistry(), nil, false)
}

func TestTickAdvancesTimeWhenPlaying(t *testing.T) {
	var calls int
	exec := newTestExecutor()
	p := New(exec, func(render.Frame, valuestore.View) { calls++ }, Config{})

	p.Tick(16, 0)
	require.Equal(t, 16.0, p.TAbsMs())
	require.Equal(t, 1, calls)
}

func TestTickDoesNotAdvanceWhenPaused(t *testing.T) {
	exec := newTestExecutor()
	p := New(exec, func(render.Frame, valuestore.View) {}, Config{StartPaused: true})

	p.Tick(16, 0)
	require.Equal(t, 0.0, p.TAbsMs())

	p.Play()
	p.Tick(16, 0)
	require.Equal(t, 16.0, p.TAbsMs())
}

func TestTickWrapsOnLoop(t *testing.T) {
	exec := newTestExecutor()
	p := New(exec, func(render.Frame, valuestore.View) {}, Config{Loop: true})

	p.Tick(900, 1000)
	require.Equal(t, 900.0, p.TAbsMs())
	p.Tick(200, 1000) // crosses the 1000ms loop boundary
	require.Equal(t, 100.0, p.TAbsMs())
}

func TestScrubJumpsRegardlessOfMode(t *testing.T) {
	exec := newTestExecutor()
	p := New(exec, func(render.Frame, valuestore.View) {}, Config{StartPaused: true})
	p.Scrub(500)
	require.Equal(t, 500.0, p.TAbsMs())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	exec := newTestExecutor()
	p := New(exec, func(render.Frame, valuestore.View) {}, Config{MaxFPS: 1000})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
