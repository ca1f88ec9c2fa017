// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Command frametap is a debug-capture binary: it compiles a patch, runs
// it for a fixed number of frames, and dumps each RenderFrame and its
// resolved slot values to disk as JSON — useful for diffing a patch's
// output across a code change without standing up the gRPC/websocket
// sinks (SPEC_FULL.md §11 "alecthomas/kong ... tertiary debug-capture
// binary").
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/patchkernel/engine/internal/cliutil"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/schedule"
	"github.com/patchkernel/engine/valuestore"
)

var cli struct {
	Patch     string  `arg:"" help:"patch document to compile (JSON, TOML or YAML)"`
	OutDir    string  `short:"o" default:"./frametap-out" help:"directory frames are written to"`
	Frames    int     `short:"n" default:"30" help:"number of frames to capture"`
	FrameMs   float64 `default:"16.666" help:"model-time step between captured frames"`
	StartMs   float64 `default:"0" help:"model-time tAbs of the first captured frame"`
}

func main() {
	kong.Parse(&cli, kong.Description("capture N patchkernel frames to disk for offline diffing"))

	result, err := cliutil.Compile(cli.Patch)
	if err != nil {
		fatalf("compile: %v", err)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: %s\n", d.Code, d.Message)
	}
	if result.Program == nil {
		fatalf("patch failed to compile")
	}

	if err := os.MkdirAll(cli.OutDir, 0o755); err != nil {
		fatalf("creating output dir: %v", err)
	}

	exec := schedule.New(result.Program, cliutil.BuiltinTransformRegistry(), nil, false)
	for i := 0; i < cli.Frames; i++ {
		tAbs := cli.StartMs + float64(i)*cli.FrameMs
		frame, view, err := exec.Frame(tAbs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: %v\n", i, err)
			continue
		}
		if err := writeFrame(i, frame, view); err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: writing: %v\n", i, err)
		}
	}
	fmt.Printf("captured %d frames to %s\n", cli.Frames, cli.OutDir)
}

type capturedFrame struct {
	Index int           `json:"index"`
	Frame render.Frame  `json:"frame"`
	Slots map[int]any   `json:"slots"`
}

func writeFrame(index int, frame render.Frame, view valuestore.View) error {
	slots := make(map[int]any, view.Len())
	for s := 0; s < view.Len(); s++ {
		v := view.Read(ir.ValueSlot(s))
		if v.Object != nil {
			slots[s] = v.Object
		} else if v.F64 != 0 {
			slots[s] = v.F64
		} else if v.I32 != 0 {
			slots[s] = v.I32
		} else {
			slots[s] = v.U32
		}
	}
	data, err := json.MarshalIndent(capturedFrame{Index: index, Frame: frame, Slots: slots}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cli.OutDir, fmt.Sprintf("frame_%05d.json", index)), data, 0o644)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
