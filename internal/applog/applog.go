// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package applog wires up the root log/v3 handler every cmd binary
// shares: colorized output on a TTY, optionally tee'd to a rotated file
// (SPEC_FULL.md §10.1), exactly as the teacher wires its own log backend
// at process start.
package applog

import (
	"os"

	"github.com/mattn/go-colorable"
	"gopkg.in/natefinch/lumberjack.v2"

	log "github.com/erigontech/erigon-lib/log/v3"
)

// Config controls root logger construction (spec process/CLI flags,
// SPEC_FULL.md §10.3).
type Config struct {
	Level   string // "trace" | "debug" | "info" | "warn" | "error" | "crit"
	LogFile string // empty disables file rotation
}

// Setup installs the root log/v3 handler and returns it so a caller can
// hand it to a component needing its own named logger.
func Setup(cfg Config) log.Logger {
	lvl, err := log.LvlFromString(cfg.Level)
	if err != nil {
		lvl = log.LvlInfo
	}

	handlers := []log.Handler{
		log.LvlFilterHandler(lvl, log.StreamHandler(colorable.NewColorableStdout(), log.TerminalFormat(true))),
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		handlers = append(handlers, log.LvlFilterHandler(lvl, log.StreamHandler(rotator, log.LogfmtFormat())))
	}

	root := log.Root()
	root.SetHandler(log.MultiHandler(handlers...))
	return root
}

// Fallback is used by a binary that wants logging before flags are
// parsed (e.g. to report a flag-parse error itself).
func Fallback() log.Logger {
	root := log.Root()
	root.SetHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(true)))
	return root
}
