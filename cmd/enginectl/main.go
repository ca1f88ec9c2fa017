// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Command enginectl is the primary operator CLI: compile a patch,
// validate it without producing a program, run it headless against the
// gRPC/websocket sinks, and inspect the on-disk compile cache
// (SPEC_FULL.md §11 "spf13/cobra ... primary CLI").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/patchkernel/engine/internal/applog"
)

var (
	flagLogLevel string
	flagLogFile  string
	flagCacheDir string
)

func main() {
	root := &cobra.Command{
		Use:   "enginectl",
		Short: "compile, run and inspect patchkernel programs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applog.Setup(applog.Config{Level: flagLogLevel, LogFile: flagLogFile})
		},
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "trace|debug|info|warn|error|crit")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "rotate logs to this file in addition to stdout")
	root.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", defaultCacheDir(), "compile-result cache directory")

	root.AddCommand(newCompileCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newCacheCmd())

	if err := root.Execute(); err != nil {
		log.Error("enginectl: command failed", "err", err)
		os.Exit(1)
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".enginectl-cache"
	}
	return fmt.Sprintf("%s/patchkernel", dir)
}
