package main

import (
	"fmt"

	"github.com/spf13/cobra"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/patchkernel/engine/cache"
	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/internal/cliutil"
)

func newCompileCmd() *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "compile <patch-file>",
		Short: "lower a patch document into a compiled program and cache it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cliutil.Compile(args[0])
			if err != nil {
				return err
			}
			printDiagnostics(result.Diagnostics)
			if result.Program == nil {
				return fmt.Errorf("compile failed: %d error diagnostic(s)", countErrors(result.Diagnostics))
			}
			log.Info("compile finished", "fingerprint", result.Program.Fingerprint.Hex())

			if noCache {
				return nil
			}
			store, err := cache.Open(flagCacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer store.Close()
			if err := store.Put(result.Program); err != nil {
				return fmt.Errorf("writing cache: %w", err)
			}
			log.Info("compiled program cached", "dir", flagCacheDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip writing the compiled program to the on-disk cache")
	return cmd
}

func printDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			log.Error("diagnostic", "code", d.Code, "message", d.Message, "block", d.Where.BlockID)
		} else {
			log.Warn("diagnostic", "code", d.Code, "message", d.Message, "block", d.Where.BlockID)
		}
	}
}

func countErrors(diags []diag.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}
