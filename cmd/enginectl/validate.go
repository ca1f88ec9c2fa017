package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchkernel/engine/internal/cliutil"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <patch-file>",
		Short: "run the lowering pipeline and report diagnostics without caching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cliutil.Compile(args[0])
			if err != nil {
				return err
			}
			printDiagnostics(result.Diagnostics)
			if result.Program == nil {
				return fmt.Errorf("invalid: %d error diagnostic(s)", countErrors(result.Diagnostics))
			}
			fmt.Println("valid")
			return nil
		},
	}
}
