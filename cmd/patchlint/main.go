// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Command patchlint is a standalone linter: it runs the lowering
// pipeline over one or more patch documents and exits non-zero if any
// produced an error diagnostic, without ever touching the compile cache
// (SPEC_FULL.md §11 "urfave/cli/v2 ... secondary linter binary").
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/internal/cliutil"
)

func main() {
	app := &cli.App{
		Name:  "patchlint",
		Usage: "validate patch documents against the lowering pipeline",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress warning diagnostics"},
			&cli.BoolFlag{Name: "json", Usage: "emit diagnostics as newline-delimited JSON"},
		},
		Action: lintAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "patchlint:", err)
		os.Exit(1)
	}
}

func lintAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: patchlint [options] <patch-file>...", 2)
	}

	quiet := c.Bool("quiet")
	asJSON := c.Bool("json")
	var failed bool

	for _, path := range c.Args().Slice() {
		result, err := cliutil.Compile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		for _, d := range result.Diagnostics {
			if d.Severity == diag.SeverityWarning && quiet {
				continue
			}
			if asJSON {
				emitJSON(path, d)
			} else {
				emitText(path, d)
			}
		}
		if result.Program == nil {
			failed = true
		}
	}

	if failed {
		return cli.Exit("one or more patches failed to compile", 1)
	}
	return nil
}

func emitText(path string, d diag.Diagnostic) {
	kind := "warning"
	if d.Severity == diag.SeverityError {
		kind = "error"
	}
	fmt.Printf("%s: %s: %s: %s (block=%s)\n", path, kind, d.Code, d.Message, d.Where.BlockID)
}

func emitJSON(path string, d diag.Diagnostic) {
	fmt.Printf(`{"file":%q,"code":%q,"message":%q,"block":%q,"severity":%d}`+"\n",
		path, d.Code, d.Message, d.Where.BlockID, d.Severity)
}
