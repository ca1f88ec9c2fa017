package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holiman/uint256"

	"github.com/patchkernel/engine/cache"
)

func newCacheCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cache",
		Short: "inspect the on-disk compile-result cache",
	}
	root.AddCommand(&cobra.Command{
		Use:   "inspect <fingerprint-hex>",
		Short: "report whether a fingerprint has a cached compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.Open(flagCacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer store.Close()

			fp, err := uint256.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("parsing fingerprint %q: %w", args[0], err)
			}
			prog, ok, err := store.Get(*fp)
			if err != nil {
				return fmt.Errorf("querying cache: %w", err)
			}
			if !ok {
				fmt.Println("miss")
				return nil
			}
			fmt.Printf("hit: %d slots, %d state cells\n", len(prog.SlotMeta), len(prog.StateLayout))
			return nil
		},
	})
	return root
}
