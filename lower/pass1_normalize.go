package lower

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
)

// passNormalize is pass 1: sort blocks into the canonical deterministic
// order, intern their dense BlockIndex, and validate each block's type
// exists in the registry. Per-block validation is embarrassingly
// parallel (one block never reads another's registry entry), so it runs
// via errgroup — compile-time-only concurrency, distinct from the
// single-threaded frame scheduler (spec §5, SPEC_FULL.md §11).
func (c *ctx) passNormalize() {
	c.orderedBlocks = c.sortedBlockIDs()

	var eg errgroup.Group
	results := make([]error, len(c.orderedBlocks))
	for i, id := range c.orderedBlocks {
		i, id := i, id
		eg.Go(func() error {
			blk := c.p.Blocks[id]
			if _, ok := c.reg.Lookup(blk.Type); !ok {
				results[i] = fmt.Errorf("unknown block type %q", blk.Type)
			}
			return nil
		})
	}
	_ = eg.Wait()

	for i, id := range c.orderedBlocks {
		blockIdx := ir.BlockIndex(i)
		c.blockIndex[id] = blockIdx
		c.bidx.Intern(string(id))
		if results[i] != nil {
			c.diags.Add(diag.Errorf(diag.CodeUnresolvedInput, diag.Where{BlockID: string(id)}, "%s", results[i]))
			continue
		}
		blk := c.p.Blocks[id]
		c.fp.BlockSet = append(c.fp.BlockSet, fmt.Sprintf("%s:%s:%d", id, blk.Type, blk.SortKey))
	}
	c.fp.Seed = c.p.Seed
}
