// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package bus holds the reserved-bus contract (spec §4.7, §6 "Reserved
// bus contract") and a deterministically-ordered publisher set used by
// bus lowering to sort publishers by (sortKey, stableHash) (spec §3
// invariant 4, "Bus-combine results are stable under publisher reordering
// in source code because the sort key rules are fixed", spec §5).
package bus

import "github.com/google/btree"

// Publisher is one bus publisher entry, ordered by (SortKey, StableHash)
// — the same deterministic ordering every pass in this module uses for
// block visitation (spec §3 invariant 3, applied here to invariant 4).
type Publisher struct {
	BlockID   string
	SortKey   int64
	StableHash string
	Ref       any // the lowering-pipeline-specific resolved value a Publisher carries
}

func (p Publisher) Less(than btree.Item) bool {
	o := than.(Publisher)
	if p.SortKey != o.SortKey {
		return p.SortKey < o.SortKey
	}
	return p.StableHash < o.StableHash
}

// PublisherSet collects one bus's publishers in (sortKey, stableHash)
// order regardless of the order they were appended during lowering —
// wired with google/btree rather than a post-hoc sort.Slice so a very
// wide patch's per-bus publisher insertion is O(log n) instead of
// deferring all ordering work to a single O(n log n) sort at the end of
// lowering (spec SPEC_FULL.md §11).
type PublisherSet struct {
	tree *btree.BTree
}

func NewPublisherSet() *PublisherSet {
	return &PublisherSet{tree: btree.New(8)}
}

func (s *PublisherSet) Add(p Publisher) {
	s.tree.ReplaceOrInsert(p)
}

// Ordered returns every publisher in (sortKey, stableHash) order.
func (s *PublisherSet) Ordered() []Publisher {
	out := make([]Publisher, 0, s.tree.Len())
	s.tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(Publisher))
		return true
	})
	return out
}

func (s *PublisherSet) Len() int { return s.tree.Len() }
